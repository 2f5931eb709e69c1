/*
Package server provides a single-node, in-memory implementation of the
key-value wire protocol, intended for development and testing.

The server speaks the same framed protocol as the client pool: requests are
read off each connection, executed against an in-memory Store by a bounded
worker pool, and answered with the request's opaque id so responses can
arrive out of order. Documents support compare-and-swap tokens and expiry,
collected lazily on access and eagerly by a background sweeper.

This server keeps everything in process memory and persists nothing.
*/
package server
