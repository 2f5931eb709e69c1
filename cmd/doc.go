// Package cmd implements the command-line interface of the Meridian
// key-value database tooling. It provides a hierarchical command structure
// for running a local development server and interacting with a cluster as
// a client.
//
// The package is organized into several subpackages:
//
//   - kv: document operations (get, upsert, insert, replace, remove,
//     exists, touch, ping) and a perf benchmark
//   - query: key-prefix scans against a collection
//   - serve: runs the single-node development server
//   - util: shared flag, environment and configuration plumbing
//
// All commands read their configuration from flags, MERIDIAN_-prefixed
// environment variables and .env files.
package cmd
