// Package transport defines the dial and listen abstractions beneath the
// connection pool and the development server. The pool only ever sees the
// IConnector interface, so the same pooling, framing and scaling logic runs
// over tcp and unix domain sockets alike.
//
// The tcp and unix subpackages provide the concrete implementations and
// apply the socket tuning options from the configuration (no-delay,
// keep-alive, linger, kernel buffer sizes) when a connection is established.
package transport
