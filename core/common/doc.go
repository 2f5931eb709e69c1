// Package common contains the types shared by all SDK layers: the wire
// Operation message and its opcodes and status codes, the frame codec used
// on key-value connections, client and server configuration structs with
// their defaults, partition hashing, and the logging setup.
//
// The wire protocol is deliberately small. An Operation is serialized by one
// of the core/serializer implementations and framed with a fixed 20 byte
// header (partition hash, opaque correlation id, payload length). The opaque
// id lets many operations share one connection: responses are matched back
// to waiting callers regardless of arrival order.
package common
