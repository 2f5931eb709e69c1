// Package builder provides the operation builder pool: reusable byte
// buffers for serializing outgoing requests and holding received payloads.
//
// Every key-value operation rents one Builder from the pool, writes the
// frame header and serialized payload into it, and returns it once the
// response has been decoded. Reuse keeps the hot path allocation-free.
//
// Two bounds keep retained memory predictable:
//
//   - Builders whose capacity grew beyond the configured maximum
//     (default 1 MiB) are never retained; they are dropped on return so a
//     single large document cannot pin a large buffer forever.
//   - At most a configured number of builders (default 4 x logical CPU
//     count) are retained at once. Renting beyond that allocates a fresh
//     builder instead of blocking, and returning beyond that discards.
//
// Both bounds are configured at construction via common.BuilderConf.
package builder
