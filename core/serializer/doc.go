// Package serializer provides Operation serialization for the key-value
// wire protocol. It defines a common interface and multiple implementations
// for serializing and deserializing operations between the SDK and a server.
//
// All implementations serialize into a rented builder.Builder so the hot
// path stays allocation-free; see the builder package for the pooling
// contract.
//
// Key Components:
//
//   - IOperationSerializer: Core interface that all serializer
//     implementations must satisfy.
//
//   - binarySerializerImpl: Custom binary format optimized for speed and
//     space efficiency. Uses a flag-based approach to encode only present
//     fields, resulting in compact serialized data with minimal overhead.
//     This is the default wire format.
//
//   - jsonSerializerImpl: Implementation using JSON encoding (goccy/go-json),
//     useful for debugging or interoperability with other systems.
//
//   - gobSerializerImpl: Implementation using Go's built-in gob encoding,
//     offering good compatibility with Go's type system but with larger
//     serialized sizes. Kept for comparison benchmarks.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	Serializers are typically created once and reused throughout the
//	application. Client and server must be configured with the same format.
package serializer
