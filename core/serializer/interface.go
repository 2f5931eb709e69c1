package serializer

import (
	"github.com/meridiankv/meridian-go/core/builder"
	"github.com/meridiankv/meridian-go/core/common"
)

// IOperationSerializer is the interface for all Operation serializers.
type IOperationSerializer interface {
	// Serialize appends the wire form of an Operation to the builder.
	// The builder may already contain a reserved frame header.
	Serialize(op common.Operation, b *builder.Builder) error
	// Deserialize decodes a byte array into an Operation.
	// The data slice may alias pooled memory; implementations must copy
	// every byte they keep.
	Deserialize(data []byte, op *common.Operation) error
}
