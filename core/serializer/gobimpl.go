package serializer

import (
	"bytes"
	"encoding/gob"

	"github.com/meridiankv/meridian-go/core/builder"
	"github.com/meridiankv/meridian-go/core/common"
)

// NewGOBSerializer creates a new serializer using Go's binary gob format
func NewGOBSerializer() IOperationSerializer {
	return &gobSerializerImpl{}
}

// gobSerializerImpl implements the IOperationSerializer interface using gob encoding
type gobSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IOperationSerializer)
// --------------------------------------------------------------------------

func (g gobSerializerImpl) Serialize(op common.Operation, b *builder.Builder) error {
	// Encode directly into the builder, it implements io.Writer
	return gob.NewEncoder(b).Encode(op)
}

func (g gobSerializerImpl) Deserialize(data []byte, op *common.Operation) error {
	*op = common.Operation{}
	return gob.NewDecoder(bytes.NewReader(data)).Decode(op)
}
