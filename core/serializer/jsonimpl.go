package serializer

import (
	"github.com/goccy/go-json"

	"github.com/meridiankv/meridian-go/core/builder"
	"github.com/meridiankv/meridian-go/core/common"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IOperationSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IOperationSerializer interface using
// json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IOperationSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(op common.Operation, b *builder.Builder) error {
	// Encode directly into the builder, it implements io.Writer
	return json.NewEncoder(b).Encode(op)
}

func (j jsonSerializerImpl) Deserialize(data []byte, op *common.Operation) error {
	*op = common.Operation{}
	return json.Unmarshal(data, op)
}
