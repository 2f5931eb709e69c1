package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/meridiankv/meridian-go/core/builder"
	"github.com/meridiankv/meridian-go/core/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency. This is the default wire format.
func NewBinarySerializer() IOperationSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IOperationSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasBucket     uint16 = 1 << 0
	hasScope      uint16 = 1 << 1
	hasCollection uint16 = 1 << 2
	hasKey        uint16 = 1 << 3
	hasValue      uint16 = 1 << 4
	hasExpireIn   uint16 = 1 << 5
	hasCas        uint16 = 1 << 6
	hasOk         uint16 = 1 << 7
	hasErr        uint16 = 1 << 8
	hasRows       uint16 = 1 << 9
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IOperationSerializer)
// --------------------------------------------------------------------------

func (s binarySerializerImpl) Serialize(op common.Operation, b *builder.Builder) error {
	// Compute the flags up front so the fixed header can be written first
	var flags uint16
	if op.Bucket != "" {
		flags |= hasBucket
	}
	if op.Scope != "" {
		flags |= hasScope
	}
	if op.Collection != "" {
		flags |= hasCollection
	}
	if op.Key != "" {
		flags |= hasKey
	}
	if op.Value != nil {
		flags |= hasValue
	}
	if op.ExpireIn > 0 {
		flags |= hasExpireIn
	}
	if op.Cas > 0 {
		flags |= hasCas
	}
	if op.Ok {
		flags |= hasOk
	}
	if op.Err != "" {
		flags |= hasErr
	}
	if op.Rows != nil {
		flags |= hasRows
	}

	// Reserve the exact size so appends never reallocate
	b.Grow(s.sizeBytes(op))

	// Fixed header: opcode, status, flags
	b.AppendByte(byte(op.OpCode))
	b.AppendByte(byte(op.Status))
	bufLen := b.Len()
	b.AppendByte(0)
	b.AppendByte(0)
	binary.BigEndian.PutUint16(b.Bytes()[bufLen:], flags)

	// Length-prefixed string fields
	if flags&hasBucket != 0 {
		b.AppendUint32(uint32(len(op.Bucket)))
		b.AppendString(op.Bucket)
	}
	if flags&hasScope != 0 {
		b.AppendUint32(uint32(len(op.Scope)))
		b.AppendString(op.Scope)
	}
	if flags&hasCollection != 0 {
		b.AppendUint32(uint32(len(op.Collection)))
		b.AppendString(op.Collection)
	}
	if flags&hasKey != 0 {
		b.AppendUint32(uint32(len(op.Key)))
		b.AppendString(op.Key)
	}

	// Value
	if flags&hasValue != 0 {
		b.AppendUint32(uint32(len(op.Value)))
		b.AppendBytes(op.Value)
	}

	// Fixed-size numeric fields
	if flags&hasExpireIn != 0 {
		b.AppendUint64(op.ExpireIn)
	}
	if flags&hasCas != 0 {
		b.AppendUint64(op.Cas)
	}
	if flags&hasOk != 0 {
		b.AppendByte(1)
	}

	// Error detail
	if flags&hasErr != 0 {
		b.AppendUint32(uint32(len(op.Err)))
		b.AppendString(op.Err)
	}

	// Query rows: row count followed by length-prefixed rows
	if flags&hasRows != 0 {
		b.AppendUint32(uint32(len(op.Rows)))
		for _, row := range op.Rows {
			b.AppendUint32(uint32(len(row)))
			b.AppendBytes(row)
		}
	}

	return nil
}

func (s binarySerializerImpl) Deserialize(data []byte, op *common.Operation) error {
	// Check minimum size (opcode + status + flags)
	if len(data) < 4 {
		return fmt.Errorf("data too short for operation header")
	}

	op.OpCode = common.OpCode(data[0])
	op.Status = common.Status(data[1])
	flags := binary.BigEndian.Uint16(data[2:4])
	pos := 4

	// readString reads one length-prefixed string field
	readString := func(field string) (string, error) {
		if pos+4 > len(data) {
			return "", fmt.Errorf("data too short for %s length", field)
		}
		n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if pos+n > len(data) {
			return "", fmt.Errorf("data too short for %s data", field)
		}
		v := string(data[pos : pos+n])
		pos += n
		return v, nil
	}

	var err error

	if flags&hasBucket != 0 {
		if op.Bucket, err = readString("bucket"); err != nil {
			return err
		}
	} else {
		op.Bucket = ""
	}

	if flags&hasScope != 0 {
		if op.Scope, err = readString("scope"); err != nil {
			return err
		}
	} else {
		op.Scope = ""
	}

	if flags&hasCollection != 0 {
		if op.Collection, err = readString("collection"); err != nil {
			return err
		}
	} else {
		op.Collection = ""
	}

	if flags&hasKey != 0 {
		if op.Key, err = readString("key"); err != nil {
			return err
		}
	} else {
		op.Key = ""
	}

	// Value: copied out of data since data may alias a pooled builder
	if flags&hasValue != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for value length")
		}
		valueLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if pos+valueLen > len(data) {
			return fmt.Errorf("data too short for value data")
		}

		// Allocate only if needed
		if op.Value == nil || cap(op.Value) < valueLen {
			op.Value = make([]byte, valueLen)
		} else {
			op.Value = op.Value[:valueLen]
		}
		copy(op.Value, data[pos:pos+valueLen])
		pos += valueLen
	} else {
		op.Value = nil
	}

	if flags&hasExpireIn != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for expiry")
		}
		op.ExpireIn = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	} else {
		op.ExpireIn = 0
	}

	if flags&hasCas != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for cas")
		}
		op.Cas = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	} else {
		op.Cas = 0
	}

	if flags&hasOk != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for ok flag")
		}
		op.Ok = data[pos] != 0
		pos++
	} else {
		op.Ok = false
	}

	if flags&hasErr != 0 {
		if op.Err, err = readString("error"); err != nil {
			return err
		}
	} else {
		op.Err = ""
	}

	// Rows: copied out of data like Value
	if flags&hasRows != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for row count")
		}
		rowCount := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4

		// Each row needs at least its 4 byte length prefix, so a count
		// beyond that bound cannot be satisfied by the remaining data.
		// Checking before allocating keeps a corrupt count from driving
		// a huge allocation.
		if rowCount > (len(data)-pos)/4 {
			return fmt.Errorf("row count %d exceeds remaining data", rowCount)
		}

		op.Rows = make([][]byte, rowCount)
		for i := 0; i < rowCount; i++ {
			if pos+4 > len(data) {
				return fmt.Errorf("data too short for row %d length", i)
			}
			rowLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
			pos += 4
			if pos+rowLen > len(data) {
				return fmt.Errorf("data too short for row %d data", i)
			}
			row := make([]byte, rowLen)
			copy(row, data[pos:pos+rowLen])
			op.Rows[i] = row
			pos += rowLen
		}
	} else {
		op.Rows = nil
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (s binarySerializerImpl) sizeBytes(op common.Operation) int {
	// 1 byte opcode + 1 byte status + 2 bytes flags
	size := 4

	if op.Bucket != "" {
		size += 4 + len(op.Bucket)
	}
	if op.Scope != "" {
		size += 4 + len(op.Scope)
	}
	if op.Collection != "" {
		size += 4 + len(op.Collection)
	}
	if op.Key != "" {
		size += 4 + len(op.Key)
	}
	if op.Value != nil {
		size += 4 + len(op.Value)
	}
	if op.ExpireIn > 0 {
		size += 8
	}
	if op.Cas > 0 {
		size += 8
	}
	if op.Ok {
		size += 1
	}
	if op.Err != "" {
		size += 4 + len(op.Err)
	}
	if op.Rows != nil {
		size += 4
		for _, row := range op.Rows {
			size += 4 + len(row)
		}
	}

	return size
}
