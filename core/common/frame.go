package common

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/meridiankv/meridian-go/core/builder"
)

// --------------------------------------------------------------------------
// Wire Frames
// --------------------------------------------------------------------------

// Every message on a key-value connection is a frame with the format:
//   - 8 bytes: partition (uint64, big endian) - hash of the qualified key
//   - 8 bytes: opaque (uint64, big endian) - request correlation id
//   - 4 bytes: payload length (uint32, big endian)
//   - N bytes: serialized Operation payload

// FrameHeaderSize is the fixed size of the frame header in bytes.
const FrameHeaderSize = 20

// maxPayloadSize rejects frames whose declared payload is implausibly large
// before any allocation happens.
const maxPayloadSize = 256 << 20 // 256 MiB

// BeginFrame resets the builder and reserves space for the frame header.
// The payload is then serialized into the builder and FinishFrame fills the
// header in.
func BeginFrame(b *builder.Builder) {
	b.Reset()
	b.Resize(FrameHeaderSize)
}

// FinishFrame writes the frame header into the space reserved by BeginFrame.
// The payload is everything appended after the header.
func FinishFrame(b *builder.Builder, partition, opaque uint64) error {
	payloadLen := b.Len() - FrameHeaderSize
	if payloadLen < 0 {
		return fmt.Errorf("frame builder missing header reservation")
	}
	if payloadLen > maxPayloadSize {
		return fmt.Errorf("frame payload of %d bytes exceeds limit", payloadLen)
	}

	header := b.Bytes()[:FrameHeaderSize]
	binary.BigEndian.PutUint64(header[:8], partition)
	binary.BigEndian.PutUint64(header[8:16], opaque)
	binary.BigEndian.PutUint32(header[16:20], uint32(payloadLen))
	return nil
}

// WriteFrame writes a completed frame to the connection in a single write.
func WriteFrame(conn net.Conn, b *builder.Builder) error {
	_, err := conn.Write(b.Bytes())
	return err
}

// ReadFrame reads one frame from the connection into the provided builder.
// The returned payload aliases the builder's memory and is only valid until
// the builder is reused or returned to its pool.
func ReadFrame(conn net.Conn, b *builder.Builder) (partition, opaque uint64, payload []byte, err error) {
	// Read header
	b.Reset()
	b.Resize(FrameHeaderSize)
	if _, err := io.ReadFull(conn, b.Bytes()); err != nil {
		return 0, 0, nil, err
	}

	// Parse header
	header := b.Bytes()
	partition = binary.BigEndian.Uint64(header[:8])
	opaque = binary.BigEndian.Uint64(header[8:16])
	payloadLen := binary.BigEndian.Uint32(header[16:20])

	// If no payload, return empty slice
	if payloadLen == 0 {
		return partition, opaque, []byte{}, nil
	}

	if payloadLen > maxPayloadSize {
		return 0, 0, nil, fmt.Errorf("frame payload of %d bytes exceeds limit", payloadLen)
	}

	// Read payload in place
	b.Resize(int(payloadLen))
	if _, err := io.ReadFull(conn, b.Bytes()); err != nil {
		return 0, 0, nil, err
	}

	return partition, opaque, b.Bytes(), nil
}
