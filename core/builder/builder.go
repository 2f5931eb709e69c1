package builder

import "encoding/binary"

// defaultCapacity is the initial capacity of a freshly allocated builder.
// Large enough for the frame header plus a typical small document.
const defaultCapacity = 4096

// Builder is a reusable byte buffer used to build the wire representation of
// one operation (or to hold one received payload). It grows as needed and is
// returned to a Pool after the operation completes.
//
// A Builder is owned by exactly one operation at a time and is not safe for
// concurrent use.
type Builder struct {
	buf []byte
}

// NewBuilder creates a standalone builder with at least the given capacity.
// Builders are normally obtained from a Pool instead.
func NewBuilder(capacity int) *Builder {
	if capacity < defaultCapacity {
		capacity = defaultCapacity
	}
	return &Builder{buf: make([]byte, 0, capacity)}
}

// Reset truncates the builder to length zero, keeping its capacity.
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
}

// Len returns the number of bytes written so far.
func (b *Builder) Len() int {
	return len(b.buf)
}

// Cap returns the current capacity of the builder.
func (b *Builder) Cap() int {
	return cap(b.buf)
}

// Bytes returns the written bytes. The slice is only valid until the next
// mutating call and must not be retained after the builder is returned to
// its pool.
func (b *Builder) Bytes() []byte {
	return b.buf
}

// Grow ensures capacity for at least n additional bytes.
func (b *Builder) Grow(n int) {
	if cap(b.buf)-len(b.buf) >= n {
		return
	}
	grown := make([]byte, len(b.buf), len(b.buf)+n)
	copy(grown, b.buf)
	b.buf = grown
}

// Resize sets the builder length to exactly n bytes, growing the capacity if
// needed. Newly exposed bytes are unspecified; callers are expected to
// overwrite them. Used to reserve frame headers and to read payloads in
// place.
func (b *Builder) Resize(n int) {
	if cap(b.buf) < n {
		grown := make([]byte, n)
		copy(grown, b.buf)
		b.buf = grown
		return
	}
	b.buf = b.buf[:n]
}

// AppendByte appends a single byte.
func (b *Builder) AppendByte(v byte) {
	b.buf = append(b.buf, v)
}

// AppendUint32 appends a big endian uint32.
func (b *Builder) AppendUint32(v uint32) {
	b.buf = binary.BigEndian.AppendUint32(b.buf, v)
}

// AppendUint64 appends a big endian uint64.
func (b *Builder) AppendUint64(v uint64) {
	b.buf = binary.BigEndian.AppendUint64(b.buf, v)
}

// AppendBytes appends a raw byte slice.
func (b *Builder) AppendBytes(p []byte) {
	b.buf = append(b.buf, p...)
}

// AppendString appends the raw bytes of a string.
func (b *Builder) AppendString(s string) {
	b.buf = append(b.buf, s...)
}

// Write implements io.Writer so encoders can stream directly into the
// builder. It never fails.
func (b *Builder) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}
