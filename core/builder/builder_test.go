package builder

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// Builder
// ----------------------------------------------------------------------------

func TestBuilderAppendPrimitives(t *testing.T) {
	b := NewBuilder(0)

	b.AppendByte(0x01)
	b.AppendUint32(0xDEADBEEF)
	b.AppendUint64(42)
	b.AppendBytes([]byte{0xCA, 0xFE})
	b.AppendString("hi")

	want := []byte{0x01}
	want = binary.BigEndian.AppendUint32(want, 0xDEADBEEF)
	want = binary.BigEndian.AppendUint64(want, 42)
	want = append(want, 0xCA, 0xFE, 'h', 'i')

	if !bytes.Equal(b.Bytes(), want) {
		t.Errorf("Bytes() = %x, want %x", b.Bytes(), want)
	}
	if b.Len() != len(want) {
		t.Errorf("Len() = %d, want %d", b.Len(), len(want))
	}
}

func TestBuilderResetKeepsCapacity(t *testing.T) {
	b := NewBuilder(0)
	b.AppendString("some content")

	capBefore := b.Cap()
	b.Reset()

	if b.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", b.Len())
	}
	if b.Cap() != capBefore {
		t.Errorf("Cap() after Reset = %d, want %d", b.Cap(), capBefore)
	}
}

func TestBuilderResizePreservesPrefix(t *testing.T) {
	b := NewBuilder(0)
	b.AppendString("abc")

	b.Resize(8)
	if b.Len() != 8 {
		t.Fatalf("Len() = %d, want 8", b.Len())
	}
	if !bytes.Equal(b.Bytes()[:3], []byte("abc")) {
		t.Errorf("Resize lost prefix: %q", b.Bytes()[:3])
	}

	// Growing beyond capacity must still preserve the prefix
	b.Resize(defaultCapacity * 2)
	if !bytes.Equal(b.Bytes()[:3], []byte("abc")) {
		t.Errorf("Resize beyond capacity lost prefix: %q", b.Bytes()[:3])
	}
}

func TestBuilderWrite(t *testing.T) {
	b := NewBuilder(0)
	n, err := b.Write([]byte("payload"))
	if err != nil || n != 7 {
		t.Errorf("Write() = (%d, %v), want (7, nil)", n, err)
	}
	if string(b.Bytes()) != "payload" {
		t.Errorf("unexpected content: %q", b.Bytes())
	}
}

// ----------------------------------------------------------------------------
// Pool
// ----------------------------------------------------------------------------

func TestPoolRentHonorsSizeHint(t *testing.T) {
	p := NewPool(4, 1<<20)

	b := p.Rent(64 << 10)
	if b.Cap() < 64<<10 {
		t.Errorf("Cap() = %d, want >= %d", b.Cap(), 64<<10)
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}

	// A reused builder must also satisfy the hint
	p.Return(b)
	b2 := p.Rent(128 << 10)
	if b2.Cap() < 128<<10 {
		t.Errorf("reused Cap() = %d, want >= %d", b2.Cap(), 128<<10)
	}
}

func TestPoolReusesReturnedBuilders(t *testing.T) {
	p := NewPool(4, 1<<20)

	b := p.Rent(0)
	b.AppendString("stale content")
	p.Return(b)

	b2 := p.Rent(0)
	if b2 != b {
		t.Error("expected the returned builder to be reused")
	}
	if b2.Len() != 0 {
		t.Errorf("reused builder not reset, Len() = %d", b2.Len())
	}

	stats := p.Stats()
	if stats.Reuses != 1 || stats.Allocs != 1 {
		t.Errorf("Stats() = %+v, want 1 reuse and 1 alloc", stats)
	}
}

func TestPoolDiscardsOversizedBuilders(t *testing.T) {
	p := NewPool(4, 8<<10)

	b := p.Rent(16 << 10) // grows beyond the capacity bound
	p.Return(b)

	if p.Retained() != 0 {
		t.Errorf("Retained() = %d, want 0 after oversized return", p.Retained())
	}
	if p.Stats().Discards != 1 {
		t.Errorf("Discards = %d, want 1", p.Stats().Discards)
	}

	// A builder within the bound is retained
	p.Return(p.Rent(0))
	if p.Retained() != 1 {
		t.Errorf("Retained() = %d, want 1", p.Retained())
	}
}

func TestPoolRetentionBound(t *testing.T) {
	p := NewPool(2, 1<<20)

	builders := []*Builder{p.Rent(0), p.Rent(0), p.Rent(0), p.Rent(0)}
	for _, b := range builders {
		p.Return(b)
	}

	// Returns beyond the bound are dropped, never queued
	if p.Retained() != 2 {
		t.Errorf("Retained() = %d, want 2", p.Retained())
	}
	if p.MaxRetained() != 2 {
		t.Errorf("MaxRetained() = %d, want 2", p.MaxRetained())
	}
}

func TestPoolRentNeverBlocks(t *testing.T) {
	p := NewPool(1, 1<<20)

	// Renting with an empty retained set must allocate, not wait
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			if b := p.Rent(0); b == nil {
				t.Error("Rent returned nil")
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Rent blocked")
	}
}

func TestPoolDefaults(t *testing.T) {
	p := NewPool(0, 0)
	if p.MaxCapacity() != 1<<20 {
		t.Errorf("MaxCapacity() = %d, want %d", p.MaxCapacity(), 1<<20)
	}
	if p.MaxRetained() < 4 {
		t.Errorf("MaxRetained() = %d, want at least 4", p.MaxRetained())
	}

	p.Return(nil) // must not panic
}
