package builder

import (
	"runtime"
	"sync/atomic"
)

// --------------------------------------------------------------------------
// Builder Pool
// --------------------------------------------------------------------------

// Pool retains a bounded number of builders for reuse. Renting beyond the
// retained set allocates fresh builders instead of blocking, and builders
// whose capacity grew beyond the configured bound are discarded on return.
// Peak retained memory is therefore bounded by
// maxCapacity x maxRetained while transient overflow for oversized
// operations stays possible.
//
// Thread-safety: all methods can be called concurrently.
type Pool struct {
	builders    chan *Builder
	maxCapacity int

	// counters for telemetry and tests
	reuses   atomic.Uint64
	allocs   atomic.Uint64
	discards atomic.Uint64
}

// Stats is a snapshot of the pool counters.
type Stats struct {
	Reuses   uint64 // rents served from the retained set
	Allocs   uint64 // rents that allocated a fresh builder
	Discards uint64 // returns dropped because the builder was oversized
	Retained int    // builders currently retained
}

// NewPool creates a builder pool that retains at most maxRetained builders
// of at most maxCapacity bytes each. Non-positive arguments select the
// defaults (4 x logical CPU count, 1 MiB).
func NewPool(maxRetained, maxCapacity int) *Pool {
	if maxRetained <= 0 {
		maxRetained = 4 * runtime.NumCPU()
	}
	if maxCapacity <= 0 {
		maxCapacity = 1 << 20
	}
	return &Pool{
		builders:    make(chan *Builder, maxRetained),
		maxCapacity: maxCapacity,
	}
}

// Rent returns a builder with capacity of at least sizeHint bytes and length
// zero. If no retained builder is available a fresh one is allocated - Rent
// never blocks.
func (p *Pool) Rent(sizeHint int) *Builder {
	select {
	case b := <-p.builders:
		p.reuses.Add(1)
		b.Reset()
		b.Grow(sizeHint)
		return b
	default:
		p.allocs.Add(1)
		return NewBuilder(sizeHint)
	}
}

// Return reclaims a builder for reuse. Builders that grew beyond the
// capacity bound are discarded so a single oversized operation cannot pin
// memory, and returns beyond the retention bound are dropped.
func (p *Pool) Return(b *Builder) {
	if b == nil {
		return
	}
	if b.Cap() > p.maxCapacity {
		p.discards.Add(1)
		return
	}
	select {
	case p.builders <- b:
	default:
		// retention bound reached, let the GC have it
	}
}

// MaxCapacity returns the largest builder capacity the pool retains.
func (p *Pool) MaxCapacity() int {
	return p.maxCapacity
}

// MaxRetained returns the maximum number of retained builders.
func (p *Pool) MaxRetained() int {
	return cap(p.builders)
}

// Retained returns the number of currently retained builders.
func (p *Pool) Retained() int {
	return len(p.builders)
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Reuses:   p.reuses.Load(),
		Allocs:   p.allocs.Load(),
		Discards: p.discards.Load(),
		Retained: p.Retained(),
	}
}
