package pool

import "time"

// ----------------------------------------------------------------------------
// Scaling state
// ----------------------------------------------------------------------------

// State describes what the pool monitor is currently doing.
type State int32

const (
	// StateFixed means NumKvConnections == MaxKvConnections, the monitor
	// only repairs connections lost at startup and never resizes
	StateFixed State = iota
	// StateIdle means demand is inside the hysteresis band
	StateIdle
	// StateScalingUp means sustained high demand was observed
	StateScalingUp
	// StateScalingDown means sustained low demand was observed
	StateScalingDown
)

func (s State) String() string {
	switch s {
	case StateFixed:
		return "fixed"
	case StateIdle:
		return "idle"
	case StateScalingUp:
		return "scaling-up"
	case StateScalingDown:
		return "scaling-down"
	default:
		return "unknown"
	}
}

// ----------------------------------------------------------------------------
// Scaling decision
// ----------------------------------------------------------------------------

// decision is the outcome of one demand sample.
type decision int

const (
	holdSteady decision = iota
	growPool
	shrinkPool
)

// Demand thresholds in mean in-flight operations per connection. A pool
// grows when demand stays above scaleUpLoad for scaleUpAfterTicks samples
// and shrinks when it stays below scaleDownLoad for scaleDownAfterTicks.
// Growing reacts faster than shrinking to avoid flapping.
const (
	scaleUpLoad         = 2.0
	scaleDownLoad       = 0.5
	scaleUpAfterTicks   = 2
	scaleDownAfterTicks = 6
)

// scaler accumulates demand samples and decides when to resize the pool.
// It holds no locks and touches no connections, which keeps it testable.
type scaler struct {
	min, max  int
	highTicks int
	lowTicks  int
}

// observe records one demand sample and returns the resize decision.
func (s *scaler) observe(size int, inFlight int64) decision {
	load := float64(inFlight) / float64(size)

	switch {
	case load > scaleUpLoad && size < s.max:
		s.highTicks++
		s.lowTicks = 0
		if s.highTicks >= scaleUpAfterTicks {
			s.highTicks = 0
			return growPool
		}
	case load < scaleDownLoad && size > s.min:
		s.lowTicks++
		s.highTicks = 0
		if s.lowTicks >= scaleDownAfterTicks {
			s.lowTicks = 0
			return shrinkPool
		}
	default:
		s.highTicks = 0
		s.lowTicks = 0
	}

	return holdSteady
}

// ----------------------------------------------------------------------------
// Pool monitor
// ----------------------------------------------------------------------------

// monitor samples demand on a fixed interval and resizes the pool. It runs
// until the pool is closed. For fixed pools it only repairs connections
// lost at startup, so the size always converges to the configured value.
func (p *Pool) monitor() {
	interval := time.Duration(p.config.Pool.ScaleIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fixed := p.config.FixedPoolSize()
	s := scaler{
		min: p.config.Pool.NumKvConnections,
		max: p.config.Pool.MaxKvConnections,
	}

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
		}

		size := p.Size()
		if size < s.min {
			// Below the floor after connection failures, repair before
			// sampling demand
			p.scaleUp()
			continue
		}
		if fixed {
			continue
		}

		switch s.observe(size, p.inFlight.Load()) {
		case growPool:
			p.scaleUp()
		case shrinkPool:
			p.scaleDown()
		default:
			p.state.Store(int32(StateIdle))
		}
	}
}

// scaleUp opens one additional connection. Fixed pools keep their state, a
// repair is not a resize.
func (p *Pool) scaleUp() {
	if !p.config.FixedPoolSize() {
		p.state.Store(int32(StateScalingUp))
	}

	c, err := newConnection(p)
	if err != nil {
		Logger.Warningf("Failed to scale up pool to %s: %v", p.endpoint, err)
		return
	}

	p.mu.Lock()
	p.conns = append(p.conns, c)
	size := len(p.conns)
	p.mu.Unlock()

	p.recorder.PoolScaled(p.endpoint, "up")
	Logger.Infof("Scaled pool to %s up to %d connections", p.endpoint, size)
}

// scaleDown removes the most recently added connection. The connection is
// taken out of rotation first and closed once its in-flight operations have
// drained (or the timeout expired).
func (p *Pool) scaleDown() {
	p.state.Store(int32(StateScalingDown))

	p.mu.Lock()
	if len(p.conns) <= p.config.Pool.NumKvConnections {
		p.mu.Unlock()
		return
	}
	c := p.conns[len(p.conns)-1]
	p.conns = p.conns[:len(p.conns)-1]
	size := len(p.conns)
	p.mu.Unlock()

	go func() {
		drain := p.timeout()
		if drain <= 0 {
			drain = 30 * time.Second
		}
		deadline := time.Now().Add(drain)
		for c.inFlight.Load() > 0 && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		c.close()
	}()

	p.recorder.PoolScaled(p.endpoint, "down")
	Logger.Infof("Scaled pool to %s down to %d connections", p.endpoint, size)
}
