package pool

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sync/errgroup"

	"github.com/meridiankv/meridian-go/core/builder"
	"github.com/meridiankv/meridian-go/core/common"
	"github.com/meridiankv/meridian-go/core/serializer"
	"github.com/meridiankv/meridian-go/core/telemetry"
	"github.com/meridiankv/meridian-go/core/transport"
)

var Logger = logger.GetLogger("pool")

// retry backoff bounds for Execute
const (
	retryBaseBackoff = 50 * time.Millisecond
)

var (
	// ErrPoolClosed is returned for operations on a closed pool.
	ErrPoolClosed = errors.New("connection pool is closed")

	// ErrNoConnections is returned when the pool has no usable connection.
	ErrNoConnections = errors.New("no connections available")

	// ErrTimeout is returned when an operation exceeds the configured timeout.
	ErrTimeout = errors.New("operation timed out")
)

// Pool manages a set of multiplexed connections to a single endpoint. The
// pool starts with NumKvConnections sockets and, unless the size is fixed,
// scales between NumKvConnections and MaxKvConnections based on observed
// demand.
type Pool struct {
	endpoint   string
	connector  transport.IConnector
	config     common.ClientConfig
	serializer serializer.IOperationSerializer
	builders   *builder.Pool
	recorder   *telemetry.Recorder

	mu    sync.RWMutex
	conns []*connection

	nextConn   atomic.Uint64
	nextOpaque atomic.Uint64
	inFlight   atomic.Int64

	state  atomic.Int32
	stopCh chan struct{}
	closed atomic.Bool
}

// New creates a connection pool for one endpoint and opens the initial
// connections. At least one connection must succeed, failures of the
// remaining ones are logged and repaired by the monitor, which runs for
// fixed pools too so the size recovers to the configured floor.
func New(
	endpoint string,
	connector transport.IConnector,
	config common.ClientConfig,
	ser serializer.IOperationSerializer,
	builders *builder.Pool,
	recorder *telemetry.Recorder,
) (*Pool, error) {
	p := &Pool{
		endpoint:   endpoint,
		connector:  connector,
		config:     config,
		serializer: ser,
		builders:   builders,
		recorder:   recorder,
		stopCh:     make(chan struct{}),
	}

	// Open the initial connections concurrently
	var (
		connMu sync.Mutex
		g      errgroup.Group
	)
	for i := 0; i < config.Pool.NumKvConnections; i++ {
		g.Go(func() error {
			c, err := newConnection(p)
			if err != nil {
				Logger.Warningf("Failed to open connection to %s: %v", endpoint, err)
				return nil
			}
			connMu.Lock()
			p.conns = append(p.conns, c)
			connMu.Unlock()
			return nil
		})
	}
	g.Wait()

	if len(p.conns) == 0 {
		return nil, fmt.Errorf("failed to open any connection to %s", endpoint)
	}

	recorder.RegisterConnectionsGauge(endpoint, func() float64 {
		return float64(p.Size())
	})

	if config.FixedPoolSize() {
		p.state.Store(int32(StateFixed))
	} else {
		p.state.Store(int32(StateIdle))
	}
	go p.monitor()

	Logger.Infof("Opened pool to %s with %d connections (max %d)",
		endpoint, len(p.conns), config.Pool.MaxKvConnections)

	return p, nil
}

// timeout returns the configured per-operation timeout, zero means none.
func (p *Pool) timeout() time.Duration {
	if p.config.TimeoutSecond <= 0 {
		return 0
	}
	return time.Duration(p.config.TimeoutSecond) * time.Second
}

// ----------------------------------------------------------------------------
// Execute
// ----------------------------------------------------------------------------

// Execute sends one operation over the pool and waits for the response.
// Failed sends are retried on a freshly picked connection with exponential
// backoff. The returned Operation is owned by the caller.
func (p *Pool) Execute(op *common.Operation) (*common.Operation, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	opaque := p.nextOpaque.Add(1)
	partition := common.HashKey(op.QualifiedKey())

	retries := p.config.Pool.RetryCount
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			// Exponential backoff with jitter before each retry
			backoff := retryBaseBackoff * time.Duration(1<<(attempt-1))
			jitter := time.Duration(rand.Int63n(int64(backoff)/5+1)) - backoff/10
			select {
			case <-time.After(backoff + jitter):
			case <-p.stopCh:
				return nil, ErrPoolClosed
			}
		}

		c, err := p.acquire()
		if err != nil {
			return nil, err
		}

		resp, err := c.send(partition, opaque, op)
		p.release(c)

		if err == nil {
			return resp, nil
		}
		if errors.Is(err, ErrPoolClosed) {
			return nil, err
		}

		lastErr = err
		Logger.Debugf("Attempt %d/%d to %s failed: %v", attempt+1, retries, p.endpoint, err)
	}

	return nil, fmt.Errorf("operation failed after %d attempts: %w", retries, lastErr)
}

// acquire picks a connection round-robin and accounts it as busy.
func (p *Pool) acquire() (*connection, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n := len(p.conns)
	if n == 0 {
		return nil, ErrNoConnections
	}

	c := p.conns[p.nextConn.Add(1)%uint64(n)]
	c.inFlight.Add(1)
	p.inFlight.Add(1)
	return c, nil
}

// release undoes the accounting of acquire.
func (p *Pool) release(c *connection) {
	c.inFlight.Add(-1)
	p.inFlight.Add(-1)
}

// ----------------------------------------------------------------------------
// Introspection
// ----------------------------------------------------------------------------

// Size returns the current number of open connections.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}

// State returns the current scaling state of the pool.
func (p *Pool) State() State {
	return State(p.state.Load())
}

// InFlight returns the number of operations currently waiting for a response.
func (p *Pool) InFlight() int64 {
	return p.inFlight.Load()
}

// Endpoint returns the address this pool is connected to.
func (p *Pool) Endpoint() string {
	return p.endpoint
}

// ----------------------------------------------------------------------------
// Shutdown
// ----------------------------------------------------------------------------

// Close stops the monitor and closes all connections. Pending operations
// fail with ErrPoolClosed. Close is idempotent.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(p.stopCh)

	p.mu.Lock()
	conns := p.conns
	p.conns = nil
	p.mu.Unlock()

	for _, c := range conns {
		c.close()
	}

	Logger.Infof("Closed pool to %s", p.endpoint)
	return nil
}
