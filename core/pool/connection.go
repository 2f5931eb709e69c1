package pool

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/meridiankv/meridian-go/core/builder"
	"github.com/meridiankv/meridian-go/core/common"
)

// reconnect backoff bounds
const (
	reconnectBaseBackoff = 50 * time.Millisecond
	reconnectMaxBackoff  = 5 * time.Second
)

// result contains the outcome of one request. When payload is non-nil the
// receiver owns it and must return it to the builder pool after decoding.
type result struct {
	payload *builder.Builder
	err     error
}

// connection is a single long-lived socket that multiplexes many in-flight
// operations. Requests are correlated to responses via the opaque id in the
// frame header; a background reader goroutine distributes responses to the
// waiting callers.
type connection struct {
	conn     atomic.Value // holds net.Conn, replaced on reconnect
	endpoint string
	stopCh   chan struct{} // Close signal for the reader goroutine
	pending  *xsync.MapOf[uint64, chan result]
	writeMu  sync.Mutex // Serializes writes and reconnects
	inFlight atomic.Int64
	closed   atomic.Bool
	parent   *Pool
}

// newConnection dials the endpoint and starts the reader goroutine.
func newConnection(p *Pool) (*connection, error) {
	c := &connection{
		endpoint: p.endpoint,
		stopCh:   make(chan struct{}),
		pending:  xsync.NewMapOf[uint64, chan result](),
		parent:   p,
	}

	if err := c.dial(); err != nil {
		return nil, err
	}

	go c.readResponses()
	return c, nil
}

// dial establishes (or re-establishes) the underlying socket.
func (c *connection) dial() error {
	conn, err := c.parent.connector.Connect(c.endpoint)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %v", c.endpoint, err)
	}

	// Apply protocol-specific settings to the new socket
	if err := c.parent.connector.UpgradeConnection(conn, c.parent.config.Socket, c.parent.config.TCP); err != nil {
		conn.Close()
		return fmt.Errorf("failed to upgrade connection to %s: %v", c.endpoint, err)
	}

	c.conn.Store(conn)
	return nil
}

// netConn returns the current socket, nil while disconnected.
func (c *connection) netConn() net.Conn {
	v := c.conn.Load()
	if v == nil {
		return nil
	}
	return v.(net.Conn)
}

// send writes one request frame and waits for the matching response or the
// configured timeout. The returned Operation is fully owned by the caller.
func (c *connection) send(partition, opaque uint64, op *common.Operation) (*common.Operation, error) {
	if c.closed.Load() {
		return nil, ErrPoolClosed
	}

	timeout := c.parent.timeout()

	// Create a channel for the response and register the request
	respCh := make(chan result, 1)
	c.pending.Store(opaque, respCh)

	// Ensure we clean up when done
	defer c.pending.Delete(opaque)

	// Build the frame in a rented builder
	b := c.parent.builders.Rent(common.FrameHeaderSize + len(op.Key) + len(op.Value) + 64)
	common.BeginFrame(b)
	if err := c.parent.serializer.Serialize(*op, b); err != nil {
		c.parent.builders.Return(b)
		return nil, fmt.Errorf("failed to serialize request: %v", err)
	}
	if err := common.FinishFrame(b, partition, opaque); err != nil {
		c.parent.builders.Return(b)
		return nil, err
	}

	nc := c.netConn()
	if nc == nil {
		c.parent.builders.Return(b)
		return nil, fmt.Errorf("connection to %s is down", c.endpoint)
	}

	// Lock the connection only for writing
	c.writeMu.Lock()
	if timeout > 0 {
		nc.SetWriteDeadline(time.Now().Add(timeout))
	}
	err := common.WriteFrame(nc, b)
	c.writeMu.Unlock()

	// The request frame is on the wire (or failed), either way the builder
	// can go back to the pool
	c.parent.builders.Return(b)

	if err != nil {
		return nil, err
	}

	// Wait for response, timeout or shutdown
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case res := <-respCh:
		if res.err != nil {
			return nil, res.err
		}
		resp := &common.Operation{}
		err := c.parent.serializer.Deserialize(res.payload.Bytes(), resp)
		c.parent.builders.Return(res.payload)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize response: %v", err)
		}
		return resp, nil
	case <-timeoutCh:
		return nil, ErrTimeout
	case <-c.stopCh:
		return nil, ErrPoolClosed
	}
}

// readResponses reads frames in a loop and distributes them to waiting
// requests. On a read error all pending requests fail and the connection is
// re-established with capped exponential backoff.
func (c *connection) readResponses() {
	for {
		// Check if we should stop
		select {
		case <-c.stopCh:
			return
		default:
		}

		nc := c.netConn()
		if nc == nil {
			if !c.reconnect() {
				return
			}
			continue
		}

		// Read the next response frame into a rented builder
		b := c.parent.builders.Rent(common.FrameHeaderSize)
		_, opaque, _, err := common.ReadFrame(nc, b)

		if err != nil {
			c.parent.builders.Return(b)

			if c.closed.Load() {
				return
			}

			Logger.Warningf("Read error on connection to %s: %v", c.endpoint, err)
			c.failPending(fmt.Errorf("connection error: %v", err))

			if !c.reconnect() {
				return
			}
			continue
		}

		// Find the corresponding request channel
		respCh, found := c.pending.Load(opaque)
		if !found {
			// The waiter gave up (timeout) before the response arrived
			Logger.Debugf("Received response for unknown request id %d", opaque)
			c.parent.builders.Return(b)
			continue
		}

		select {
		case respCh <- result{payload: b}:
		default:
			// Waiter already timed out between lookup and send
			c.parent.builders.Return(b)
		}
	}
}

// failPending delivers an error to every waiting request.
func (c *connection) failPending(err error) {
	c.pending.Range(func(opaque uint64, respCh chan result) bool {
		select {
		case respCh <- result{err: err}:
		default:
		}
		return true
	})
}

// reconnect re-establishes the socket with capped exponential backoff.
// Returns false when the connection was closed while retrying.
func (c *connection) reconnect() bool {
	if old := c.netConn(); old != nil {
		old.Close()
	}

	backoff := reconnectBaseBackoff
	for {
		if c.closed.Load() {
			return false
		}

		c.writeMu.Lock()
		err := c.dial()
		c.writeMu.Unlock()

		if err == nil {
			Logger.Infof("Reconnected to %s", c.endpoint)
			c.parent.recorder.Reconnect(c.endpoint)
			return true
		}

		Logger.Warningf("Failed to reconnect to %s: %v (retrying in %s)", c.endpoint, err, backoff)

		select {
		case <-c.stopCh:
			return false
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > reconnectMaxBackoff {
			backoff = reconnectMaxBackoff
		}
	}
}

// close shuts the connection down and fails all pending requests.
func (c *connection) close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	close(c.stopCh)
	if nc := c.netConn(); nc != nil {
		nc.Close()
	}
	c.failPending(ErrPoolClosed)
}
