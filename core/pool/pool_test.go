package pool

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meridiankv/meridian-go/core/builder"
	"github.com/meridiankv/meridian-go/core/common"
	"github.com/meridiankv/meridian-go/core/serializer"
	"github.com/meridiankv/meridian-go/core/telemetry"
	"github.com/meridiankv/meridian-go/core/transport"
	"github.com/meridiankv/meridian-go/core/transport/tcp"
)

// ----------------------------------------------------------------------------
// Scaler (pure state machine)
// ----------------------------------------------------------------------------

func TestScalerGrowsAfterSustainedHighLoad(t *testing.T) {
	s := scaler{min: 2, max: 5}

	// First high sample only arms the counter
	if d := s.observe(2, 10); d != holdSteady {
		t.Errorf("expected holdSteady after one high sample, got %v", d)
	}

	// Second consecutive high sample triggers growth
	if d := s.observe(2, 10); d != growPool {
		t.Errorf("expected growPool after %d high samples, got %v", scaleUpAfterTicks, d)
	}
}

func TestScalerShrinksAfterSustainedLowLoad(t *testing.T) {
	s := scaler{min: 2, max: 5}

	for i := 0; i < scaleDownAfterTicks-1; i++ {
		if d := s.observe(4, 0); d != holdSteady {
			t.Fatalf("sample %d: expected holdSteady, got %v", i, d)
		}
	}
	if d := s.observe(4, 0); d != shrinkPool {
		t.Errorf("expected shrinkPool after %d low samples, got %v", scaleDownAfterTicks, d)
	}
}

func TestScalerBurstResetsCounters(t *testing.T) {
	s := scaler{min: 2, max: 5}

	// One high sample, then a normal one, then another high one: the
	// normal sample in between must reset the counter
	s.observe(2, 10)
	s.observe(2, 2)
	if d := s.observe(2, 10); d != holdSteady {
		t.Errorf("expected holdSteady after interrupted burst, got %v", d)
	}
}

func TestScalerRespectsBounds(t *testing.T) {
	s := scaler{min: 2, max: 5}

	// At the maximum, high load must not grow further
	for i := 0; i < 10; i++ {
		if d := s.observe(5, 100); d != holdSteady {
			t.Fatalf("expected holdSteady at max size, got %v", d)
		}
	}

	// At the minimum, low load must not shrink further
	for i := 0; i < 10; i++ {
		if d := s.observe(2, 0); d != holdSteady {
			t.Fatalf("expected holdSteady at min size, got %v", d)
		}
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateFixed:       "fixed",
		StateIdle:        "idle",
		StateScalingUp:   "scaling-up",
		StateScalingDown: "scaling-down",
		State(42):        "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

// ----------------------------------------------------------------------------
// Pool (against an in-process stub endpoint)
// ----------------------------------------------------------------------------

// startStubEndpoint runs a minimal key-value endpoint that answers every
// request with a canned response after the given delay. It returns the
// address to connect to and a stop function.
func startStubEndpoint(t *testing.T, delay time.Duration) (string, func()) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	ser := serializer.NewBinarySerializer()

	handleConn := func(conn net.Conn) {
		defer conn.Close()
		readBuf := builder.NewBuilder(common.FrameHeaderSize)
		writeBuf := builder.NewBuilder(common.FrameHeaderSize)

		for {
			partition, opaque, payload, err := common.ReadFrame(conn, readBuf)
			if err != nil {
				return
			}

			req := &common.Operation{}
			if err := ser.Deserialize(payload, req); err != nil {
				return
			}

			if delay > 0 {
				time.Sleep(delay)
			}

			var resp *common.Operation
			switch req.OpCode {
			case common.OpGet:
				resp = common.NewGetResponse([]byte("stub-value"), 1, common.StatusOK)
			case common.OpPing:
				resp = common.NewPingResponse()
			default:
				resp = common.NewErrorResponse(common.StatusUnsupported, "unsupported operation")
			}

			common.BeginFrame(writeBuf)
			if err := ser.Serialize(*resp, writeBuf); err != nil {
				return
			}
			if err := common.FinishFrame(writeBuf, partition, opaque); err != nil {
				return
			}
			if err := common.WriteFrame(conn, writeBuf); err != nil {
				return
			}
		}
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go handleConn(conn)
		}
	}()

	return ln.Addr().String(), func() { ln.Close() }
}

func newTestPool(t *testing.T, addr string, conf common.ClientConfig) *Pool {
	t.Helper()

	p, err := New(
		addr,
		tcp.NewConnector(),
		conf,
		serializer.NewBinarySerializer(),
		builder.NewPool(0, 0),
		telemetry.NewRecorder(false),
	)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	return p
}

func TestPoolExecuteGet(t *testing.T) {
	addr, stop := startStubEndpoint(t, 0)
	defer stop()

	conf := common.DefaultClientConfig(addr)
	p := newTestPool(t, addr, conf)
	defer p.Close()

	resp, err := p.Execute(common.NewGetRequest("travel", "_default", "_default", "hotel::1"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if resp.Status != common.StatusOK {
		t.Errorf("expected StatusOK, got %v", resp.Status)
	}
	if string(resp.Value) != "stub-value" {
		t.Errorf("expected value %q, got %q", "stub-value", resp.Value)
	}
}

func TestPoolFixedSizeNeverScales(t *testing.T) {
	addr, stop := startStubEndpoint(t, 5*time.Millisecond)
	defer stop()

	conf := common.DefaultClientConfig(addr)
	conf.Pool.NumKvConnections = 2
	conf.Pool.MaxKvConnections = 2
	conf.Pool.ScaleIntervalMs = 10

	p := newTestPool(t, addr, conf)
	defer p.Close()

	if p.State() != StateFixed {
		t.Fatalf("expected StateFixed, got %v", p.State())
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Execute(common.NewPingRequest())
		}()
	}
	wg.Wait()

	if size := p.Size(); size != 2 {
		t.Errorf("fixed pool changed size to %d", size)
	}
	if p.State() != StateFixed {
		t.Errorf("fixed pool left StateFixed: %v", p.State())
	}
}

// flakyConnector fails every second dial, simulating an endpoint that
// rejects part of the initial connection burst.
type flakyConnector struct {
	inner transport.IConnector
	dials atomic.Int64
}

func (f *flakyConnector) Connect(endpoint string) (net.Conn, error) {
	if f.dials.Add(1)%2 == 0 {
		return nil, errors.New("connection refused")
	}
	return f.inner.Connect(endpoint)
}

func (f *flakyConnector) GetName() string { return f.inner.GetName() }

func (f *flakyConnector) UpgradeConnection(conn net.Conn, socket common.SocketConf, tcpConf common.TCPConf) error {
	return f.inner.UpgradeConnection(conn, socket, tcpConf)
}

func TestPoolFixedSizeRepairsToFloor(t *testing.T) {
	addr, stop := startStubEndpoint(t, 0)
	defer stop()

	conf := common.DefaultClientConfig(addr)
	conf.Pool.NumKvConnections = 2
	conf.Pool.MaxKvConnections = 2
	conf.Pool.ScaleIntervalMs = 10

	// Exactly one of the two initial dials succeeds, the pool starts
	// below its configured size
	p, err := New(
		addr,
		&flakyConnector{inner: tcp.NewConnector()},
		conf,
		serializer.NewBinarySerializer(),
		builder.NewPool(0, 0),
		telemetry.NewRecorder(false),
	)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	defer p.Close()

	// The monitor must repair the pool back to the configured size
	deadline := time.Now().Add(2 * time.Second)
	for p.Size() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if size := p.Size(); size != 2 {
		t.Errorf("fixed pool stayed at %d connections, want 2", size)
	}
	if p.State() != StateFixed {
		t.Errorf("repair left StateFixed: %v", p.State())
	}
}

func TestPoolConcurrentOperations(t *testing.T) {
	addr, stop := startStubEndpoint(t, 0)
	defer stop()

	conf := common.DefaultClientConfig(addr)
	p := newTestPool(t, addr, conf)
	defer p.Close()

	var wg sync.WaitGroup
	errCh := make(chan error, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := p.Execute(common.NewGetRequest("travel", "_default", "_default", "hotel::1"))
			if err != nil {
				errCh <- err
				return
			}
			if string(resp.Value) != "stub-value" {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("concurrent Execute failed: %v", err)
	}

	if size := p.Size(); size > conf.Pool.MaxKvConnections {
		t.Errorf("pool grew beyond maximum: %d > %d", size, conf.Pool.MaxKvConnections)
	}
}

func TestPoolScalesUpUnderLoad(t *testing.T) {
	addr, stop := startStubEndpoint(t, 20*time.Millisecond)
	defer stop()

	conf := common.DefaultClientConfig(addr)
	conf.Pool.NumKvConnections = 1
	conf.Pool.MaxKvConnections = 3
	conf.Pool.ScaleIntervalMs = 10

	p := newTestPool(t, addr, conf)
	defer p.Close()

	// Keep sustained demand on the pool for a while
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				p.Execute(common.NewPingRequest())
			}
		}()
	}
	wg.Wait()

	size := p.Size()
	if size <= 1 {
		t.Errorf("expected pool to scale up under sustained load, size is still %d", size)
	}
	if size > 3 {
		t.Errorf("pool grew beyond maximum: %d", size)
	}
}

func TestPoolCloseFailsPendingOperations(t *testing.T) {
	addr, stop := startStubEndpoint(t, time.Second)
	defer stop()

	conf := common.DefaultClientConfig(addr)
	p := newTestPool(t, addr, conf)

	done := make(chan error, 1)
	go func() {
		_, err := p.Execute(common.NewPingRequest())
		done <- err
	}()

	// Give the operation time to get on the wire, then close underneath it
	time.Sleep(50 * time.Millisecond)
	p.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected pending operation to fail on Close")
		}
	case <-time.After(2 * time.Second):
		t.Error("pending operation did not return after Close")
	}

	if _, err := p.Execute(common.NewPingRequest()); err == nil {
		t.Error("expected Execute on closed pool to fail")
	}
}
