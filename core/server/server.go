package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"

	"github.com/meridiankv/meridian-go/core/builder"
	"github.com/meridiankv/meridian-go/core/common"
	"github.com/meridiankv/meridian-go/core/serializer"
	"github.com/meridiankv/meridian-go/core/transport"
)

var Logger = logger.GetLogger("server")

// Server is the single-node development server. It accepts framed key-value
// operations, executes them against an in-memory Store and writes the
// response frame back with the request's opaque id. Requests on one
// connection are processed by a bounded set of workers, so responses may
// arrive out of order.
type Server struct {
	config     common.ServerConfig
	listener   transport.IListener
	serializer serializer.IOperationSerializer
	store      *Store
	builders   *builder.Pool

	ln     net.Listener
	closed atomic.Bool
}

// New creates a development server. The store is created internally and
// lives as long as the server.
func New(config common.ServerConfig, listener transport.IListener, ser serializer.IOperationSerializer) *Server {
	return &Server{
		config:     config,
		listener:   listener,
		serializer: ser,
		store:      NewStore(),
		builders:   builder.NewPool(0, 0),
	}
}

// Store exposes the underlying document store, mainly for tests.
func (s *Server) Store() *Store {
	return s.store
}

// Addr returns the address the server is listening on, empty before Serve.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Listen binds the endpoint without accepting connections yet. Serve must
// be called afterwards. Splitting the two lets callers learn the bound
// address (e.g. with port 0) before serving.
func (s *Server) Listen() error {
	ln, err := s.listener.Listen(s.config.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to create listener: %v", err)
	}
	s.ln = ln
	return nil
}

// Serve accepts connections until Close is called. It binds the endpoint
// first if Listen was not called.
func (s *Server) Serve() error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	Logger.Infof("Starting %s server on %s with %d workers per connection",
		s.listener.GetName(), s.ln.Addr(), s.workersPerConn())

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		if err := s.listener.UpgradeConnection(conn, s.config.Socket, s.config.TCP); err != nil {
			Logger.Warningf("Failed to upgrade connection: %v", err)
			conn.Close()
			continue
		}

		go s.handleConnection(conn)
	}
}

// Close stops accepting connections and the store's sweeper. Connections
// that are currently being served finish their in-flight requests.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.store.Close()
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}

func (s *Server) workersPerConn() int {
	if s.config.WorkersPerConn < 1 {
		return 1
	}
	return s.config.WorkersPerConn
}

// ----------------------------------------------------------------------------
// Connection handling
// ----------------------------------------------------------------------------

// handleConnection reads request frames from one connection and processes
// them with a bounded worker pool.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	timeout := time.Duration(s.config.TimeoutSecond) * time.Second

	// The buffered channel acts as a counting semaphore limiting the
	// concurrent workers of this connection
	workerSemaphore := make(chan struct{}, s.workersPerConn())

	var wg sync.WaitGroup

	// Protects writes to the connection, workers finish out of order
	var connMutex sync.Mutex

	writeResponse := func(partition, opaque uint64, resp *common.Operation) {
		b := s.builders.Rent(common.FrameHeaderSize + len(resp.Value) + 64)
		defer s.builders.Return(b)

		common.BeginFrame(b)
		if err := s.serializer.Serialize(*resp, b); err != nil {
			Logger.Errorf("Failed to serialize response: %v", err)
			return
		}
		if err := common.FinishFrame(b, partition, opaque); err != nil {
			Logger.Errorf("Failed to finish response frame: %v", err)
			return
		}

		connMutex.Lock()
		defer connMutex.Unlock()

		if timeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("Failed to set write deadline: %v", err)
				return
			}
		}
		if err := common.WriteFrame(conn, b); err != nil {
			Logger.Errorf("Failed to write response: %v", err)
		}
	}

	handleRequest := func() error {
		// Read the next frame into a rented builder
		b := s.builders.Rent(common.FrameHeaderSize)
		partition, opaque, payload, err := common.ReadFrame(conn, b)
		if err != nil {
			s.builders.Return(b)
			return err
		}

		// Decode before handing off, the builder is reused immediately
		req := &common.Operation{}
		err = s.serializer.Deserialize(payload, req)
		s.builders.Return(b)
		if err != nil {
			return fmt.Errorf("failed to deserialize request: %v", err)
		}

		// Blocks when all worker slots of this connection are busy
		workerSemaphore <- struct{}{}
		wg.Add(1)

		go func() {
			defer func() {
				<-workerSemaphore
				wg.Done()
			}()

			start := time.Now()
			resp := s.dispatch(req)
			Logger.Debugf("Processed %s request %d in %s", req.OpCode, opaque, time.Since(start))

			writeResponse(partition, opaque, resp)
		}()

		return nil
	}

	for {
		err := handleRequest()

		if err == io.EOF || errors.Is(err, net.ErrClosed) {
			Logger.Debugf("Connection closed by client")
			break
		}
		if err != nil {
			if !s.closed.Load() {
				Logger.Errorf("Error handling request: %v", err)
			}
			break
		}
	}

	// Let in-progress workers finish before closing the connection
	wg.Wait()
}

// ----------------------------------------------------------------------------
// Request dispatch
// ----------------------------------------------------------------------------

// dispatch executes one operation against the store and builds the response.
func (s *Server) dispatch(req *common.Operation) *common.Operation {
	key := req.QualifiedKey()

	switch req.OpCode {
	case common.OpGet:
		value, cas, status := s.store.Get(key)
		return common.NewGetResponse(value, cas, status)

	case common.OpUpsert:
		cas, status := s.store.Upsert(key, req.Value, req.ExpireIn)
		return common.NewMutationResponse(common.OpUpsert, cas, status)

	case common.OpInsert:
		cas, status := s.store.Insert(key, req.Value, req.ExpireIn)
		return common.NewMutationResponse(common.OpInsert, cas, status)

	case common.OpReplace:
		cas, status := s.store.Replace(key, req.Value, req.ExpireIn, req.Cas)
		return common.NewMutationResponse(common.OpReplace, cas, status)

	case common.OpRemove:
		status := s.store.Remove(key, req.Cas)
		return common.NewMutationResponse(common.OpRemove, 0, status)

	case common.OpExists:
		found, cas := s.store.Exists(key)
		return common.NewExistsResponse(found, cas)

	case common.OpTouch:
		status := s.store.Touch(key, req.ExpireIn)
		return common.NewMutationResponse(common.OpTouch, 0, status)

	case common.OpQuery:
		// The statement is a key prefix within the collection, so the
		// qualified key doubles as the scan prefix
		rows := s.store.Scan(key)
		return common.NewQueryResponse(rows, common.StatusOK)

	case common.OpPing:
		return common.NewPingResponse()

	default:
		return common.NewErrorResponse(common.StatusUnsupported,
			fmt.Sprintf("unsupported operation: %s", req.OpCode))
	}
}
