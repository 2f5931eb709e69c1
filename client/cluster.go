package client

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sync/errgroup"

	"github.com/meridiankv/meridian-go/core/builder"
	"github.com/meridiankv/meridian-go/core/common"
	"github.com/meridiankv/meridian-go/core/pool"
	"github.com/meridiankv/meridian-go/core/serializer"
	"github.com/meridiankv/meridian-go/core/telemetry"
	"github.com/meridiankv/meridian-go/core/transport/tcp"
)

var Logger = logger.GetLogger("client")

// Cluster is the entry point of the SDK. It owns one auto-scaling connection
// pool per endpoint and a shared operation builder pool. Operations are
// routed to an endpoint by hashing the fully qualified document key, so a
// key always maps to the same endpoint for a given endpoint list.
//
// A Cluster is safe for concurrent use. Bucket, Scope and Collection handles
// derived from it are cheap stateless views and may be created freely.
type Cluster struct {
	config   common.ClientConfig
	pools    []*pool.Pool
	builders *builder.Pool
	recorder *telemetry.Recorder
	closed   atomic.Bool
}

// Connect validates the configuration, dials all endpoints concurrently and
// returns a ready-to-use cluster handle. Every endpoint must yield at least
// one connection, otherwise Connect fails and cleans up.
func Connect(config common.ClientConfig, opts ...Option) (*Cluster, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := common.InitLoggers(config.LogLevel); err != nil {
		return nil, err
	}

	options := connectOptions{
		serializer: serializer.NewBinarySerializer(),
		connector:  tcp.NewConnector(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	recorder := telemetry.NewRecorder(config.MetricsEnabled)
	builders := builder.NewPool(config.Builder.MaxRetainedBuilders, config.Builder.MaxBuilderCapacity)
	recorder.RegisterBuilderGauges(
		func() float64 { return float64(builders.Retained()) },
		func() float64 { return float64(builders.Stats().Discards) },
	)

	c := &Cluster{
		config:   config,
		pools:    make([]*pool.Pool, len(config.Endpoints)),
		builders: builders,
		recorder: recorder,
	}

	// One pool per endpoint, dialed concurrently
	var g errgroup.Group
	for i, endpoint := range config.Endpoints {
		i, endpoint := i, endpoint
		g.Go(func() error {
			p, err := pool.New(endpoint, options.connector, config, options.serializer, builders, recorder)
			if err != nil {
				return err
			}
			c.pools[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, p := range c.pools {
			if p != nil {
				p.Close()
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}

	Logger.Infof("Connected to cluster with %d endpoint(s)", len(c.pools))
	return c, nil
}

// Bucket returns a handle for the named bucket.
func (c *Cluster) Bucket(name string) *Bucket {
	return &Bucket{cluster: c, name: name}
}

// ----------------------------------------------------------------------------
// Cluster-level operations
// ----------------------------------------------------------------------------

// Query runs a key-prefix scan against the addressed collection and returns
// the matching documents. The scan fans out to every endpoint because a
// prefix spans partitions.
func (c *Cluster) Query(statement string, opts *QueryOptions) (*QueryResult, error) {
	if c.closed.Load() {
		return nil, ErrClusterClosed
	}
	if opts == nil {
		opts = &QueryOptions{}
	}
	scope := opts.Scope
	if scope == "" {
		scope = DefaultScopeName
	}
	collection := opts.Collection
	if collection == "" {
		collection = DefaultCollectionName
	}

	start := time.Now()
	rows := make([][][]byte, len(c.pools))

	var g errgroup.Group
	for i, p := range c.pools {
		i, p := i, p
		g.Go(func() error {
			resp, err := p.Execute(common.NewQueryRequest(opts.Bucket, scope, collection, statement))
			if err != nil {
				return transportError(err)
			}
			if err := statusError(resp); err != nil {
				return err
			}
			rows[i] = resp.Rows
			return nil
		})
	}
	err := g.Wait()
	c.recorder.OperationDone(common.OpQuery.String(), start, err)
	if err != nil {
		return nil, err
	}

	result := &QueryResult{}
	for _, r := range rows {
		result.rows = append(result.rows, r...)
	}
	return result, nil
}

// Ping checks connectivity to every endpoint.
func (c *Cluster) Ping() error {
	if c.closed.Load() {
		return ErrClusterClosed
	}

	start := time.Now()
	var g errgroup.Group
	for _, p := range c.pools {
		p := p
		g.Go(func() error {
			resp, err := p.Execute(common.NewPingRequest())
			if err != nil {
				return transportError(err)
			}
			return statusError(resp)
		})
	}
	err := g.Wait()
	c.recorder.OperationDone(common.OpPing.String(), start, err)
	return err
}

// WriteMetrics writes the cluster's metrics in Prometheus text format. It
// writes nothing when metrics are disabled.
func (c *Cluster) WriteMetrics(w io.Writer) {
	c.recorder.WritePrometheus(w)
}

// Close shuts down all connection pools. In-flight operations fail. Close
// is idempotent.
func (c *Cluster) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, p := range c.pools {
		p.Close()
	}
	Logger.Infof("Cluster closed")
	return nil
}

// ----------------------------------------------------------------------------
// Internal routing
// ----------------------------------------------------------------------------

// execute routes one operation to the endpoint owning its key and maps
// failures onto the SDK's error taxonomy.
func (c *Cluster) execute(op *common.Operation) (*common.Operation, error) {
	if c.closed.Load() {
		return nil, ErrClusterClosed
	}

	p := c.pools[common.HashKey(op.QualifiedKey())%uint64(len(c.pools))]

	start := time.Now()
	resp, err := p.Execute(op)
	if err != nil {
		err = transportError(err)
	} else {
		err = statusError(resp)
	}
	c.recorder.OperationDone(op.OpCode.String(), start, err)

	if err != nil {
		return nil, err
	}
	return resp, nil
}
