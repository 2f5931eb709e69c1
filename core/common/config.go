package common

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	// DefaultNumKvConnections is the minimum (and initial) number of
	// connections a pool keeps open per endpoint.
	DefaultNumKvConnections = 2

	// DefaultMaxKvConnections is the maximum number of connections a pool
	// scales up to per endpoint.
	DefaultMaxKvConnections = 5

	// DefaultMaxBuilderCapacity is the largest builder (in bytes) the
	// builder pool retains. Builders that grew beyond this are released to
	// the garbage collector instead.
	DefaultMaxBuilderCapacity = 1 << 20 // 1 MiB

	// DefaultTimeoutSecond is the overall key-value operation timeout.
	DefaultTimeoutSecond = 10

	// DefaultRetryCount is how often a failed send is retried.
	DefaultRetryCount = 3

	// DefaultScaleIntervalMs is how often the pool samples demand to decide
	// whether to scale up or down.
	DefaultScaleIntervalMs = 500
)

// DefaultMaxRetainedBuilders returns the default retention bound of the
// builder pool: four builders per logical CPU.
func DefaultMaxRetainedBuilders() int {
	return 4 * runtime.NumCPU()
}

// --------------------------------------------------------------------------
// Shared socket configuration
// --------------------------------------------------------------------------

// SocketConf holds generic socket tuning options used by all stream
// transports.
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds TCP-specific tuning options, ignored by other transports.
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// --------------------------------------------------------------------------
// Client configuration structs
// --------------------------------------------------------------------------

// PoolConf configures the key-value connection pool of one endpoint.
// Setting NumKvConnections == MaxKvConnections fixes the pool size and
// disables adaptive scaling.
type PoolConf struct {
	// NumKvConnections is the minimum number of open connections (min 1)
	NumKvConnections int
	// MaxKvConnections is the maximum number of open connections
	MaxKvConnections int
	// ScaleIntervalMs is the demand sampling interval of the pool monitor
	ScaleIntervalMs int
	// RetryCount is how often a failed send is retried (with backoff)
	RetryCount int
}

// BuilderConf configures the operation builder pool.
type BuilderConf struct {
	// MaxBuilderCapacity is the largest builder (bytes) that is retained
	MaxBuilderCapacity int
	// MaxRetainedBuilders is the maximum number of retained builders.
	// Zero means 4 x logical CPU count.
	MaxRetainedBuilders int
}

// ClientConfig holds all configuration parameters for a cluster client.
type ClientConfig struct {
	// Endpoints are the addresses of the key-value service nodes
	Endpoints []string

	// TimeoutSecond is the overall per-operation timeout
	TimeoutSecond int

	Pool    PoolConf
	Builder BuilderConf
	Socket  SocketConf
	TCP     TCPConf

	// MetricsEnabled toggles client side metrics collection
	MetricsEnabled bool

	// LogLevel is the level at which logs are emitted (debug, info, warn, error)
	LogLevel string
}

// DefaultClientConfig returns a ClientConfig with the documented defaults.
func DefaultClientConfig(endpoints ...string) ClientConfig {
	return ClientConfig{
		Endpoints:     endpoints,
		TimeoutSecond: DefaultTimeoutSecond,
		Pool: PoolConf{
			NumKvConnections: DefaultNumKvConnections,
			MaxKvConnections: DefaultMaxKvConnections,
			ScaleIntervalMs:  DefaultScaleIntervalMs,
			RetryCount:       DefaultRetryCount,
		},
		Builder: BuilderConf{
			MaxBuilderCapacity:  DefaultMaxBuilderCapacity,
			MaxRetainedBuilders: DefaultMaxRetainedBuilders(),
		},
		TCP: TCPConf{
			TCPNoDelay: true,
		},
		MetricsEnabled: true,
		LogLevel:       "info",
	}
}

// Validate normalizes the configuration and reports invalid combinations.
func (c *ClientConfig) Validate() error {
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}
	if c.Pool.NumKvConnections < 1 {
		c.Pool.NumKvConnections = DefaultNumKvConnections
	}
	if c.Pool.MaxKvConnections < c.Pool.NumKvConnections {
		return fmt.Errorf("max kv connections (%d) must not be smaller than num kv connections (%d)",
			c.Pool.MaxKvConnections, c.Pool.NumKvConnections)
	}
	if c.Pool.ScaleIntervalMs <= 0 {
		c.Pool.ScaleIntervalMs = DefaultScaleIntervalMs
	}
	if c.Builder.MaxBuilderCapacity <= 0 {
		c.Builder.MaxBuilderCapacity = DefaultMaxBuilderCapacity
	}
	if c.Builder.MaxRetainedBuilders <= 0 {
		c.Builder.MaxRetainedBuilders = DefaultMaxRetainedBuilders()
	}
	return nil
}

// FixedPoolSize reports whether adaptive scaling is disabled.
func (c *ClientConfig) FixedPoolSize() bool {
	return c.Pool.NumKvConnections == c.Pool.MaxKvConnections
}

// String returns a formatted string representation of the configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-26s: %s\n", name, value))
	}

	addSection("Client")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Metrics", strconv.FormatBool(c.MetricsEnabled))
	addField("Log Level", c.LogLevel)

	addSection("Connection Pool")
	addField("Num KV Connections", strconv.Itoa(c.Pool.NumKvConnections))
	addField("Max KV Connections", strconv.Itoa(c.Pool.MaxKvConnections))
	addField("Scale Interval", fmt.Sprintf("%d ms", c.Pool.ScaleIntervalMs))
	addField("Retry Count", strconv.Itoa(c.Pool.RetryCount))
	addField("Adaptive Scaling", strconv.FormatBool(!c.FixedPoolSize()))

	addSection("Builder Pool")
	addField("Max Builder Capacity", fmt.Sprintf("%d bytes", c.Builder.MaxBuilderCapacity))
	addField("Max Retained Builders", strconv.Itoa(c.Builder.MaxRetainedBuilders))

	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for the single-node
// development server.
type ServerConfig struct {
	// Endpoint is the address the server listens on
	Endpoint string

	// TimeoutSecond is the per-connection read/write deadline
	TimeoutSecond int

	// WorkersPerConn limits concurrent request handling per connection
	WorkersPerConn int

	Socket SocketConf
	TCP    TCPConf

	// Logging configuration
	LogLevel string
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig(endpoint string) ServerConfig {
	return ServerConfig{
		Endpoint:       endpoint,
		TimeoutSecond:  DefaultTimeoutSecond,
		WorkersPerConn: runtime.NumCPU(),
		TCP: TCPConf{
			TCPNoDelay: true,
		},
		LogLevel: "info",
	}
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-26s: %s\n", name, value))
	}

	addSection("Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers Per Connection", strconv.Itoa(c.WorkersPerConn))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
