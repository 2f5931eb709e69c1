package common

import (
	"strings"
	"testing"
)

func TestDefaultClientConfig(t *testing.T) {
	c := DefaultClientConfig("db1:4440")

	if c.Pool.NumKvConnections != DefaultNumKvConnections {
		t.Errorf("NumKvConnections = %d, want %d", c.Pool.NumKvConnections, DefaultNumKvConnections)
	}
	if c.Pool.MaxKvConnections != DefaultMaxKvConnections {
		t.Errorf("MaxKvConnections = %d, want %d", c.Pool.MaxKvConnections, DefaultMaxKvConnections)
	}
	if c.Builder.MaxBuilderCapacity != DefaultMaxBuilderCapacity {
		t.Errorf("MaxBuilderCapacity = %d, want %d", c.Builder.MaxBuilderCapacity, DefaultMaxBuilderCapacity)
	}
	if c.Builder.MaxRetainedBuilders != DefaultMaxRetainedBuilders() {
		t.Errorf("MaxRetainedBuilders = %d, want %d", c.Builder.MaxRetainedBuilders, DefaultMaxRetainedBuilders())
	}
	if c.FixedPoolSize() {
		t.Error("default config must enable adaptive scaling")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestClientConfigValidate(t *testing.T) {
	// No endpoints
	c := DefaultClientConfig()
	if err := c.Validate(); err == nil {
		t.Error("expected error without endpoints")
	}

	// Max below min
	c = DefaultClientConfig("db1:4440")
	c.Pool.NumKvConnections = 5
	c.Pool.MaxKvConnections = 2
	if err := c.Validate(); err == nil {
		t.Error("expected error for max < min")
	}

	// Non-positive values are normalized to defaults
	c = DefaultClientConfig("db1:4440")
	c.Pool.NumKvConnections = 0
	c.Pool.ScaleIntervalMs = -1
	c.Builder.MaxBuilderCapacity = 0
	c.Builder.MaxRetainedBuilders = 0
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if c.Pool.NumKvConnections != DefaultNumKvConnections {
		t.Errorf("NumKvConnections = %d, want default", c.Pool.NumKvConnections)
	}
	if c.Pool.ScaleIntervalMs != DefaultScaleIntervalMs {
		t.Errorf("ScaleIntervalMs = %d, want default", c.Pool.ScaleIntervalMs)
	}
	if c.Builder.MaxBuilderCapacity != DefaultMaxBuilderCapacity {
		t.Errorf("MaxBuilderCapacity = %d, want default", c.Builder.MaxBuilderCapacity)
	}
}

func TestFixedPoolSize(t *testing.T) {
	c := DefaultClientConfig("db1:4440")
	c.Pool.NumKvConnections = 3
	c.Pool.MaxKvConnections = 3
	if !c.FixedPoolSize() {
		t.Error("min == max must fix the pool size")
	}
}

func TestConfigString(t *testing.T) {
	c := DefaultClientConfig("db1:4440", "db2:4440")
	s := c.String()
	for _, want := range []string{"CONNECTION POOL", "BUILDER POOL", "db1:4440", "db2:4440"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() missing %q", want)
		}
	}

	sc := DefaultServerConfig("0.0.0.0:4440")
	if !strings.Contains(sc.String(), "0.0.0.0:4440") {
		t.Error("ServerConfig.String() missing endpoint")
	}
}
