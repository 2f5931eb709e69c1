package client

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/meridiankv/meridian-go/core/serializer"
	"github.com/meridiankv/meridian-go/core/transport"
)

// ----------------------------------------------------------------------------
// Connect options
// ----------------------------------------------------------------------------

// connectOptions collects the pluggable parts of a cluster connection.
type connectOptions struct {
	serializer serializer.IOperationSerializer
	connector  transport.IConnector
}

// Option customizes Connect.
type Option func(*connectOptions)

// WithSerializer overrides the wire serializer (default: binary).
func WithSerializer(s serializer.IOperationSerializer) Option {
	return func(o *connectOptions) { o.serializer = s }
}

// WithConnector overrides the transport used to dial endpoints
// (default: tcp).
func WithConnector(c transport.IConnector) Option {
	return func(o *connectOptions) { o.connector = c }
}

// ----------------------------------------------------------------------------
// Operation options
// ----------------------------------------------------------------------------

// UpsertOptions customizes Collection.Upsert.
type UpsertOptions struct {
	// ExpireIn sets the document expiry, zero means no expiry
	ExpireIn time.Duration
}

// InsertOptions customizes Collection.Insert.
type InsertOptions struct {
	ExpireIn time.Duration
}

// ReplaceOptions customizes Collection.Replace.
type ReplaceOptions struct {
	ExpireIn time.Duration

	// Cas makes the replace conditional on the stored token when non-zero
	Cas uint64
}

// RemoveOptions customizes Collection.Remove.
type RemoveOptions struct {
	// Cas makes the remove conditional on the stored token when non-zero
	Cas uint64
}

// QueryOptions addresses the collection a query runs against. Zero values
// default to the "_default" scope and collection.
type QueryOptions struct {
	Bucket     string
	Scope      string
	Collection string
}

// expirySeconds converts a duration to whole seconds on the wire, rounding
// sub-second expiries up so they never silently become "no expiry".
func expirySeconds(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	secs := uint64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}

// ----------------------------------------------------------------------------
// Results
// ----------------------------------------------------------------------------

// GetResult holds the outcome of Collection.Get.
type GetResult struct {
	value []byte
	cas   uint64
}

// Cas returns the document's current compare-and-swap token.
func (r *GetResult) Cas() uint64 { return r.cas }

// Bytes returns the raw document content.
func (r *GetResult) Bytes() []byte { return r.value }

// ContentAs decodes the document content as JSON into target.
func (r *GetResult) ContentAs(target interface{}) error {
	return json.Unmarshal(r.value, target)
}

// MutationResult holds the outcome of a successful mutation.
type MutationResult struct {
	cas uint64
}

// Cas returns the document's compare-and-swap token after the mutation.
func (r *MutationResult) Cas() uint64 { return r.cas }

// ExistsResult holds the outcome of Collection.Exists.
type ExistsResult struct {
	exists bool
	cas    uint64
}

// Exists reports whether the document exists.
func (r *ExistsResult) Exists() bool { return r.exists }

// Cas returns the document's compare-and-swap token, zero when it does not
// exist.
func (r *ExistsResult) Cas() uint64 { return r.cas }

// QueryResult holds the rows returned by Cluster.Query.
type QueryResult struct {
	rows [][]byte
}

// Rows returns the raw result documents.
func (r *QueryResult) Rows() [][]byte { return r.rows }

// RowAs decodes row i as JSON into target.
func (r *QueryResult) RowAs(i int, target interface{}) error {
	return json.Unmarshal(r.rows[i], target)
}
