package client

// Names of the scope and collection every bucket starts out with.
const (
	DefaultScopeName      = "_default"
	DefaultCollectionName = "_default"
)

// Bucket is a named keyspace within a cluster. The handle is a cheap
// stateless view, create it once and reuse it.
type Bucket struct {
	cluster *Cluster
	name    string
}

// Name returns the bucket's name.
func (b *Bucket) Name() string { return b.name }

// Scope returns a handle for the named scope.
func (b *Bucket) Scope(name string) *Scope {
	return &Scope{bucket: b, name: name}
}

// DefaultScope returns a handle for the bucket's default scope.
func (b *Bucket) DefaultScope() *Scope {
	return b.Scope(DefaultScopeName)
}

// Collection returns a handle for the named collection in the default scope.
func (b *Bucket) Collection(name string) *Collection {
	return b.DefaultScope().Collection(name)
}

// DefaultCollection returns a handle for the default collection in the
// default scope.
func (b *Bucket) DefaultCollection() *Collection {
	return b.DefaultScope().Collection(DefaultCollectionName)
}
