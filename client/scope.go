package client

// Scope groups collections within a bucket. The handle is a cheap stateless
// view, create it once and reuse it.
type Scope struct {
	bucket *Bucket
	name   string
}

// Name returns the scope's name.
func (s *Scope) Name() string { return s.name }

// BucketName returns the name of the bucket this scope belongs to.
func (s *Scope) BucketName() string { return s.bucket.name }

// Collection returns a handle for the named collection.
func (s *Scope) Collection(name string) *Collection {
	return &Collection{scope: s, name: name}
}
