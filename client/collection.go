package client

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/meridiankv/meridian-go/core/common"
)

// Collection is the handle document operations run against. It is a cheap
// stateless view, create it once and reuse it for the process lifetime.
type Collection struct {
	scope *Scope
	name  string
}

// Name returns the collection's name.
func (c *Collection) Name() string { return c.name }

// ScopeName returns the name of the scope this collection belongs to.
func (c *Collection) ScopeName() string { return c.scope.name }

// BucketName returns the name of the bucket this collection belongs to.
func (c *Collection) BucketName() string { return c.scope.bucket.name }

// encodeContent turns the caller's value into document bytes. Byte slices
// and strings pass through untouched, everything else is encoded as JSON.
func encodeContent(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode document content: %w", err)
		}
		return data, nil
	}
}

// ----------------------------------------------------------------------------
// Document operations
// ----------------------------------------------------------------------------

// Get fetches a document.
func (c *Collection) Get(key string) (*GetResult, error) {
	resp, err := c.execute(common.NewGetRequest(c.BucketName(), c.ScopeName(), c.name, key))
	if err != nil {
		return nil, err
	}
	return &GetResult{value: resp.Value, cas: resp.Cas}, nil
}

// Upsert stores a document regardless of whether it already exists.
func (c *Collection) Upsert(key string, value interface{}, opts *UpsertOptions) (*MutationResult, error) {
	if opts == nil {
		opts = &UpsertOptions{}
	}
	content, err := encodeContent(value)
	if err != nil {
		return nil, err
	}

	resp, err := c.execute(common.NewUpsertRequest(
		c.BucketName(), c.ScopeName(), c.name, key, content, expirySeconds(opts.ExpireIn)))
	if err != nil {
		return nil, err
	}
	return &MutationResult{cas: resp.Cas}, nil
}

// Insert stores a document that must not exist yet, failing with
// ErrDocumentExists otherwise.
func (c *Collection) Insert(key string, value interface{}, opts *InsertOptions) (*MutationResult, error) {
	if opts == nil {
		opts = &InsertOptions{}
	}
	content, err := encodeContent(value)
	if err != nil {
		return nil, err
	}

	resp, err := c.execute(common.NewInsertRequest(
		c.BucketName(), c.ScopeName(), c.name, key, content, expirySeconds(opts.ExpireIn)))
	if err != nil {
		return nil, err
	}
	return &MutationResult{cas: resp.Cas}, nil
}

// Replace overwrites a document that must exist, failing with
// ErrDocumentNotFound otherwise. A non-zero Cas in opts makes the replace
// conditional and fails with ErrCasMismatch on a stale token.
func (c *Collection) Replace(key string, value interface{}, opts *ReplaceOptions) (*MutationResult, error) {
	if opts == nil {
		opts = &ReplaceOptions{}
	}
	content, err := encodeContent(value)
	if err != nil {
		return nil, err
	}

	resp, err := c.execute(common.NewReplaceRequest(
		c.BucketName(), c.ScopeName(), c.name, key, content, expirySeconds(opts.ExpireIn), opts.Cas))
	if err != nil {
		return nil, err
	}
	return &MutationResult{cas: resp.Cas}, nil
}

// Remove deletes a document that must exist. A non-zero Cas in opts makes
// the remove conditional.
func (c *Collection) Remove(key string, opts *RemoveOptions) error {
	if opts == nil {
		opts = &RemoveOptions{}
	}
	_, err := c.execute(common.NewRemoveRequest(
		c.BucketName(), c.ScopeName(), c.name, key, opts.Cas))
	return err
}

// Exists reports whether a document exists without fetching its content.
func (c *Collection) Exists(key string) (*ExistsResult, error) {
	resp, err := c.execute(common.NewExistsRequest(c.BucketName(), c.ScopeName(), c.name, key))
	if err != nil {
		return nil, err
	}
	return &ExistsResult{exists: resp.Ok, cas: resp.Cas}, nil
}

// Touch updates a document's expiry without changing its content or cas
// token. A zero duration removes the expiry.
func (c *Collection) Touch(key string, expireIn time.Duration) error {
	_, err := c.execute(common.NewTouchRequest(
		c.BucketName(), c.ScopeName(), c.name, key, expirySeconds(expireIn)))
	return err
}

func (c *Collection) execute(op *common.Operation) (*common.Operation, error) {
	return c.scope.bucket.cluster.execute(op)
}
