package common

import (
	"fmt"

	"github.com/goccy/go-json"
)

// --------------------------------------------------------------------------
// Operation Structure
// --------------------------------------------------------------------------

// Operation represents a single key-value operation used for both requests
// and responses. Which fields are used depends on the opcode.
type Operation struct {
	// Type of operation
	OpCode OpCode `json:"op"`

	// Result status (responses only, StatusOK for requests)
	Status Status `json:"status,omitempty"`

	// Document address
	Bucket     string `json:"bucket,omitempty"`
	Scope      string `json:"scope,omitempty"`
	Collection string `json:"collection,omitempty"`
	Key        string `json:"key,omitempty"`

	// Document content, used for: Upsert, Insert, Replace (request),
	// Get (response) and Query rows via Rows
	Value []byte `json:"value,omitempty"`

	// ExpireIn is the number of seconds until the document expires.
	// Zero means no expiry. Used for: Upsert, Insert, Replace, Touch
	ExpireIn uint64 `json:"expire_in,omitempty"`

	// Cas is the compare-and-swap token of the document. On responses it
	// carries the document's current token, on Replace and Remove requests a
	// non-zero value makes the server reject mismatched writes.
	Cas uint64 `json:"cas,omitempty"`

	// Ok reports existence for Exists responses
	Ok bool `json:"ok,omitempty"`

	// Err is empty on success, otherwise it contains the error detail
	Err string `json:"err,omitempty"`

	// Rows contains the result documents of a Query response
	Rows [][]byte `json:"rows,omitempty"`
}

// QualifiedKey returns the fully qualified document address. It is the input
// for partition hashing and for the server-side store key.
func (op *Operation) QualifiedKey() string {
	return op.Bucket + "/" + op.Scope + "/" + op.Collection + "/" + op.Key
}

// --------------------------------------------------------------------------
// Operation Factory Functions
// --------------------------------------------------------------------------

// NewGetRequest creates a new Get request
func NewGetRequest(bucket, scope, collection, key string) *Operation {
	return &Operation{
		OpCode:     OpGet,
		Bucket:     bucket,
		Scope:      scope,
		Collection: collection,
		Key:        key,
	}
}

// NewGetResponse creates a new Get response
func NewGetResponse(value []byte, cas uint64, status Status) *Operation {
	return &Operation{
		OpCode: OpGet,
		Status: status,
		Value:  value,
		Cas:    cas,
	}
}

// NewUpsertRequest creates a new Upsert request
func NewUpsertRequest(bucket, scope, collection, key string, value []byte, expireIn uint64) *Operation {
	return &Operation{
		OpCode:     OpUpsert,
		Bucket:     bucket,
		Scope:      scope,
		Collection: collection,
		Key:        key,
		Value:      value,
		ExpireIn:   expireIn,
	}
}

// NewInsertRequest creates a new Insert request. Insert fails with
// StatusExists if the document is already present.
func NewInsertRequest(bucket, scope, collection, key string, value []byte, expireIn uint64) *Operation {
	return &Operation{
		OpCode:     OpInsert,
		Bucket:     bucket,
		Scope:      scope,
		Collection: collection,
		Key:        key,
		Value:      value,
		ExpireIn:   expireIn,
	}
}

// NewReplaceRequest creates a new Replace request. Replace fails with
// StatusNotFound if the document is missing and with StatusCasMismatch if a
// non-zero cas does not match the stored document.
func NewReplaceRequest(bucket, scope, collection, key string, value []byte, expireIn, cas uint64) *Operation {
	return &Operation{
		OpCode:     OpReplace,
		Bucket:     bucket,
		Scope:      scope,
		Collection: collection,
		Key:        key,
		Value:      value,
		ExpireIn:   expireIn,
		Cas:        cas,
	}
}

// NewMutationResponse creates a response for Upsert, Insert, Replace, Remove
// and Touch requests
func NewMutationResponse(opCode OpCode, cas uint64, status Status) *Operation {
	return &Operation{
		OpCode: opCode,
		Status: status,
		Cas:    cas,
	}
}

// NewRemoveRequest creates a new Remove request
func NewRemoveRequest(bucket, scope, collection, key string, cas uint64) *Operation {
	return &Operation{
		OpCode:     OpRemove,
		Bucket:     bucket,
		Scope:      scope,
		Collection: collection,
		Key:        key,
		Cas:        cas,
	}
}

// NewExistsRequest creates a new Exists request
func NewExistsRequest(bucket, scope, collection, key string) *Operation {
	return &Operation{
		OpCode:     OpExists,
		Bucket:     bucket,
		Scope:      scope,
		Collection: collection,
		Key:        key,
	}
}

// NewExistsResponse creates a new Exists response
func NewExistsResponse(found bool, cas uint64) *Operation {
	return &Operation{
		OpCode: OpExists,
		Status: StatusOK,
		Ok:     found,
		Cas:    cas,
	}
}

// NewTouchRequest creates a new Touch request
func NewTouchRequest(bucket, scope, collection, key string, expireIn uint64) *Operation {
	return &Operation{
		OpCode:     OpTouch,
		Bucket:     bucket,
		Scope:      scope,
		Collection: collection,
		Key:        key,
		ExpireIn:   expireIn,
	}
}

// NewQueryRequest creates a new Query request. The statement is carried in
// the Key field.
func NewQueryRequest(bucket, scope, collection, statement string) *Operation {
	return &Operation{
		OpCode:     OpQuery,
		Bucket:     bucket,
		Scope:      scope,
		Collection: collection,
		Key:        statement,
	}
}

// NewQueryResponse creates a new Query response
func NewQueryResponse(rows [][]byte, status Status) *Operation {
	return &Operation{
		OpCode: OpQuery,
		Status: status,
		Rows:   rows,
	}
}

// NewPingRequest creates a new Ping request
func NewPingRequest() *Operation {
	return &Operation{OpCode: OpPing}
}

// NewPingResponse creates a new Ping response
func NewPingResponse() *Operation {
	return &Operation{OpCode: OpPing, Status: StatusOK}
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(status Status, err string) *Operation {
	return &Operation{
		OpCode: OpError,
		Status: status,
		Err:    err,
	}
}

// --------------------------------------------------------------------------
// OpCode Definition
// --------------------------------------------------------------------------

// OpCode defines the type of a key-value operation.
type OpCode uint8

// String returns the string representation of an OpCode.
func (c OpCode) String() string {
	switch c {
	case OpGet:
		return "get"
	case OpUpsert:
		return "upsert"
	case OpInsert:
		return "insert"
	case OpReplace:
		return "replace"
	case OpRemove:
		return "remove"
	case OpExists:
		return "exists"
	case OpTouch:
		return "touch"
	case OpQuery:
		return "query"
	case OpPing:
		return "ping"
	case OpError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for OpCode.
// This allows OpCode to be serialized as a string in JSON.
func (c OpCode) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for OpCode.
// This allows OpCode to be deserialized from a string in JSON.
func (c *OpCode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "get":
		*c = OpGet
	case "upsert":
		*c = OpUpsert
	case "insert":
		*c = OpInsert
	case "replace":
		*c = OpReplace
	case "remove":
		*c = OpRemove
	case "exists":
		*c = OpExists
	case "touch":
		*c = OpTouch
	case "query":
		*c = OpQuery
	case "ping":
		*c = OpPing
	case "error":
		*c = OpError
	default:
		return fmt.Errorf("unknown opcode: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// OpCode Constants
// --------------------------------------------------------------------------

const (
	// General opcodes

	OpUnknown OpCode = iota
	OpError          // Indicates a failed operation

	// Key-value operations

	OpGet     // Get a document by key
	OpUpsert  // Insert or update a document
	OpInsert  // Insert a document, fails if it exists
	OpReplace // Replace a document, fails if it is missing
	OpRemove  // Remove a document
	OpExists  // Check whether a document exists
	OpTouch   // Update the expiry of a document

	// Service operations

	OpQuery // Scan query against a collection
	OpPing  // Connectivity check
)

// --------------------------------------------------------------------------
// Status Codes
// --------------------------------------------------------------------------

// Status is the result code of an operation response.
type Status uint8

const (
	StatusOK          Status = iota // Operation executed successfully
	StatusNotFound                  // Document not found
	StatusExists                    // Document already exists
	StatusCasMismatch               // Cas token did not match
	StatusInternal                  // Internal server error
	StatusUnsupported               // Operation not supported by the server
)

// String returns the string representation of a Status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not found"
	case StatusExists:
		return "exists"
	case StatusCasMismatch:
		return "cas mismatch"
	case StatusInternal:
		return "internal error"
	case StatusUnsupported:
		return "unsupported operation"
	default:
		return "unknown"
	}
}
