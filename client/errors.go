package client

import (
	"errors"
	"fmt"

	"github.com/meridiankv/meridian-go/core/common"
	"github.com/meridiankv/meridian-go/core/pool"
)

// Sentinel errors returned by the SDK. Wrapped errors carry detail, match
// them with errors.Is.
var (
	// ErrDocumentNotFound is returned when the requested document does not
	// exist (or has expired).
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDocumentExists is returned by Insert when the document already
	// exists.
	ErrDocumentExists = errors.New("document already exists")

	// ErrCasMismatch is returned when a mutation carried a stale cas token.
	ErrCasMismatch = errors.New("cas mismatch")

	// ErrTimeout is returned when an operation exceeded the configured
	// timeout.
	ErrTimeout = errors.New("operation timed out")

	// ErrConnectivity is returned when no endpoint could serve the
	// operation.
	ErrConnectivity = errors.New("connectivity error")

	// ErrClusterClosed is returned for operations on a closed cluster.
	ErrClusterClosed = errors.New("cluster is closed")
)

// transportError maps pool-level failures onto the SDK's sentinel errors.
func transportError(err error) error {
	switch {
	case errors.Is(err, pool.ErrTimeout):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, pool.ErrPoolClosed):
		return fmt.Errorf("%w: %v", ErrClusterClosed, err)
	default:
		return fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
}

// statusError maps a response status onto the SDK's sentinel errors, nil for
// StatusOK.
func statusError(resp *common.Operation) error {
	switch resp.Status {
	case common.StatusOK:
		return nil
	case common.StatusNotFound:
		return ErrDocumentNotFound
	case common.StatusExists:
		return ErrDocumentExists
	case common.StatusCasMismatch:
		return ErrCasMismatch
	default:
		if resp.Err != "" {
			return fmt.Errorf("server error (%s): %s", resp.Status, resp.Err)
		}
		return fmt.Errorf("server error (%s)", resp.Status)
	}
}
