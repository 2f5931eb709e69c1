package transport

import (
	"net"

	"github.com/meridiankv/meridian-go/core/common"
)

// --------------------------------------------------------------------------
// Client Side
// --------------------------------------------------------------------------

// IConnector defines the transport-specific dial operations used by the
// connection pool. Implementations exist for tcp and unix sockets.
type IConnector interface {
	// Connect establishes a single connection to the given endpoint
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an
	// established connection
	UpgradeConnection(conn net.Conn, socket common.SocketConf, tcp common.TCPConf) error
}

// --------------------------------------------------------------------------
// Server Side
// --------------------------------------------------------------------------

// IListener defines the transport-specific listen operations used by the
// development server.
type IListener interface {
	// Listen creates a listener on the given endpoint and returns it
	Listen(endpoint string) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted
	// connection
	UpgradeConnection(conn net.Conn, socket common.SocketConf, tcp common.TCPConf) error
}
