package unix

import (
	"fmt"
	"net"

	"github.com/meridiankv/meridian-go/core/common"
	"github.com/meridiankv/meridian-go/core/transport"
)

// upgradeConnection applies the socket buffer sizes to a unix domain socket
// connection. TCP options do not apply here.
func upgradeConnection(conn net.Conn, socket common.SocketConf, _ common.TCPConf) error {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return nil // Not a unix socket, nothing to upgrade
	}

	if socket.WriteBufferSize > 0 {
		if err := unixConn.SetWriteBuffer(socket.WriteBufferSize); err != nil {
			return err
		}
	}

	if socket.ReadBufferSize > 0 {
		if err := unixConn.SetReadBuffer(socket.ReadBufferSize); err != nil {
			return err
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Client Connector
// --------------------------------------------------------------------------

// connector implements the transport.IConnector interface for unix sockets
type connector struct{}

func (c *connector) GetName() string {
	return "unix"
}

func (c *connector) Connect(endpoint string) (net.Conn, error) {
	return net.Dial("unix", endpoint)
}

func (c *connector) UpgradeConnection(conn net.Conn, socket common.SocketConf, tcp common.TCPConf) error {
	return upgradeConnection(conn, socket, tcp)
}

// NewConnector creates a new unix socket client connector
func NewConnector() transport.IConnector {
	return &connector{}
}

// --------------------------------------------------------------------------
// Server Listener
// --------------------------------------------------------------------------

// listener implements the transport.IListener interface for unix sockets
type listener struct{}

func (l *listener) GetName() string {
	return "unix"
}

func (l *listener) Listen(endpoint string) (net.Listener, error) {
	ln, err := net.Listen("unix", endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create unix socket: %v", err)
	}
	return ln, nil
}

func (l *listener) UpgradeConnection(conn net.Conn, socket common.SocketConf, tcp common.TCPConf) error {
	return upgradeConnection(conn, socket, tcp)
}

// NewListener creates a new unix socket server listener
func NewListener() transport.IListener {
	return &listener{}
}
