package tcp

import (
	"fmt"
	"net"
	"time"

	"github.com/meridiankv/meridian-go/core/common"
	"github.com/meridiankv/meridian-go/core/transport"
)

// upgradeConnection applies performance optimizations to a TCP connection
// using configuration values from TCPConf and SocketConf. Shared by the
// client connector and the server listener.
func upgradeConnection(conn net.Conn, socket common.SocketConf, tcp common.TCPConf) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil // Not a TCP connection, nothing to upgrade
	}

	// Disable Nagle's algorithm (TCPNoDelay) if configured
	if err := tcpConn.SetNoDelay(tcp.TCPNoDelay); err != nil {
		return err
	}

	// Set socket write buffer size if configured
	if socket.WriteBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(socket.WriteBufferSize); err != nil {
			return err
		}
	}

	// Set socket read buffer size if configured
	if socket.ReadBufferSize > 0 {
		if err := tcpConn.SetReadBuffer(socket.ReadBufferSize); err != nil {
			return err
		}
	}

	// Enable TCP keep-alive if configured
	if tcp.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		if err := tcpConn.SetKeepAlivePeriod(time.Duration(tcp.TCPKeepAliveSec) * time.Second); err != nil {
			return err
		}
	}

	// Set TCP linger option if configured
	if tcp.TCPLingerSec > 0 {
		if err := tcpConn.SetLinger(tcp.TCPLingerSec); err != nil {
			return err
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Client Connector
// --------------------------------------------------------------------------

// connector implements the transport.IConnector interface for TCP sockets
type connector struct{}

func (c *connector) GetName() string {
	return "tcp"
}

func (c *connector) Connect(endpoint string) (net.Conn, error) {
	return net.Dial("tcp", endpoint)
}

func (c *connector) UpgradeConnection(conn net.Conn, socket common.SocketConf, tcp common.TCPConf) error {
	return upgradeConnection(conn, socket, tcp)
}

// NewConnector creates a new TCP client connector
func NewConnector() transport.IConnector {
	return &connector{}
}

// --------------------------------------------------------------------------
// Server Listener
// --------------------------------------------------------------------------

// listener implements the transport.IListener interface for TCP sockets
type listener struct{}

func (l *listener) GetName() string {
	return "tcp"
}

func (l *listener) Listen(endpoint string) (net.Listener, error) {
	ln, err := net.Listen("tcp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create tcp socket: %v", err)
	}
	return ln, nil
}

func (l *listener) UpgradeConnection(conn net.Conn, socket common.SocketConf, tcp common.TCPConf) error {
	return upgradeConnection(conn, socket, tcp)
}

// NewListener creates a new TCP server listener
func NewListener() transport.IListener {
	return &listener{}
}
