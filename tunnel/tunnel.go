// Package tunnel carries game connections through an SSH gateway using
// golang.org/x/crypto/ssh.  Some MUDs are only reachable from a bastion
// host, so connect mode can dial through a "direct-tcpip" channel
// instead of a plain socket.
package tunnel

import (
	"context"
	"net"
)

// Tunnel abstracts an encrypted channel through which TCP connections
// can be forwarded.
type Tunnel interface {
	// Connect establishes the tunnel to the gateway.
	Connect(ctx context.Context) error

	// Dial opens a connection to address through the tunnel.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close tears down the tunnel and frees resources.
	Close() error

	// IsAlive reports whether the underlying connection is still up.
	IsAlive() bool
}
