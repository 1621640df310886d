// Package transport provides abstractions for network connection
// establishment.  Transports handle how a socket to the game server is
// obtained (plain TCP or through an SSH gateway) independent of the MCP
// traffic that then runs over it, which is the capability layer's job.
package transport

import (
	"context"
	"net"

	"mcpnc/config"
	"mcpnc/internal/metrics"
	"mcpnc/tunnel"
	"mcpnc/util"
)

// Dialer opens outbound network connections.  Implementations include
// a plain TCP dialer and an SSH-tunnelled dialer that routes traffic
// through an encrypted gateway.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}

// New returns the dialer cfg asks for, wrapped in a retrying dialer
// when cfg.Retries is positive.
func New(cfg *config.Config, logger *util.Logger, m *metrics.Collector) Dialer {
	var d Dialer
	if cfg.TunnelEnabled {
		d = NewSSHDialer(SSHConfigFrom(cfg), logger)
	} else {
		d = &TCPDialer{Timeout: cfg.Timeout, LocalPort: cfg.LocalPort}
	}
	if cfg.Retries > 0 {
		d = NewRetryDialer(d, cfg.Retries, logger, m)
	}
	return d
}

// SSHConfigFrom maps the tunnel settings of cfg onto a tunnel config.
func SSHConfigFrom(cfg *config.Config) *tunnel.SSHConfig {
	return &tunnel.SSHConfig{
		User:          cfg.TunnelUser,
		Host:          cfg.TunnelHost,
		Port:          cfg.TunnelPort,
		KeyPath:       cfg.SSHKeyPath,
		PromptPass:    cfg.SSHPassword,
		UseAgent:      cfg.UseSSHAgent,
		StrictHostKey: cfg.StrictHostKey,
		KnownHosts:    cfg.KnownHostsPath,
		ConnTimeout:   cfg.Timeout,
	}
}
