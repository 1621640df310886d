package core

import (
	"context"
	"fmt"

	"mcpnc/internal/capability"
	"mcpnc/internal/metrics"
	"mcpnc/internal/session"
	"mcpnc/internal/transport"
	"mcpnc/util"
)

// ConnectMode dials a game server and runs the capability (the MCP
// endpoint) on the resulting connection, the default client mode.
type ConnectMode struct {
	Dialer     transport.Dialer
	Capability capability.Capability
	Network    string
	Address    string
	Ending     string // outgoing line terminator
	Logger     *util.Logger
	Metrics    *metrics.Collector

	stdio
}

// Run dials the remote address, creates a session, and hands it to
// the endpoint.  The dialer is closed when Run returns.
func (m *ConnectMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	m.Logger.Verbose("connecting to %s (%s)", m.Address, m.Network)

	conn, err := m.Dialer.Dial(ctx, m.Network, m.Address)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", m.Address, err)
	}

	m.Logger.Verbose("connected to %s", conn.RemoteAddr())

	sess := session.New(conn, m.readInput(ctx, m.Logger), util.NewLineWriter(m.stdout(), ""), m.Logger)
	sess.Ending = m.Ending
	sess.Metrics = m.Metrics
	return m.Capability.Handle(ctx, sess)
}
