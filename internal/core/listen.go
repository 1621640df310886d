package core

import (
	"context"
	"net"
	"sync"
	"time"

	"mcpnc/config"
	"mcpnc/internal/capability"
	ncerr "mcpnc/internal/errors"
	"mcpnc/internal/metrics"
	"mcpnc/internal/session"
	"mcpnc/util"
)

// ListenMode accepts inbound connections and runs the endpoint on each
// one.  With KeepOpen=true it serves every connection concurrently and
// fans stdin out to all of them; otherwise it stops listening after
// the first connection and returns when that connection ends.
type ListenMode struct {
	Address    string // "host:port"
	KeepOpen   bool
	Capability capability.Capability
	Ending     string
	Logger     *util.Logger
	Metrics    *metrics.Collector

	// GracePeriod bounds how long Run waits for open sessions after
	// ctx is done.  Zero uses config.DefaultGracePeriod.
	GracePeriod time.Duration

	// Ready, if set, is called with the bound address once listening.
	Ready func(net.Addr)

	stdio
}

// Run starts listening and dispatches accepted connections to the
// endpoint.
func (m *ListenMode) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", m.Address)
	if err != nil {
		return ncerr.Wrap("listen", m.Address, err)
	}
	defer ln.Close()

	m.Logger.Verbose("listening on %s (tcp)", ln.Addr())
	if m.Ready != nil {
		m.Ready(ln.Addr())
	}

	// Shut the listener down when the context expires.
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	out := util.NewLineWriter(m.stdout(), "")
	input := m.readInput(ctx, m.Logger)

	if !m.KeepOpen {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return ncerr.Wrap("accept", m.Address, err)
		}
		ln.Close()
		m.Logger.Verbose("connection from %s", conn.RemoteAddr())
		return m.Capability.Handle(ctx, m.session(conn, input, out))
	}

	b := session.NewBroadcast()
	go b.Run(ctx, input)

	var wg sync.WaitGroup
	defer m.drain(&wg)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return ncerr.Wrap("accept", m.Address, err)
		}

		m.Logger.Verbose("connection from %s", conn.RemoteAddr())

		lines, unsubscribe := b.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer unsubscribe()
			if err := m.Capability.Handle(ctx, m.session(conn, lines, out)); err != nil {
				m.Logger.Error("%v", err)
			}
		}()
	}
}

func (m *ListenMode) session(conn net.Conn, input <-chan string, out *util.LineWriter) *session.Session {
	sess := session.New(conn, input, out, m.Logger)
	sess.Ending = m.Ending
	sess.Metrics = m.Metrics
	return sess
}

// drain waits for open sessions, at most GracePeriod.
func (m *ListenMode) drain(wg *sync.WaitGroup) {
	grace := m.GracePeriod
	if grace == 0 {
		grace = config.DefaultGracePeriod
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		m.Logger.Warn("%d session(s) still open after %s", m.Metrics.ActiveConnections(), grace)
	}
}
