package capability

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	ncerr "mcpnc/internal/errors"
	"mcpnc/internal/session"
	"mcpnc/mcp"
	"mcpnc/util"
)

// Endpoint speaks MCP over a session.  Each Handle call runs one event
// loop goroutine that exclusively owns its mcp.Connection: lines from
// the peer and lines from Session.Input arrive on channels and are
// applied to the connection one at a time.
//
// Peer text is written to Session.Output; local input is sent in-band
// and escaped when it looks like protocol traffic.  The end of local
// input does not close the connection.
type Endpoint struct {
	Registry *mcp.Registry
	Role     mcp.Role
	// IdleTimeout ends the session when the peer sends nothing for that
	// long.  Zero disables it.
	IdleTimeout time.Duration
	// OnNegotiated runs on the event loop once the peer has ended
	// package negotiation.
	OnNegotiated func(c *mcp.Connection)
}

var _ Capability = (*Endpoint)(nil)

// ErrIdleTimeout is returned when the peer stays silent past
// IdleTimeout.
var ErrIdleTimeout = errors.New("idle timeout")

// Handle runs the connection until the peer disconnects, a write fails
// or ctx is done.  The session is closed on return.
func (e *Endpoint) Handle(ctx context.Context, sess *session.Session) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer sess.Close()

	addr := sess.RemoteAddr()
	wire := util.NewLineWriter(sess.Conn, sess.Ending)
	sink := func(line string) {
		if wire.WriteLine(line) == nil {
			sess.Metrics.LineSent()
		}
	}

	var conn *mcp.Connection
	hooks := mcp.Hooks{
		OnDiscard: func(_ string, reason error) {
			sess.Metrics.Discarded(reason)
		},
		OnDispatch: func(pkg string, _ *mcp.Message) {
			sess.Metrics.MessageDispatched(pkg)
		},
		OnNegotiated: func() {
			sess.Metrics.Negotiated()
			if e.OnNegotiated != nil {
				e.OnNegotiated(conn)
			}
		},
	}

	sess.Metrics.ConnectionOpened()
	defer sess.Metrics.ConnectionClosed()

	conn = mcp.NewConnection(e.Registry, sink, e.Role,
		mcp.WithLogger(sess.Logger), mcp.WithHooks(hooks))
	sess.Logger.Verbose("MCP %s session %s with %s", e.Role, conn.ID(), addr)

	remote := make(chan string)
	readErr := make(chan error, 1)
	e.touch(sess)
	go func() { readErr <- util.ReadLines(ctx, sess.Conn, remote) }()

	input := sess.Input
	for {
		if err := wire.Err(); err != nil {
			if util.IsHarmless(err) {
				return nil
			}
			return ncerr.Wrap("write", addr, err)
		}

		select {
		case <-ctx.Done():
			return nil

		case line, ok := <-remote:
			if !ok {
				return e.readDone(sess, addr, <-readErr)
			}
			e.touch(sess)
			text, isText := conn.ProcessInput(line)
			sess.Metrics.LineReceived(isText)
			if isText && sess.Output != nil {
				if err := sess.Output.WriteLine(text); err != nil {
					return fmt.Errorf("output: %w", err)
				}
			}

		case line, ok := <-input:
			if !ok {
				sess.Logger.Debug("local input ended; still reading from %s", addr)
				input = nil
				continue
			}
			conn.WriteInband(line)
		}
	}
}

// touch pushes the read deadline forward.
func (e *Endpoint) touch(sess *session.Session) {
	if e.IdleTimeout > 0 {
		sess.Conn.SetReadDeadline(time.Now().Add(e.IdleTimeout)) //nolint:errcheck
	}
}

func (e *Endpoint) readDone(sess *session.Session, addr string, err error) error {
	switch {
	case err == nil:
		sess.Logger.Verbose("connection closed by %s", addr)
		return nil
	case errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Errorf("%s: %w after %s", addr, ErrIdleTimeout, e.IdleTimeout)
	default:
		return ncerr.Wrap("read", addr, err)
	}
}
