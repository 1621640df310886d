// Package session represents a single connection lifecycle, binding a
// network connection with local line endpoints and shared context.
//
// Sessions decouple capabilities from concrete I/O sources.  A
// capability doesn't need to know whether its input lines come from
// os.Stdin or a test channel, it just uses the session's Input and
// Output.
package session

import (
	"net"
	"sync"

	"mcpnc/internal/metrics"
	"mcpnc/util"
)

// Session encapsulates the runtime context for a single connection.
// Capabilities operate on sessions rather than raw connections,
// enabling clean testing and I/O abstraction.
type Session struct {
	Conn net.Conn
	// Input carries local lines to send in-band.  A nil channel means
	// there is no local input; a closed one means it ended.
	Input <-chan string
	// Output receives the text lines the peer sends.
	Output *util.LineWriter
	// Ending terminates lines written to Conn.
	Ending  string
	Logger  *util.Logger
	Metrics *metrics.Collector

	closeOnce sync.Once
	closeErr  error
}

// New creates a Session bound to the given connection and endpoints.
func New(conn net.Conn, input <-chan string, output *util.LineWriter, logger *util.Logger) *Session {
	return &Session{
		Conn:   conn,
		Input:  input,
		Output: output,
		Ending: "\n",
		Logger: logger,
	}
}

// RemoteAddr returns the peer address, or "" without a connection.
func (s *Session) RemoteAddr() string {
	if s.Conn == nil || s.Conn.RemoteAddr() == nil {
		return ""
	}
	return s.Conn.RemoteAddr().String()
}

// Close closes the connection once.  Later calls return the first
// result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.Conn != nil {
			s.closeErr = s.Conn.Close()
		}
	})
	return s.closeErr
}
