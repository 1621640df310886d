// Package core is the orchestration layer.  It composes transports
// and the MCP endpoint capability into complete operational modes and
// provides a builder that selects the right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	mcp  →  transport  →  session  →  capability  →  core  →  cmd (CLI)
//
// Connect mode dials a game server and plays the MCP client role.
// Listen mode accepts connections and plays the server role, one
// mcp.Connection per socket, all sharing one mcp.Registry.
package core

import (
	"context"
	"io"
	"os"

	"mcpnc/util"
)

// Mode represents a complete operational mode of mcpnc (connect or
// listen).  Each mode owns its full lifecycle from connection
// establishment to teardown.
type Mode interface {
	Run(ctx context.Context) error
}

// stdio holds the local endpoints shared by both modes.  Nil fields
// fall back to os.Stdin and os.Stdout; tests override them.
type stdio struct {
	Stdin  io.Reader
	Stdout io.Writer
}

func (s stdio) stdin() io.Reader {
	if s.Stdin != nil {
		return s.Stdin
	}
	return os.Stdin
}

func (s stdio) stdout() io.Writer {
	if s.Stdout != nil {
		return s.Stdout
	}
	return os.Stdout
}

// readInput starts a goroutine splitting stdin into lines.  A read
// error is logged; the channel closes either way.
func (s stdio) readInput(ctx context.Context, logger *util.Logger) <-chan string {
	lines := make(chan string)
	go func() {
		if err := util.ReadLines(ctx, s.stdin(), lines); err != nil {
			logger.Warn("reading stdin: %v", err)
		}
	}()
	return lines
}
