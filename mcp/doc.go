// Package mcp implements the MUD Client Protocol 2.1 out-of-band channel.
//
// A Connection sits between a line-oriented transport and the code that
// uses it.  Each raw line read from the peer goes through
// Connection.ProcessInput, which either hands back ordinary text or
// consumes the line as protocol traffic.  Everything the connection wants
// to write is passed, one complete line at a time, to the Sink supplied
// at construction.  The package never touches a socket.
//
// Layers (bottom -> top):
//
//	token, version  ->  Message  ->  Parser  ->  Connection  ->  packages
//
// Packages are independently versioned sub-protocols held in a Registry.
// The registry created by NewRegistry always contains the negotiation
// package (mcp-negotiate) and the cord package (mcp-cord).
//
// A Connection is not safe for concurrent use.  Drive it from a single
// goroutine per transport.  A Registry may be shared by any number of
// connections.
package mcp
