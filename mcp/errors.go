package mcp

import "errors"

// Discard reasons.  The protocol never fails a connection because of peer
// input; offending lines are dropped and the reason is reported through
// Hooks.OnDiscard and the debug log.
var (
	ErrMalformedVersion  = errors.New("mcp: malformed version")
	ErrNoSharedVersion   = errors.New("mcp: no shared version")
	ErrVersionOutOfRange = errors.New("mcp: version out of range")
	ErrNotAuthenticated  = errors.New("mcp: no authentication key established")
	ErrBadAuthKey        = errors.New("mcp: authentication key mismatch")
	ErrMalformedLine     = errors.New("mcp: malformed line")
	ErrUnknownTag        = errors.New("mcp: unknown data tag")
	ErrMissingDataTag    = errors.New("mcp: multiline message without _data_tag")
	ErrUnknownPackage    = errors.New("mcp: unknown package")
	ErrUnroutable        = errors.New("mcp: no negotiated package for message")
	ErrMissingField      = errors.New("mcp: missing field")
	ErrUnknownCord       = errors.New("mcp: unknown cord")
	ErrUnknownCordType   = errors.New("mcp: unknown cord type")
)

// Programming errors.  These are returned to the caller.
var (
	ErrDuplicateCordHandler = errors.New("mcp: cord handler already registered")
	ErrDuplicatePackage     = errors.New("mcp: package already registered")
)
