package mcp

import (
	"crypto/rand"
	"encoding/base64"
	"io"
)

// tokenBytes is the amount of randomness in every token.  Nine bytes
// encode to exactly twelve characters with no padding.
const tokenBytes = 9

// tokenSource is swapped in tests.
var tokenSource io.Reader = rand.Reader

// NewToken returns a fresh, unguessable, URL-safe identifier.  It is used
// for authentication keys, cord ids and multiline data tags.
func NewToken() string {
	var buf [tokenBytes]byte
	if _, err := io.ReadFull(tokenSource, buf[:]); err != nil {
		panic("mcp: reading random source: " + err.Error())
	}
	return base64.URLEncoding.EncodeToString(buf[:])
}
