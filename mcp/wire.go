package mcp

import "strings"

// Wire markers.
const (
	// ControlPrefix starts every out-of-band line.
	ControlPrefix = "#$#"
	// QuotePrefix marks in-band text that would otherwise look like an
	// out-of-band line.  It is stripped on receipt.
	QuotePrefix = `#$"`
	// ContinuePrefix starts a multiline continuation line.
	ContinuePrefix = "#$#* "
	// EndPrefix starts a multiline completion line.
	EndPrefix = "#$#: "

	// StartupMessage is the reserved handshake message name.  It is the
	// only message sent without an authentication key.
	StartupMessage = "mcp"

	// DataTagField carries the continuation tag of a multiline message.
	DataTagField = "_data_tag"
)

// needsQuotes reports whether a scalar must be written as a quoted string.
func needsQuotes(s string) bool {
	return s == "" || strings.ContainsAny(s, " \"\\")
}

// quoteValue renders a scalar for a header line.
func quoteValue(s string) string {
	if !needsQuotes(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' || c == '"' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return b.String()
}

// quoteField renders "key: value" for a header line.  A multiline
// field is declared as `key*: ""`; its lines follow separately.
func quoteField(key string, v Value) string {
	if v.multi {
		return key + `*: ""`
	}
	return key + ": " + quoteValue(v.Text())
}

// parseValue reads one value from the front of s and returns it together
// with whatever follows.  A quoted value ends at the first unescaped
// double quote; an unquoted value ends at the first space.  An
// unterminated quoted value runs to the end of s.
func parseValue(s string) (val, rest string) {
	if !strings.HasPrefix(s, `"`) {
		if i := strings.IndexByte(s, ' '); i >= 0 {
			return s[:i], s[i+1:]
		}
		return s, ""
	}
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			if i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			}
		case '"':
			return b.String(), s[i+1:]
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), ""
}

// EscapeInband returns line as it must be written in-band so the peer
// does not take it for protocol traffic.
func EscapeInband(line string) string {
	if strings.HasPrefix(line, ControlPrefix) || strings.HasPrefix(line, QuotePrefix) {
		return QuotePrefix + line
	}
	return line
}
