package mcp

import (
	"fmt"
	"strings"
)

// LineKind classifies one decoded input line.
type LineKind int

const (
	// LineText is ordinary in-band text.
	LineText LineKind = iota
	// LineQuoted is in-band text that was escaped by the sender; the
	// quote marker has been stripped.
	LineQuoted
	// LineMessage completed a message.
	LineMessage
	// LinePending was protocol traffic for a message that is still
	// accumulating multiline values.
	LinePending
	// LineDiscarded was protocol traffic that was dropped.
	LineDiscarded
)

func (k LineKind) String() string {
	switch k {
	case LineText:
		return "text"
	case LineQuoted:
		return "quoted"
	case LineMessage:
		return "message"
	case LinePending:
		return "pending"
	case LineDiscarded:
		return "discarded"
	}
	return fmt.Sprintf("LineKind(%d)", int(k))
}

// Decoded is the result of feeding one line to a Parser.
type Decoded struct {
	Kind LineKind
	// Text is set for LineText and LineQuoted.
	Text string
	// Message is set for LineMessage.
	Message *Message
	// Err is the discard reason for LineDiscarded.
	Err error
}

// IsText reports whether the line should be delivered as in-band text.
func (d Decoded) IsText() bool {
	return d.Kind == LineText || d.Kind == LineQuoted
}

// Parser decodes raw input lines for one connection.  It holds the
// authentication key every non-startup message must carry and the
// multiline messages still waiting for their completion line.
type Parser struct {
	authKey  string
	partials map[string]*Message
}

// NewParser returns a parser with no authentication key.
func NewParser() *Parser {
	return &Parser{partials: make(map[string]*Message)}
}

// AuthKey returns the established key, or "" before the handshake.
func (p *Parser) AuthKey() string { return p.authKey }

// SetAuthKey installs the key every subsequent message must carry.
func (p *Parser) SetAuthKey(key string) { p.authKey = key }

// Reset forgets the key and every partial message.
func (p *Parser) Reset() {
	p.authKey = ""
	p.partials = make(map[string]*Message)
}

// Pending returns the number of multiline messages awaiting completion.
func (p *Parser) Pending() int { return len(p.partials) }

// Decode classifies line and, for protocol traffic, updates the partial
// message table.  line must not include its line terminator.
func (p *Parser) Decode(line string) Decoded {
	switch {
	case strings.HasPrefix(line, QuotePrefix):
		return Decoded{Kind: LineQuoted, Text: line[len(QuotePrefix):]}
	case strings.HasPrefix(line, EndPrefix):
		return p.decodeEnd(line[len(EndPrefix):])
	case strings.HasPrefix(line, ContinuePrefix):
		return p.decodeContinue(line[len(ContinuePrefix):])
	case strings.HasPrefix(line, ControlPrefix):
		return p.decodeMessage(line[len(ControlPrefix):])
	}
	return Decoded{Kind: LineText, Text: line}
}

func discard(err error) Decoded {
	return Decoded{Kind: LineDiscarded, Err: err}
}

func (p *Parser) decodeEnd(rest string) Decoded {
	tag := strings.TrimSpace(rest)
	msg, ok := p.partials[tag]
	if !ok {
		return discard(fmt.Errorf("%w: %q", ErrUnknownTag, tag))
	}
	delete(p.partials, tag)
	msg.Del(DataTagField)
	return Decoded{Kind: LineMessage, Message: msg}
}

func (p *Parser) decodeContinue(rest string) Decoded {
	tag, rest, ok := strings.Cut(strings.TrimLeft(rest, " "), " ")
	if !ok {
		return discard(fmt.Errorf("%w: continuation without field", ErrMalformedLine))
	}
	rest = strings.TrimLeft(rest, " ")
	key, val, ok := strings.Cut(rest, ": ")
	if !ok {
		// Some senders strip the trailing space of an empty value.
		if !strings.HasSuffix(rest, ":") {
			return discard(fmt.Errorf("%w: continuation without value", ErrMalformedLine))
		}
		key, val = rest[:len(rest)-1], ""
	}
	msg, ok := p.partials[tag]
	if !ok {
		return discard(fmt.Errorf("%w: %q", ErrUnknownTag, tag))
	}
	v, ok := msg.fields[key]
	if !ok || !v.multi {
		return discard(fmt.Errorf("%w: %q is not a multiline field", ErrMalformedLine, key))
	}
	v.appendLine(val)
	msg.fields[key] = v
	return Decoded{Kind: LinePending}
}

func (p *Parser) decodeMessage(rest string) Decoded {
	name, rest, _ := strings.Cut(strings.TrimLeft(rest, " "), " ")
	if name == "" {
		return discard(fmt.Errorf("%w: empty message name", ErrMalformedLine))
	}
	rest = strings.TrimLeft(rest, " ")

	if name == StartupMessage {
		// A startup message always begins a new handshake.
		p.Reset()
	} else {
		if p.authKey == "" {
			return discard(ErrNotAuthenticated)
		}
		var key string
		key, rest, _ = strings.Cut(rest, " ")
		if key != p.authKey {
			return discard(ErrBadAuthKey)
		}
		rest = strings.TrimLeft(rest, " ")
	}

	msg := NewMessage(name)
	complete := true
	for rest != "" {
		key, after, ok := strings.Cut(rest, ": ")
		if !ok || key == "" || strings.ContainsAny(key, " \"") {
			return discard(fmt.Errorf("%w: bad field in %s", ErrMalformedLine, name))
		}
		var val string
		val, rest = parseValue(strings.TrimLeft(after, " "))
		rest = strings.TrimLeft(rest, " ")
		if base, isMulti := strings.CutSuffix(key, "*"); isMulti {
			msg.fields[base] = Value{multi: true}
			complete = false
			continue
		}
		msg.fields[key] = Scalar(val)
	}
	if complete {
		return Decoded{Kind: LineMessage, Message: msg}
	}

	tag, ok := msg.Lookup(DataTagField)
	if !ok || tag == "" {
		return discard(fmt.Errorf("%w: %s", ErrMissingDataTag, name))
	}
	p.partials[tag] = msg
	return Decoded{Kind: LinePending}
}
