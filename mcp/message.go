package mcp

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Value is a message field: either a scalar string or an ordered list of
// lines.  The zero Value is the empty scalar.
type Value struct {
	lines []string
	multi bool
}

// Scalar returns a single-line value.  Scalar does not split on line
// breaks; that happens when the message is normalized for sending.
func Scalar(s string) Value {
	return Value{lines: []string{s}}
}

// Lines returns a multiline value holding a copy of lines.
func Lines(lines ...string) Value {
	cp := make([]string, len(lines))
	copy(cp, lines)
	return Value{lines: cp, multi: true}
}

// IsMulti reports whether v is a multiline value.
func (v Value) IsMulti() bool { return v.multi }

// Text returns the scalar string, or the lines joined by "\n".
func (v Value) Text() string {
	return strings.Join(v.lines, "\n")
}

// Lines returns a copy of the lines of a multiline value.  A scalar
// yields a single line.
func (v Value) Lines() []string {
	if !v.multi && len(v.lines) == 0 {
		return []string{""}
	}
	cp := make([]string, len(v.lines))
	copy(cp, v.lines)
	return cp
}

// Equal reports whether v and o hold the same variant and content.
func (v Value) Equal(o Value) bool {
	if v.multi != o.multi {
		return false
	}
	if !v.multi {
		return v.Text() == o.Text()
	}
	if len(v.lines) != len(o.lines) {
		return false
	}
	for i := range v.lines {
		if v.lines[i] != o.lines[i] {
			return false
		}
	}
	return true
}

func (v Value) normalize() Value {
	if v.multi {
		return v
	}
	s := v.Text()
	if strings.Contains(s, "\n") {
		return Value{lines: strings.Split(s, "\n"), multi: true}
	}
	return v
}

func (v *Value) appendLine(line string) {
	v.lines = append(v.lines, line)
}

// ValueOf converts an arbitrary Go value into a Value.  Strings become
// scalars, string slices become multiline values, Values pass through and
// anything else is rendered with fmt.
func ValueOf(x interface{}) Value {
	switch t := x.(type) {
	case Value:
		return t
	case string:
		return Scalar(t)
	case []string:
		return Lines(t...)
	case int:
		return Scalar(strconv.Itoa(t))
	case bool:
		return Scalar(strconv.FormatBool(t))
	case fmt.Stringer:
		return Scalar(t.String())
	default:
		return Scalar(fmt.Sprint(t))
	}
}

// Message is one structured MCP message: a name plus named fields.
type Message struct {
	Name   string
	fields map[string]Value
}

// NewMessage returns an empty message called name.
func NewMessage(name string) *Message {
	return &Message{Name: name, fields: make(map[string]Value)}
}

// NewMessageWith returns a message with fields set from kv, which
// alternates keys and values: NewMessageWith("x", "foo", 42, "bar", "Q").
// A trailing key without a value is ignored.
func NewMessageWith(name string, kv ...interface{}) *Message {
	m := NewMessage(name)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		m.Set(key, kv[i+1])
	}
	return m
}

// Set stores x under key, converting it with ValueOf.  It returns m so
// calls can be chained.
func (m *Message) Set(key string, x interface{}) *Message {
	if m.fields == nil {
		m.fields = make(map[string]Value)
	}
	m.fields[key] = ValueOf(x)
	return m
}

// Get returns the value stored under key.
func (m *Message) Get(key string) (Value, bool) {
	v, ok := m.fields[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Message) Has(key string) bool {
	_, ok := m.fields[key]
	return ok
}

// Text returns the text of key, or "" if absent.
func (m *Message) Text(key string) string {
	return m.fields[key].Text()
}

// Lookup returns the text of key and whether it was present.
func (m *Message) Lookup(key string) (string, bool) {
	v, ok := m.fields[key]
	return v.Text(), ok
}

// Int returns key parsed as an integer, or dflt when it is absent or not
// a number.
func (m *Message) Int(key string, dflt int) int {
	v, ok := m.fields[key]
	if !ok {
		return dflt
	}
	n, err := strconv.Atoi(strings.TrimSpace(v.Text()))
	if err != nil {
		return dflt
	}
	return n
}

// Del removes key.
func (m *Message) Del(key string) {
	delete(m.fields, key)
}

// Len returns the number of fields.
func (m *Message) Len() int { return len(m.fields) }

// Keys returns the field names in lexicographic order.
func (m *Message) Keys() []string {
	keys := make([]string, 0, len(m.fields))
	for k := range m.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fields returns a copy of the field mapping.
func (m *Message) Fields() map[string]Value {
	out := make(map[string]Value, len(m.fields))
	for k, v := range m.fields {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy of m.
func (m *Message) Clone() *Message {
	c := NewMessage(m.Name)
	for k, v := range m.fields {
		if v.multi {
			v = Lines(v.lines...)
		}
		c.fields[k] = v
	}
	return c
}

// Normalize returns the wire form of the fields: scalars containing a
// line break are split into multiline values.  The second result lists
// the multiline keys in lexicographic order.
func (m *Message) Normalize() (map[string]Value, []string) {
	out := make(map[string]Value, len(m.fields))
	var multi []string
	for k, v := range m.fields {
		v = v.normalize()
		out[k] = v
		if v.multi {
			multi = append(multi, k)
		}
	}
	sort.Strings(multi)
	return out, multi
}

func (m *Message) String() string {
	var b strings.Builder
	b.WriteString("<mcp.Message ")
	b.WriteString(strconv.Quote(m.Name))
	for _, k := range m.Keys() {
		v := m.fields[k]
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		if v.multi {
			b.WriteString(fmt.Sprintf("%q", v.lines))
		} else {
			b.WriteString(strconv.Quote(v.Text()))
		}
	}
	b.WriteString(">")
	return b.String()
}

// Sink receives outgoing wire lines, one complete line per call, without
// a trailing line terminator.
type Sink func(line string)

// Send writes m to sink.  The header line carries authKey when it is not
// empty, followed by the fields sorted by name.  Multiline fields are
// declared on the header with a fresh _data_tag and then sent as one
// continuation line per value, followed by a completion line.
func (m *Message) Send(authKey string, sink Sink) {
	WriteMessage(m, authKey, NewToken, sink)
}

// WriteMessage is Send with an explicit data-tag generator.
func WriteMessage(m *Message, authKey string, newTag func() string, sink Sink) {
	fields, multi := m.Normalize()

	var b strings.Builder
	b.WriteString(ControlPrefix)
	b.WriteString(m.Name)
	if authKey != "" {
		b.WriteString(" ")
		b.WriteString(authKey)
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == DataTagField && len(multi) > 0 {
			continue
		}
		b.WriteString(" ")
		b.WriteString(quoteField(k, fields[k]))
	}

	var tag string
	if len(multi) > 0 {
		tag = newTag()
		b.WriteString(" ")
		b.WriteString(quoteField(DataTagField, Scalar(tag)))
	}
	sink(b.String())

	if len(multi) == 0 {
		return
	}
	for _, k := range multi {
		for _, line := range fields[k].lines {
			sink(ContinuePrefix + tag + " " + k + ": " + line)
		}
	}
	sink(EndPrefix + tag)
}
