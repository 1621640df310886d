package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"mcpnc/util"
)

// Role selects which side of the handshake a connection plays.
type Role int

const (
	// Client answers the server's startup line with a fresh
	// authentication key and echoes the server's advertisements.
	Client Role = iota
	// Server announces the protocol on startup, adopts the client's
	// key and advertises every registered package.
	Server
)

func (r Role) String() string {
	if r == Server {
		return "server"
	}
	return "client"
}

// Hooks observe a connection.  Every field is optional.  Hooks run
// synchronously on the goroutine driving the connection.
type Hooks struct {
	// OnDiscard is called for every protocol line that was dropped.
	OnDiscard func(line string, reason error)
	// OnDispatch is called before msg is handed to package pkg.
	OnDispatch func(pkg string, msg *Message)
	// OnNegotiated is called when the peer ends negotiation.
	OnNegotiated func()
}

// Option configures a Connection.
type Option func(*Connection)

// WithLogger sets the logger.  Lines are tagged with the connection id.
func WithLogger(l *util.Logger) Option {
	return func(c *Connection) { c.logger = l }
}

// WithHooks installs observation hooks.
func WithHooks(h Hooks) Option {
	return func(c *Connection) { c.hooks = h }
}

// Connection is the protocol state for one peer.  It is not safe for
// concurrent use.
type Connection struct {
	id       uuid.UUID
	role     Role
	registry *Registry
	sink     Sink
	logger   *util.Logger
	hooks    Hooks

	parser     *Parser
	negotiated bool
	packages   map[string]*NegotiatedPackage
}

// NewConnection returns a connection that writes through sink.  A Server
// connection writes its startup line before NewConnection returns.  A nil
// registry is replaced by NewRegistry().
func NewConnection(reg *Registry, sink Sink, role Role, opts ...Option) *Connection {
	if reg == nil {
		reg = NewRegistry()
	}
	c := &Connection{
		id:       uuid.New(),
		role:     role,
		registry: reg,
		sink:     sink,
		parser:   NewParser(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("conn", c.id.String())
	c.Startup()
	return c
}

// Startup restarts the handshake from scratch.  A Server re-announces
// the protocol.
func (c *Connection) Startup() {
	c.reset()
	if c.role == Server {
		c.sink(fmt.Sprintf("%s%s version: %s to: %s",
			ControlPrefix, StartupMessage, ProtocolVersion, ProtocolVersion))
	}
}

func (c *Connection) reset() {
	c.parser.Reset()
	c.negotiated = false
	c.packages = make(map[string]*NegotiatedPackage)
	if p, ok := c.registry.Lookup(NegotiatePackageName); ok {
		c.bind(p, "1.0")
	}
}

// ID identifies the connection in logs and on negotiated packages.
func (c *Connection) ID() uuid.UUID { return c.id }

// Role returns the handshake role.
func (c *Connection) Role() Role { return c.role }

// IsServer reports whether c plays the Server role.
func (c *Connection) IsServer() bool { return c.role == Server }

// Registry returns the registry the connection negotiates against.
func (c *Connection) Registry() *Registry { return c.registry }

// AuthKey returns the established authentication key, or "".
func (c *Connection) AuthKey() string { return c.parser.AuthKey() }

// Negotiated reports whether the peer has ended package negotiation.
func (c *Connection) Negotiated() bool { return c.negotiated }

// Pending returns the number of incomplete multiline messages.
func (c *Connection) Pending() int { return c.parser.Pending() }

// Package returns the negotiated package called name.
func (c *Connection) Package(name string) (*NegotiatedPackage, bool) {
	np, ok := c.packages[name]
	return np, ok
}

// Packages returns the negotiated packages sorted by name.
func (c *Connection) Packages() []*NegotiatedPackage {
	out := make([]*NegotiatedPackage, 0, len(c.packages))
	for _, np := range c.packages {
		out = append(out, np)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Negotiator returns the connection's negotiation package.
func (c *Connection) Negotiator() *Negotiator {
	np, ok := c.packages[NegotiatePackageName]
	if !ok {
		return nil
	}
	n, _ := np.handler.(*Negotiator)
	return n
}

// Cords returns the cord package, or nil until it has been negotiated.
func (c *Connection) Cords() *CordPackage {
	np, ok := c.packages[CordPackageName]
	if !ok {
		return nil
	}
	cp, _ := np.handler.(*CordPackage)
	return cp
}

// ProcessInput consumes one raw line from the peer.  It returns the text
// to show the user and true for in-band lines, or "" and false when the
// line was protocol traffic.
func (c *Connection) ProcessInput(line string) (string, bool) {
	d := c.parser.Decode(line)
	switch d.Kind {
	case LineText, LineQuoted:
		return d.Text, true
	case LineDiscarded:
		c.discard(line, d.Err)
	case LineMessage:
		c.handleMessage(line, d.Message)
	}
	return "", false
}

// SendMessage writes msg with the connection's key.
func (c *Connection) SendMessage(msg *Message) {
	msg.Send(c.parser.AuthKey(), c.sink)
}

// WriteInband writes ordinary text, escaping it if it could be mistaken
// for protocol traffic.
func (c *Connection) WriteInband(line string) {
	c.sink(EscapeInband(line))
}

// WriteOutOfBand writes line verbatim.
func (c *Connection) WriteOutOfBand(line string) {
	c.sink(line)
}

func (c *Connection) handleMessage(line string, msg *Message) {
	if msg.Name == StartupMessage {
		c.negotiateStartup(line, msg)
		return
	}
	np := c.route(msg.Name)
	if np == nil {
		c.discard(line, fmt.Errorf("%w: %s", ErrUnroutable, msg.Name))
		return
	}
	c.logger.Debug("dispatch %s to %s", msg.Name, np.Name)
	if c.hooks.OnDispatch != nil {
		c.hooks.OnDispatch(np.Name, msg)
	}
	np.dispatch(msg)
}

// route returns the negotiated package with the longest name that is
// msg name itself or a "name-" prefix of it.
func (c *Connection) route(name string) *NegotiatedPackage {
	var best *NegotiatedPackage
	for pkgName, np := range c.packages {
		if name != pkgName && !strings.HasPrefix(name, pkgName+"-") {
			continue
		}
		if best == nil || len(pkgName) > len(best.Name) {
			best = np
		}
	}
	return best
}

func (c *Connection) negotiateStartup(line string, msg *Message) {
	// The parser already dropped the key and partials.
	c.reset()

	minVer, okMin := msg.Lookup("version")
	maxVer, okMax := msg.Lookup("to")
	if !okMin || !okMax {
		c.discard(line, fmt.Errorf("%w: version/to", ErrMissingField))
		return
	}
	lo, err := CompareVersions(minVer, ProtocolVersion)
	if err != nil {
		c.discard(line, err)
		return
	}
	hi, err := CompareVersions(maxVer, ProtocolVersion)
	if err != nil {
		c.discard(line, err)
		return
	}
	if lo > 0 || hi < 0 {
		c.discard(line, fmt.Errorf("%w: peer %s-%s", ErrVersionOutOfRange, minVer, maxVer))
		return
	}

	if c.role == Server {
		key, ok := msg.Lookup("authentication-key")
		if !ok || key == "" {
			c.discard(line, fmt.Errorf("%w: authentication-key", ErrMissingField))
			return
		}
		c.parser.SetAuthKey(key)
		c.logger.Verbose("handshake accepted, advertising packages")
		c.Negotiator().AdvertisePackages()
		return
	}

	key := NewToken()
	c.parser.SetAuthKey(key)
	c.logger.Verbose("handshake received, replying with key")
	c.sink(fmt.Sprintf("%s%s authentication-key: %s version: %s to: %s",
		ControlPrefix, StartupMessage, key, ProtocolVersion, ProtocolVersion))
}

// bind records p at version.  A package that is already bound keeps its
// handler and only takes the new version.
func (c *Connection) bind(p Package, version string) *NegotiatedPackage {
	if np, ok := c.packages[p.Name]; ok {
		np.Version = version
		return np
	}
	np := &NegotiatedPackage{Package: p, Version: version, conn: c}
	if p.Bind != nil {
		np.handler = p.Bind(np)
	}
	c.packages[p.Name] = np
	return np
}

func (c *Connection) markNegotiated() {
	if c.negotiated {
		return
	}
	c.negotiated = true
	c.logger.Verbose("negotiation complete (%d packages)", len(c.packages))
	if c.hooks.OnNegotiated != nil {
		c.hooks.OnNegotiated()
	}
}

func (c *Connection) discard(line string, reason error) {
	c.logger.Debug("discarded %q: %v", line, reason)
	if c.hooks.OnDiscard != nil {
		c.hooks.OnDiscard(line, reason)
	}
}
