package mcp

import (
	"fmt"
	"sort"
	"sync"
)

// Handler processes the messages routed to one negotiated package on one
// connection.
type Handler interface {
	HandleMessage(msg *Message)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(msg *Message)

// HandleMessage calls f(msg).
func (f HandlerFunc) HandleMessage(msg *Message) { f(msg) }

// Package describes a registered sub-protocol.  It is immutable once
// registered.
type Package struct {
	Name       string
	MinVersion string
	MaxVersion string
	// Bind creates the connection-local handler when the package is
	// negotiated on a connection.  A nil Bind drops every message.
	Bind func(np *NegotiatedPackage) Handler
}

// NegotiatedPackage is a Package bound to a connection at the version both
// peers agreed on.
type NegotiatedPackage struct {
	Package
	Version string

	conn    *Connection
	handler Handler
}

// Connection returns the owning connection.
func (np *NegotiatedPackage) Connection() *Connection { return np.conn }

// Handler returns the connection-local handler, which may be nil.
func (np *NegotiatedPackage) Handler() Handler { return np.handler }

func (np *NegotiatedPackage) dispatch(msg *Message) {
	if np.handler != nil {
		np.handler.HandleMessage(msg)
	}
}

// Registry maps package names to descriptors plus the cord handlers of the
// process.  Populate it before constructing connections; it is safe for
// concurrent reads afterwards.
type Registry struct {
	mu    sync.RWMutex
	pkgs  map[string]Package
	order []string
	cords map[string]CordHandler
}

// NewRegistry returns a registry holding the built-in negotiation and
// cord packages.
func NewRegistry() *Registry {
	r := &Registry{
		pkgs:  make(map[string]Package),
		cords: make(map[string]CordHandler),
	}
	r.MustRegister(negotiatePackage())
	r.MustRegister(cordPackage())
	return r
}

// Register adds p.  Registering a name twice is a programming error and
// returns ErrDuplicatePackage.
func (r *Registry) Register(p Package) error {
	if p.Name == "" {
		return fmt.Errorf("mcp: package name is empty")
	}
	if _, err := SharedMaxVersion(p.MinVersion, p.MaxVersion, p.MinVersion, p.MaxVersion); err != nil {
		return fmt.Errorf("mcp: package %s: %w", p.Name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pkgs[p.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePackage, p.Name)
	}
	r.pkgs[p.Name] = p
	r.order = append(r.order, p.Name)
	return nil
}

// MustRegister is Register for start-up code; it panics on error.
func (r *Registry) MustRegister(p Package) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// Lookup returns the package registered under name.
func (r *Registry) Lookup(name string) (Package, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pkgs[name]
	return p, ok
}

// Packages returns every package in registration order.
func (r *Registry) Packages() []Package {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Package, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.pkgs[name])
	}
	return out
}

// RegisterCordHandler installs the default handler for cords of
// cordType.  It returns ErrDuplicateCordHandler if one is already set.
func (r *Registry) RegisterCordHandler(cordType string, h CordHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cords[cordType]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateCordHandler, cordType)
	}
	r.cords[cordType] = h
	return nil
}

// CordHandler returns the handler registered for cordType.
func (r *Registry) CordHandler(cordType string) (CordHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.cords[cordType]
	return h, ok
}

// CordTypes returns the registered cord types, sorted.
func (r *Registry) CordTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.cords))
	for t := range r.cords {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
