package mcp

import (
	"fmt"
	"sort"
)

// Cord package constants.
const (
	CordPackageName = "mcp-cord"
	CordMinVersion  = "1.0"
	CordMaxVersion  = "1.0"

	cordOpen  = CordPackageName + "-open"
	cordClose = CordPackageName + "-close"

	cordIDField      = "_id"
	cordTypeField    = "_type"
	cordMessageField = "_message"
)

// CordHandler receives the lifecycle events of cords of one type.
type CordHandler interface {
	// Opened is called once when a cord becomes live.
	Opened(c Cord)
	// Received is called for every message sent on the cord.  fields
	// excludes the routing fields.
	Received(c Cord, msgType string, fields map[string]Value)
	// Closed is called once when the cord ends.
	Closed(c Cord)
}

// CordHandlerFuncs adapts optional functions to CordHandler.
type CordHandlerFuncs struct {
	OnOpen    func(c Cord)
	OnMessage func(c Cord, msgType string, fields map[string]Value)
	OnClose   func(c Cord)
}

func (f CordHandlerFuncs) Opened(c Cord) {
	if f.OnOpen != nil {
		f.OnOpen(c)
	}
}

func (f CordHandlerFuncs) Received(c Cord, msgType string, fields map[string]Value) {
	if f.OnMessage != nil {
		f.OnMessage(c, msgType, fields)
	}
}

func (f CordHandlerFuncs) Closed(c Cord) {
	if f.OnClose != nil {
		f.OnClose(c)
	}
}

// Cord is a handle on one open cord.
type Cord struct {
	ID   string
	Type string

	pkg *CordPackage
}

// Send sends a message of msgType on the cord.
func (c Cord) Send(msgType string, fields map[string]Value) {
	if c.pkg != nil {
		c.pkg.Send(c.ID, msgType, fields)
	}
}

// Close closes the cord.
func (c Cord) Close() {
	if c.pkg != nil {
		c.pkg.Close(c.ID)
	}
}

func cordPackage() Package {
	return Package{
		Name:       CordPackageName,
		MinVersion: CordMinVersion,
		MaxVersion: CordMaxVersion,
		Bind: func(np *NegotiatedPackage) Handler {
			return &CordPackage{np: np, open: make(map[string]openCord)}
		},
	}
}

type openCord struct {
	typ     string
	handler CordHandler // nil drops incoming messages
}

// CordPackage multiplexes cords over one connection.
type CordPackage struct {
	np   *NegotiatedPackage
	open map[string]openCord
}

// RegisterHandler installs the default handler for cordType in the
// connection's registry.
func (cp *CordPackage) RegisterHandler(cordType string, h CordHandler) error {
	return cp.np.conn.registry.RegisterCordHandler(cordType, h)
}

// Open starts a cord of cordType with a fresh id.  h overrides the
// registered handler for the type; with neither, the cord is open but
// incoming traffic on it is dropped.
func (cp *CordPackage) Open(cordType string, h CordHandler) Cord {
	if h == nil {
		h, _ = cp.np.conn.registry.CordHandler(cordType)
	}
	cord := Cord{ID: NewToken(), Type: cordType, pkg: cp}
	cp.open[cord.ID] = openCord{typ: cordType, handler: h}
	cp.np.conn.SendMessage(NewMessage(cordOpen).
		Set(cordIDField, cord.ID).
		Set(cordTypeField, cordType))
	if h != nil {
		h.Opened(cord)
	}
	return cord
}

// Close ends the cord id.  Unknown ids are ignored.
func (cp *CordPackage) Close(id string) {
	oc, ok := cp.open[id]
	if !ok {
		return
	}
	cp.np.conn.SendMessage(NewMessage(cordClose).Set(cordIDField, id))
	delete(cp.open, id)
	if oc.handler != nil {
		oc.handler.Closed(Cord{ID: id, Type: oc.typ, pkg: cp})
	}
}

// Send sends msgType with fields on cord id.  Unknown ids are ignored.
func (cp *CordPackage) Send(id, msgType string, fields map[string]Value) {
	if _, ok := cp.open[id]; !ok {
		return
	}
	msg := NewMessage(CordPackageName)
	for k, v := range fields {
		msg.Set(k, v)
	}
	msg.Set(cordIDField, id)
	msg.Set(cordMessageField, msgType)
	cp.np.conn.SendMessage(msg)
}

// IsOpen reports whether id is a live cord.
func (cp *CordPackage) IsOpen(id string) bool {
	_, ok := cp.open[id]
	return ok
}

// OpenCords returns the live cord ids, sorted.
func (cp *CordPackage) OpenCords() []string {
	ids := make([]string, 0, len(cp.open))
	for id := range cp.open {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HandleMessage processes mcp-cord-open, mcp-cord and mcp-cord-close.
func (cp *CordPackage) HandleMessage(msg *Message) {
	c := cp.np.conn
	id, ok := msg.Lookup(cordIDField)
	if !ok {
		c.discard(msg.String(), fmt.Errorf("%w: %s", ErrMissingField, cordIDField))
		return
	}
	switch msg.Name {
	case cordOpen:
		typ, ok := msg.Lookup(cordTypeField)
		if !ok {
			c.discard(msg.String(), fmt.Errorf("%w: %s", ErrMissingField, cordTypeField))
			return
		}
		h, ok := c.registry.CordHandler(typ)
		if !ok {
			c.discard(msg.String(), fmt.Errorf("%w: %q", ErrUnknownCordType, typ))
			return
		}
		cp.open[id] = openCord{typ: typ, handler: h}
		h.Opened(Cord{ID: id, Type: typ, pkg: cp})

	case CordPackageName:
		oc, ok := cp.open[id]
		if !ok {
			c.discard(msg.String(), fmt.Errorf("%w: %q", ErrUnknownCord, id))
			return
		}
		if oc.handler == nil {
			c.logger.Debug("cord %s has no handler, dropping %s", id, msg.Text(cordMessageField))
			return
		}
		fields := msg.Fields()
		delete(fields, cordIDField)
		delete(fields, cordMessageField)
		oc.handler.Received(Cord{ID: id, Type: oc.typ, pkg: cp}, msg.Text(cordMessageField), fields)

	case cordClose:
		oc, ok := cp.open[id]
		if !ok {
			c.discard(msg.String(), fmt.Errorf("%w: %q", ErrUnknownCord, id))
			return
		}
		delete(cp.open, id)
		if oc.handler != nil {
			oc.handler.Closed(Cord{ID: id, Type: oc.typ, pkg: cp})
		}
	}
}
