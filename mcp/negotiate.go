package mcp

// Negotiation package constants.
const (
	NegotiatePackageName = "mcp-negotiate"
	NegotiateMinVersion  = "1.0"
	NegotiateMaxVersion  = "2.0"

	negotiateCan = NegotiatePackageName + "-can"
	negotiateEnd = NegotiatePackageName + "-end"
)

func negotiatePackage() Package {
	return Package{
		Name:       NegotiatePackageName,
		MinVersion: NegotiateMinVersion,
		MaxVersion: NegotiateMaxVersion,
		Bind: func(np *NegotiatedPackage) Handler {
			return &Negotiator{np: np}
		},
	}
}

// Negotiator runs the capability exchange on one connection.
type Negotiator struct {
	np *NegotiatedPackage
}

// HandleMessage processes mcp-negotiate-can and mcp-negotiate-end.
func (n *Negotiator) HandleMessage(msg *Message) {
	switch msg.Name {
	case negotiateCan:
		n.handleCan(msg)
	case negotiateEnd:
		n.handleEnd()
	}
}

func (n *Negotiator) handleCan(msg *Message) {
	c := n.np.conn
	name, okName := msg.Lookup("package")
	minVer, okMin := msg.Lookup("min-version")
	maxVer, okMax := msg.Lookup("max-version")
	if !okName || !okMin || !okMax {
		c.discard(msg.String(), ErrMissingField)
		return
	}
	p, ok := c.registry.Lookup(name)
	if !ok {
		c.discard(msg.String(), ErrUnknownPackage)
		return
	}
	ver, err := SharedMaxVersion(p.MinVersion, p.MaxVersion, minVer, maxVer)
	if err != nil {
		c.discard(msg.String(), err)
		return
	}
	c.bind(p, ver)
	c.logger.Verbose("negotiated %s at %s", p.Name, ver)
	if c.role == Client {
		// Echo our own full range; the server intersects it with its own.
		c.SendMessage(canMessage(p))
	}
}

func (n *Negotiator) handleEnd() {
	c := n.np.conn
	if c.role == Client && !c.negotiated {
		c.SendMessage(NewMessage(negotiateEnd))
	}
	c.markNegotiated()
}

// AdvertisePackages sends one mcp-negotiate-can per registered package,
// the negotiation package first, then mcp-negotiate-end.
func (n *Negotiator) AdvertisePackages() {
	c := n.np.conn
	if p, ok := c.registry.Lookup(NegotiatePackageName); ok {
		c.SendMessage(canMessage(p))
	}
	for _, p := range c.registry.Packages() {
		if p.Name == NegotiatePackageName {
			continue
		}
		c.SendMessage(canMessage(p))
	}
	c.SendMessage(NewMessage(negotiateEnd))
}

func canMessage(p Package) *Message {
	return NewMessage(negotiateCan).
		Set("package", p.Name).
		Set("min-version", p.MinVersion).
		Set("max-version", p.MaxVersion)
}
