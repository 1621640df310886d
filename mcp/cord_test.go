package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cordRecorder records every callback it receives.
type cordRecorder struct {
	opened   []Cord
	received []string
	fields   []map[string]Value
	closed   []Cord
	reply    bool
}

func (r *cordRecorder) Opened(c Cord) { r.opened = append(r.opened, c) }

func (r *cordRecorder) Received(c Cord, msgType string, fields map[string]Value) {
	r.received = append(r.received, msgType)
	r.fields = append(r.fields, fields)
	if r.reply {
		c.Send(msgType+"-ack", fields)
	}
}

func (r *cordRecorder) Closed(c Cord) { r.closed = append(r.closed, c) }

func cordPeers(t *testing.T) (*peers, *cordRecorder) {
	t.Helper()
	serverReg := NewRegistry()
	echo := &cordRecorder{reply: true}
	require.NoError(t, serverReg.RegisterCordHandler("echo", echo))
	return handshake(t, NewRegistry(), serverReg), echo
}

func TestCordLifecycle(t *testing.T) {
	p, echo := cordPeers(t)
	local := &cordRecorder{}

	cord := p.client.Cords().Open("echo", local)
	require.NotEmpty(t, cord.ID)
	assert.Equal(t, "echo", cord.Type)
	require.Len(t, local.opened, 1)
	assert.Equal(t, cord.ID, local.opened[0].ID)

	p.pump(t)
	require.Len(t, echo.opened, 1)
	assert.Equal(t, cord.ID, echo.opened[0].ID)
	assert.Equal(t, "echo", echo.opened[0].Type)

	cord.Send("ping", map[string]Value{"n": Scalar("1"), "body": Lines("a", "b")})
	p.pump(t)

	assert.Equal(t, []string{"ping"}, echo.received)
	require.Len(t, echo.fields, 1)
	assert.Len(t, echo.fields[0], 2)
	assert.Equal(t, "1", echo.fields[0]["n"].Text())
	assert.Equal(t, []string{"a", "b"}, echo.fields[0]["body"].Lines())

	assert.Equal(t, []string{"ping-ack"}, local.received)

	cord.Close()
	require.Len(t, local.closed, 1)
	p.pump(t)
	require.Len(t, echo.closed, 1)
	assert.Equal(t, cord.ID, echo.closed[0].ID)
	assert.False(t, p.client.Cords().IsOpen(cord.ID))
	assert.False(t, p.server.Cords().IsOpen(cord.ID))

	// Closing twice is a no-op.
	cord.Close()
	assert.Empty(t, p.toServer.lines)
	assert.Len(t, local.closed, 1)

	// Sends on a closed cord go nowhere.
	cord.Send("ping", nil)
	assert.Empty(t, p.toServer.lines)

	assert.Empty(t, p.clientDrops)
	assert.Empty(t, p.serverDrops)
}

func TestCordOpenUsesRegisteredHandler(t *testing.T) {
	p, echo := cordPeers(t)
	local := &cordRecorder{}
	require.NoError(t, p.client.Cords().RegisterHandler("echo", local))

	cord := p.client.Cords().Open("echo", nil)
	cord.Send("ping", nil)
	p.pump(t)

	assert.Len(t, local.opened, 1)
	assert.Equal(t, []string{"ping"}, echo.received)
	assert.Equal(t, []string{"ping-ack"}, local.received)
}

func TestCordRegisterDuplicate(t *testing.T) {
	p, _ := cordPeers(t)

	err := p.server.Cords().RegisterHandler("echo", &cordRecorder{})
	assert.ErrorIs(t, err, ErrDuplicateCordHandler)
	assert.Equal(t, []string{"echo"}, p.server.Registry().CordTypes())
}

func TestCordUnknownType(t *testing.T) {
	p, echo := cordPeers(t)

	cord := p.client.Cords().Open("nope", nil)
	assert.True(t, p.client.Cords().IsOpen(cord.ID))
	p.pump(t)

	require.Len(t, p.serverDrops, 1)
	assert.ErrorIs(t, p.serverDrops[0], ErrUnknownCordType)
	assert.False(t, p.server.Cords().IsOpen(cord.ID))

	cord.Send("ping", nil)
	p.pump(t)
	require.Len(t, p.serverDrops, 2)
	assert.ErrorIs(t, p.serverDrops[1], ErrUnknownCord)
	assert.Empty(t, echo.received)
}

func TestCordWithoutLocalHandlerDropsTraffic(t *testing.T) {
	p, echo := cordPeers(t)

	cord := p.client.Cords().Open("echo", nil)
	cord.Send("ping", nil)
	p.pump(t)

	// The server echoed, the client has nobody to hand it to.
	assert.Equal(t, []string{"ping"}, echo.received)
	assert.Empty(t, p.clientDrops)
	assert.True(t, p.client.Cords().IsOpen(cord.ID))
}

func TestCordPeerClose(t *testing.T) {
	p, echo := cordPeers(t)
	local := &cordRecorder{}

	cord := p.client.Cords().Open("echo", local)
	p.pump(t)

	echo.opened[0].Close()
	require.Len(t, echo.closed, 1)
	p.pump(t)

	require.Len(t, local.closed, 1)
	assert.Equal(t, cord.ID, local.closed[0].ID)
	assert.Empty(t, p.client.Cords().OpenCords())
}

func TestCordMessagesForUnknownID(t *testing.T) {
	p, _ := cordPeers(t)

	p.client.SendMessage(NewMessageWith("mcp-cord", "_id", "ghost", "_message", "ping"))
	p.client.SendMessage(NewMessageWith("mcp-cord-close", "_id", "ghost"))
	p.client.SendMessage(NewMessageWith("mcp-cord-open", "_type", "echo"))
	p.pump(t)

	require.Len(t, p.serverDrops, 3)
	assert.ErrorIs(t, p.serverDrops[0], ErrUnknownCord)
	assert.ErrorIs(t, p.serverDrops[1], ErrUnknownCord)
	assert.ErrorIs(t, p.serverDrops[2], ErrMissingField)
}

func TestCordHandlerFuncs(t *testing.T) {
	var events []string
	h := CordHandlerFuncs{
		OnOpen:  func(c Cord) { events = append(events, "open "+c.ID) },
		OnClose: func(c Cord) { events = append(events, "close "+c.ID) },
	}
	c := Cord{ID: "x"}
	h.Opened(c)
	h.Received(c, "ignored", nil)
	h.Closed(c)

	assert.Equal(t, []string{"open x", "close x"}, events)

	// A detached handle is inert.
	assert.NotPanics(t, func() {
		c.Send("ping", nil)
		c.Close()
	})
}
