// Package metrics provides lightweight counters for tracking the
// protocol statistics of an mcpnc session.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for an mcpnc session.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	connectionsActive atomic.Int64
	connectionsTotal  atomic.Int64
	linesIn           atomic.Int64
	linesOut          atomic.Int64
	textIn            atomic.Int64
	negotiations      atomic.Int64
	cordsOpened       atomic.Int64
	cordsClosed       atomic.Int64
	cordMessages      atomic.Int64
	dialRetries       atomic.Int64
	errorsTotal       atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	dispatched   map[string]int64 // by package
	discarded    map[string]int64 // by reason
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{
		startTime:  time.Now(),
		dispatched: make(map[string]int64),
		discarded:  make(map[string]int64),
	}
}

// ── Connection metrics ───────────────────────────────────────────────

// ConnectionOpened increments both the active and total counters.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(1)
	c.connectionsTotal.Add(1)
}

// ConnectionClosed decrements the active connection counter.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(-1)
}

// ActiveConnections returns the current number of open connections.
func (c *Collector) ActiveConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsActive.Load()
}

// TotalConnections returns the lifetime connection count.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsTotal.Load()
}

// DialRetry records a failed dial that will be retried.
func (c *Collector) DialRetry() {
	if c == nil {
		return
	}
	c.dialRetries.Add(1)
}

// DialRetries returns the number of retried dials.
func (c *Collector) DialRetries() int64 {
	if c == nil {
		return 0
	}
	return c.dialRetries.Load()
}

// ── Line metrics ─────────────────────────────────────────────────────

// LineReceived records one line read from a peer.  text marks in-band
// lines that were passed through to the user.
func (c *Collector) LineReceived(text bool) {
	if c == nil {
		return
	}
	c.linesIn.Add(1)
	if text {
		c.textIn.Add(1)
	}
}

// LineSent records one line written to a peer.
func (c *Collector) LineSent() {
	if c == nil {
		return
	}
	c.linesOut.Add(1)
}

// LinesIn returns the total lines received.
func (c *Collector) LinesIn() int64 {
	if c == nil {
		return 0
	}
	return c.linesIn.Load()
}

// LinesOut returns the total lines sent.
func (c *Collector) LinesOut() int64 {
	if c == nil {
		return 0
	}
	return c.linesOut.Load()
}

// ── Protocol metrics ─────────────────────────────────────────────────

// MessageDispatched records a message routed to pkg.
func (c *Collector) MessageDispatched(pkg string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.dispatched[pkg]++
	c.mu.Unlock()
}

// Discarded records a dropped protocol line under the root cause of
// reason.
func (c *Collector) Discarded(reason error) {
	if c == nil {
		return
	}
	key := ReasonKey(reason)
	c.mu.Lock()
	c.discarded[key]++
	c.mu.Unlock()
}

// Negotiated records a completed package negotiation.
func (c *Collector) Negotiated() {
	if c == nil {
		return
	}
	c.negotiations.Add(1)
}

// Negotiations returns the number of completed negotiations.
func (c *Collector) Negotiations() int64 {
	if c == nil {
		return 0
	}
	return c.negotiations.Load()
}

// CordOpened, CordMessage and CordClosed count cord traffic.
func (c *Collector) CordOpened() {
	if c != nil {
		c.cordsOpened.Add(1)
	}
}

func (c *Collector) CordMessage() {
	if c != nil {
		c.cordMessages.Add(1)
	}
}

func (c *Collector) CordClosed() {
	if c != nil {
		c.cordsClosed.Add(1)
	}
}

// ReasonKey reduces err to the text of the innermost wrapped error with
// any package prefix removed, so "mcp: unknown tag: \"x\"" counts as
// "unknown tag".
func ReasonKey(err error) string {
	if err == nil {
		return "unknown"
	}
	for {
		inner := errors.Unwrap(err)
		if inner == nil {
			break
		}
		err = inner
	}
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 && !strings.Contains(msg[:i], " ") {
		msg = msg[i+2:]
	}
	return msg
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime            string           `json:"uptime"`
	ConnectionsActive int64            `json:"connections_active"`
	ConnectionsTotal  int64            `json:"connections_total"`
	DialRetries       int64            `json:"dial_retries"`
	LinesIn           int64            `json:"lines_in"`
	LinesOut          int64            `json:"lines_out"`
	TextLinesIn       int64            `json:"text_lines_in"`
	Negotiations      int64            `json:"negotiations"`
	Dispatched        map[string]int64 `json:"dispatched,omitempty"`
	Discarded         map[string]int64 `json:"discarded,omitempty"`
	CordsOpened       int64            `json:"cords_opened"`
	CordsClosed       int64            `json:"cords_closed"`
	CordMessages      int64            `json:"cord_messages"`
	ErrorsTotal       int64            `json:"errors_total"`
	LastError         string           `json:"last_error,omitempty"`
	LastErrorMessage  string           `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:            time.Since(c.startTime).Truncate(time.Second).String(),
		ConnectionsActive: c.connectionsActive.Load(),
		ConnectionsTotal:  c.connectionsTotal.Load(),
		DialRetries:       c.dialRetries.Load(),
		LinesIn:           c.linesIn.Load(),
		LinesOut:          c.linesOut.Load(),
		TextLinesIn:       c.textIn.Load(),
		Negotiations:      c.negotiations.Load(),
		Dispatched:        copyCounts(c.dispatched),
		Discarded:         copyCounts(c.discarded),
		CordsOpened:       c.cordsOpened.Load(),
		CordsClosed:       c.cordsClosed.Load(),
		CordMessages:      c.cordMessages.Load(),
		ErrorsTotal:       c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

func copyCounts(m map[string]int64) map[string]int64 {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
