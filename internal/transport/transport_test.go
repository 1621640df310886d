package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"mcpnc/config"
	ncerr "mcpnc/internal/errors"
	"mcpnc/internal/metrics"
)

// TestTCPDialer_Connect verifies that TCPDialer can reach a local
// TCP server and exchange data.
func TestTCPDialer_Connect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("#$#mcp version: 2.1 to: 2.1\n")) //nolint:errcheck
	}()

	d := &TCPDialer{Timeout: 2 * time.Second}
	conn, err := d.Dial(context.Background(), "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		t.Fatalf("read: %v", err)
	}
	if got := string(buf[:n]); got != "#$#mcp version: 2.1 to: 2.1\n" {
		t.Errorf("got %q", got)
	}
}

// TestTCPDialer_ContextCancel verifies that a cancelled context stops the dial.
func TestTCPDialer_ContextCancel(t *testing.T) {
	d := &TCPDialer{Timeout: 5 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Dial(ctx, "tcp", "127.0.0.1:1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTCPDialer_RefusedIsRetryable(t *testing.T) {
	addr := closedAddr(t)

	_, err := (&TCPDialer{Timeout: time.Second}).Dial(context.Background(), "tcp", addr)
	var netErr *ncerr.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if netErr.Addr != addr || !netErr.Retryable {
		t.Errorf("got %+v", netErr)
	}
}

// TestTCPDialer_Close verifies Close is a no-op and returns nil.
func TestTCPDialer_Close(t *testing.T) {
	d := &TCPDialer{}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// flakyDialer fails the first n dials with err.
type flakyDialer struct {
	fails  int32
	err    error
	calls  atomic.Int32
	closed bool
}

func (f *flakyDialer) Dial(context.Context, string, string) (net.Conn, error) {
	if f.calls.Add(1) <= f.fails {
		return nil, f.err
	}
	c, _ := net.Pipe()
	return c, nil
}

func (f *flakyDialer) Close() error {
	f.closed = true
	return nil
}

var refused = ncerr.Wrap("dial", "mud:7777", syscall.ECONNREFUSED)

func TestRetryDialer(t *testing.T) {
	tests := []struct {
		name      string
		fails     int32
		err       error
		retries   int
		wantErr   bool
		exhausted bool
		wantCalls int32
		wantRetry int64
	}{
		{"first try", 0, refused, 3, false, false, 1, 0},
		{"recovers", 2, refused, 3, false, false, 3, 2},
		{"exhausted", 10, refused, 2, true, true, 3, 2},
		{"not retryable", 10, errors.New("no such host"), 3, true, false, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &flakyDialer{fails: tt.fails, err: tt.err}
			m := metrics.New()
			d := NewRetryDialer(inner, tt.retries, nil, m).WithDelays(time.Millisecond, 2*time.Millisecond)

			conn, err := d.Dial(context.Background(), "tcp", "mud:7777")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if conn != nil {
				conn.Close()
			}
			if got := errors.Is(err, ncerr.ErrRetriesExhausted); got != tt.exhausted {
				t.Errorf("exhausted = %v, want %v (%v)", got, tt.exhausted, err)
			}
			if tt.exhausted && !errors.Is(err, syscall.ECONNREFUSED) {
				t.Errorf("exhausted error should keep the cause: %v", err)
			}
			if got := inner.calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
			if got := m.DialRetries(); got != tt.wantRetry {
				t.Errorf("retries counted = %d, want %d", got, tt.wantRetry)
			}
		})
	}
}

func TestRetryDialer_Cancelled(t *testing.T) {
	inner := &flakyDialer{fails: 100, err: refused}
	d := NewRetryDialer(inner, 50, nil, nil).WithDelays(time.Second, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := d.Dial(ctx, "tcp", "mud:7777")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if errors.Is(err, ncerr.ErrRetriesExhausted) {
		t.Error("cancellation is not exhaustion")
	}
}

func TestRetryDialer_Close(t *testing.T) {
	inner := &flakyDialer{}
	if err := NewRetryDialer(inner, 1, nil, nil).Close(); err != nil {
		t.Fatal(err)
	}
	if !inner.closed {
		t.Error("Close should reach the inner dialer")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{"plain", config.Config{Host: "mud", Port: 7777}, "*transport.TCPDialer"},
		{"retry", config.Config{Host: "mud", Port: 7777, Retries: 2}, "*transport.RetryDialer"},
		{"tunnel", config.Config{TunnelEnabled: true, TunnelHost: "gw"}, "*transport.SSHDialer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(&tt.cfg, nil, nil)
			if got := typeName(d); got != tt.want {
				t.Errorf("New() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSSHConfigFrom(t *testing.T) {
	cfg := &config.Config{
		TunnelUser:     "wiz",
		TunnelHost:     "gw.example.com",
		TunnelPort:     2222,
		SSHKeyPath:     "/keys/id",
		UseSSHAgent:    true,
		StrictHostKey:  true,
		KnownHostsPath: "/kh",
		Timeout:        3 * time.Second,
	}
	sc := SSHConfigFrom(cfg)
	if sc.User != "wiz" || sc.Host != "gw.example.com" || sc.Port != 2222 {
		t.Errorf("target = %s@%s:%d", sc.User, sc.Host, sc.Port)
	}
	if sc.KeyPath != "/keys/id" || !sc.UseAgent || !sc.StrictHostKey || sc.KnownHosts != "/kh" {
		t.Errorf("auth = %+v", sc)
	}
	if sc.ConnTimeout != 3*time.Second {
		t.Errorf("ConnTimeout = %v", sc.ConnTimeout)
	}
}

func TestSSHDialer_UnreachableGateway(t *testing.T) {
	addr := closedAddr(t)
	port := mustPort(t, addr)

	d := NewSSHDialer(SSHConfigFrom(&config.Config{
		TunnelHost: "127.0.0.1",
		TunnelPort: port,
		SSHKeyPath: "/nonexistent/key",
	}), nil)
	defer d.Close()

	if _, err := d.Dial(context.Background(), "tcp", "mud:7777"); err == nil {
		t.Fatal("expected tunnel error")
	}
}

// ── helpers ──────────────────────────────────────────────────────────

// closedAddr returns a loopback address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func mustPort(t *testing.T, addr string) int {
	t.Helper()
	a, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	return a.Port
}

func typeName(v interface{}) string {
	switch v.(type) {
	case *TCPDialer:
		return "*transport.TCPDialer"
	case *RetryDialer:
		return "*transport.RetryDialer"
	case *SSHDialer:
		return "*transport.SSHDialer"
	}
	return "unknown"
}
