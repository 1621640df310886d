package core

import (
	"errors"
	"strings"
	"testing"

	"mcpnc/config"
	"mcpnc/internal/capability"
	"mcpnc/internal/metrics"
	"mcpnc/internal/transport"
	"mcpnc/mcp"
	"mcpnc/util"
)

func endpoint(t *testing.T, c capability.Capability) *capability.Endpoint {
	t.Helper()
	e, ok := c.(*capability.Endpoint)
	if !ok {
		t.Fatalf("expected *capability.Endpoint, got %T", c)
	}
	return e
}

// TestBuild_Connect verifies that Build produces a ConnectMode for
// a simple connect configuration.
func TestBuild_Connect(t *testing.T) {
	cfg := &config.Config{Host: "mud.example.com", Port: 7777}

	mode, err := Build(cfg, util.NewLogger(0), metrics.New())
	if err != nil {
		t.Fatal(err)
	}
	cm, ok := mode.(*ConnectMode)
	if !ok {
		t.Fatalf("expected *ConnectMode, got %T", mode)
	}
	if cm.Address != "mud.example.com:7777" || cm.Network != "tcp" {
		t.Errorf("target = %s %s", cm.Network, cm.Address)
	}
	if endpoint(t, cm.Capability).Role != mcp.Client {
		t.Errorf("role = %v, want client", endpoint(t, cm.Capability).Role)
	}
	if cm.Ending != "\n" {
		t.Errorf("Ending = %q", cm.Ending)
	}
	if _, ok := cm.Dialer.(*transport.TCPDialer); !ok {
		t.Errorf("expected a plain TCP dialer, got %T", cm.Dialer)
	}
}

// TestBuild_Listen verifies Build produces a ListenMode.
func TestBuild_Listen(t *testing.T) {
	cfg := &config.Config{Listen: true, LocalPort: 8080, KeepOpen: true, CRLF: true}

	mode, err := Build(cfg, util.NewLogger(0), nil)
	if err != nil {
		t.Fatal(err)
	}
	lm, ok := mode.(*ListenMode)
	if !ok {
		t.Fatalf("expected *ListenMode, got %T", mode)
	}
	if lm.Address != "0.0.0.0:8080" || !lm.KeepOpen {
		t.Errorf("listen = %s keep=%v", lm.Address, lm.KeepOpen)
	}
	if endpoint(t, lm.Capability).Role != mcp.Server {
		t.Errorf("role = %v, want server", endpoint(t, lm.Capability).Role)
	}
	if lm.Ending != "\r\n" {
		t.Errorf("Ending = %q", lm.Ending)
	}
}

func TestBuild_ListenOnHost(t *testing.T) {
	mode, err := Build(&config.Config{Listen: true, Host: "127.0.0.1", LocalPort: 7777}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := mode.(*ListenMode).Address; got != "127.0.0.1:7777" {
		t.Errorf("Address = %q", got)
	}
}

// TestBuild_NoDNS verifies that a hostname with -n is rejected and a
// numeric address accepted.
func TestBuild_NoDNS(t *testing.T) {
	tests := []struct {
		host    string
		wantErr bool
	}{
		{"mud.example.com", true},
		{"127.0.0.1", false},
		{"::1", false},
	}
	for _, tt := range tests {
		_, err := Build(&config.Config{Host: tt.host, Port: 7777, NoDNS: true}, nil, nil)
		if (err != nil) != tt.wantErr {
			t.Errorf("Build(%q) error = %v, wantErr %v", tt.host, err, tt.wantErr)
		}
	}
}

func TestBuild_Retries(t *testing.T) {
	mode, err := Build(&config.Config{Host: "mud", Port: 7777, Retries: 3}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := mode.(*ConnectMode).Dialer.(*transport.RetryDialer); !ok {
		t.Errorf("expected a retrying dialer, got %T", mode.(*ConnectMode).Dialer)
	}
}

func TestBuild_CordTypes(t *testing.T) {
	cfg := &config.Config{Host: "mud", Port: 7777, CordTypes: []string{"chat", "map"}, OpenCords: []string{"map"}}

	mode, err := Build(cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	e := endpoint(t, mode.(*ConnectMode).Capability)
	if got := e.Registry.CordTypes(); len(got) != 2 {
		t.Errorf("CordTypes = %v", got)
	}
	if e.OnNegotiated == nil {
		t.Error("OpenCords should install an OnNegotiated callback")
	}

	cfg.CordTypes = []string{"chat", "chat"}
	if _, err := Build(cfg, nil, nil); !errors.Is(err, mcp.ErrDuplicateCordHandler) {
		t.Errorf("expected ErrDuplicateCordHandler, got %v", err)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want []string
	}{
		{"connect", config.Config{Host: "mud", Port: 7777}, []string{"connect to mud:7777", "MCP client"}},
		{"retries", config.Config{Host: "mud", Port: 7777, Retries: 2}, []string{"(2 retries)"}},
		{"tunnel", config.Config{Host: "mud", Port: 7777, TunnelEnabled: true, TunnelUser: "u", TunnelHost: "gw", TunnelPort: 22}, []string{"via ssh u@gw:22"}},
		{"listen", config.Config{Listen: true, LocalPort: 7777, KeepOpen: true}, []string{"listen on 0.0.0.0:7777", "MCP server", "keep open"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Describe(&tt.cfg)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("Describe() = %q, missing %q", got, w)
				}
			}
		})
	}
}
