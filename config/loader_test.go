package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadFromEnv_Host(t *testing.T) {
	t.Setenv("MCPNC_HOST", "mud.example.com")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if cfg.Host != "mud.example.com" {
		t.Errorf("Host = %q, want %q", cfg.Host, "mud.example.com")
	}
}

func TestLoadFromEnv_Port(t *testing.T) {
	t.Setenv("MCPNC_PORT", "8080")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if cfg.LocalPort != 8080 {
		t.Errorf("LocalPort = %d, want 8080", cfg.LocalPort)
	}
}

func TestLoadFromEnv_Booleans(t *testing.T) {
	tests := []struct {
		key    string
		values []string
		get    func(*Config) bool
	}{
		{"MCPNC_LISTEN", []string{"1", "true", "yes", "TRUE", "Yes"}, func(c *Config) bool { return c.Listen }},
		{"MCPNC_NO_DNS", []string{"true"}, func(c *Config) bool { return c.NoDNS }},
		{"MCPNC_KEEP_OPEN", []string{"1"}, func(c *Config) bool { return c.KeepOpen }},
		{"MCPNC_CRLF", []string{"yes"}, func(c *Config) bool { return c.CRLF }},
		{"MCPNC_STATS", []string{"1"}, func(c *Config) bool { return c.Stats }},
	}

	for _, tt := range tests {
		for _, v := range tt.values {
			t.Run(tt.key+"="+v, func(t *testing.T) {
				t.Setenv(tt.key, v)
				cfg := &Config{}
				LoadFromEnv(cfg)
				if !tt.get(cfg) {
					t.Errorf("%s=%s should set the flag", tt.key, v)
				}
			})
		}
	}
}

func TestLoadFromEnv_Timeout(t *testing.T) {
	t.Setenv("MCPNC_TIMEOUT", "10")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout)
	}
}

func TestLoadFromEnv_Retry(t *testing.T) {
	t.Setenv("MCPNC_RETRY", "4")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if cfg.Retries != 4 {
		t.Errorf("Retries = %d, want 4", cfg.Retries)
	}
}

func TestLoadFromEnv_SSHFields(t *testing.T) {
	t.Setenv("MCPNC_TUNNEL", "admin@bastion:2222")
	t.Setenv("MCPNC_SSH_KEY", "/home/user/.ssh/id_rsa")
	t.Setenv("MCPNC_SSH_PASSWORD", "true")
	t.Setenv("MCPNC_SSH_AGENT", "1")
	t.Setenv("MCPNC_STRICT_HOSTKEY", "yes")
	t.Setenv("MCPNC_KNOWN_HOSTS", "/custom/known_hosts")

	cfg := &Config{}
	LoadFromEnv(cfg)

	if cfg.TunnelSpec != "admin@bastion:2222" {
		t.Errorf("TunnelSpec = %q", cfg.TunnelSpec)
	}
	if cfg.SSHKeyPath != "/home/user/.ssh/id_rsa" {
		t.Errorf("SSHKeyPath = %q", cfg.SSHKeyPath)
	}
	if !cfg.SSHPassword {
		t.Error("SSHPassword should be true")
	}
	if !cfg.UseSSHAgent {
		t.Error("UseSSHAgent should be true")
	}
	if !cfg.StrictHostKey {
		t.Error("StrictHostKey should be true")
	}
	if cfg.KnownHostsPath != "/custom/known_hosts" {
		t.Errorf("KnownHostsPath = %q", cfg.KnownHostsPath)
	}
}

func TestLoadFromEnv_CordTypes(t *testing.T) {
	t.Setenv("MCPNC_CORD_TYPES", "chat, ,whisper")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if len(cfg.CordTypes) != 2 || cfg.CordTypes[0] != "chat" || cfg.CordTypes[1] != "whisper" {
		t.Errorf("CordTypes = %q", cfg.CordTypes)
	}
}

func TestLoadFromEnv_OpenCordsAndIdle(t *testing.T) {
	t.Setenv("MCPNC_OPEN_CORDS", "map")
	t.Setenv("MCPNC_IDLE", "90")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if len(cfg.OpenCords) != 1 || cfg.OpenCords[0] != "map" {
		t.Errorf("OpenCords = %q", cfg.OpenCords)
	}
	if cfg.IdleTimeout != 90*time.Second {
		t.Errorf("IdleTimeout = %v", cfg.IdleTimeout)
	}
}

func TestLoadFromEnv_NoOverrideWhenEmpty(t *testing.T) {
	// Ensure no MCPNC_ vars are set.
	os.Clearenv()

	cfg := &Config{Host: "original", LocalPort: 1234}
	LoadFromEnv(cfg)

	if cfg.Host != "original" {
		t.Errorf("Host was overridden: %q", cfg.Host)
	}
	if cfg.LocalPort != 1234 {
		t.Errorf("LocalPort was overridden: %d", cfg.LocalPort)
	}
}

func TestLoadFromEnv_InvalidIntIgnored(t *testing.T) {
	t.Setenv("MCPNC_PORT", "not-a-number")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if cfg.LocalPort != 0 {
		t.Errorf("LocalPort should be 0 for invalid input, got %d", cfg.LocalPort)
	}
}

func TestLoadFromEnv_Verbose(t *testing.T) {
	t.Setenv("MCPNC_VERBOSE", "3")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if cfg.Verbose != 3 {
		t.Errorf("Verbose = %d, want 3", cfg.Verbose)
	}
}
