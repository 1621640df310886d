package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. TOML config file  (file.go)
//   4. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the MCPNC_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// ConfigFileEnv names the config file when --config is not given.
const ConfigFileEnv = "MCPNC_CONFIG"

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("MCPNC_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("MCPNC_PORT"); v > 0 {
		cfg.LocalPort = v
	}
	if envBool("MCPNC_LISTEN") {
		cfg.Listen = true
	}
	if envBool("MCPNC_NO_DNS") {
		cfg.NoDNS = true
	}
	if envBool("MCPNC_KEEP_OPEN") {
		cfg.KeepOpen = true
	}
	if envBool("MCPNC_CRLF") {
		cfg.CRLF = true
	}
	if v := envInt("MCPNC_TIMEOUT"); v > 0 {
		cfg.Timeout = secondsDuration(v)
	}
	if v := envInt("MCPNC_IDLE"); v > 0 {
		cfg.IdleTimeout = secondsDuration(v)
	}
	if v := envInt("MCPNC_RETRY"); v > 0 {
		cfg.Retries = v
	}

	// SSH tunnel
	if v := os.Getenv("MCPNC_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("MCPNC_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("MCPNC_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("MCPNC_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("MCPNC_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("MCPNC_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Protocol
	if v := os.Getenv("MCPNC_CORD_TYPES"); v != "" {
		cfg.CordTypes = splitList(v)
	}
	if v := os.Getenv("MCPNC_OPEN_CORDS"); v != "" {
		cfg.OpenCords = splitList(v)
	}
	if envBool("MCPNC_STATS") {
		cfg.Stats = true
	}

	// Output
	if v := envInt("MCPNC_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
