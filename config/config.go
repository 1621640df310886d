// Package config defines the runtime configuration for mcpnc and provides
// helpers for parsing tunnel specifications and ports.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	nerrors "mcpnc/internal/errors"
)

// Config holds every tuneable for a single mcpnc session.
type Config struct {
	// ── Connection ───────────────────────────────────────────────────
	Host        string
	Port        int // destination port (connect mode)
	LocalPort   int // -p: local bind port (listen) or source port (connect)
	Listen      bool
	KeepOpen    bool
	Timeout     time.Duration
	IdleTimeout time.Duration // end a session after this long without peer input
	NoDNS       bool
	Retries     int  // extra dial attempts after the first
	CRLF        bool // terminate outgoing lines with CRLF

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Protocol ─────────────────────────────────────────────────────
	CordTypes []string // cord types answered by the logging handler
	OpenCords []string // cord types opened once negotiation completes
	Stats     bool     // print protocol counters on exit

	// ── Output ───────────────────────────────────────────────────────
	Verbose    int
	DryRun     bool
	ConfigFile string
}

// LineEnding returns the terminator for outgoing lines.
func (c *Config) LineEnding() string {
	if c.CRLF {
		return "\r\n"
	}
	return "\n"
}

// ── Port helpers ─────────────────────────────────────────────────────

// ParsePort accepts a numeric port in 1-65535.
func ParsePort(spec string) (int, error) {
	port, err := strconv.Atoi(spec)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", spec)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return port, nil
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q: expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("tunnel host is required")
	}
	return user, host, port, nil
}

// ApplyTunnelSpec parses TunnelSpec into the tunnel fields.  An empty
// spec disables the tunnel.
func (c *Config) ApplyTunnelSpec() error {
	if c.TunnelSpec == "" {
		c.TunnelEnabled = false
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return &nerrors.ConfigError{
			Field:   "tunnel",
			Value:   c.TunnelSpec,
			Message: err.Error(),
			Hint:    "use -T user@gateway[:port]",
		}
	}
	c.TunnelEnabled = true
	c.TunnelUser = user
	c.TunnelHost = host
	c.TunnelPort = port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Listen {
		if c.LocalPort == 0 {
			return &nerrors.ConfigError{
				Field:   "port",
				Message: "listen mode requires a local port",
				Hint:    "mcpnc -l -p 7777",
			}
		}
		if c.TunnelEnabled {
			return &nerrors.ConfigError{
				Field:   "tunnel",
				Value:   c.TunnelSpec,
				Message: "listen mode cannot run through an SSH tunnel",
				Hint:    "drop -T or connect instead of listening",
			}
		}
		if c.Retries > 0 {
			return &nerrors.ConfigError{
				Field:   "retry",
				Value:   c.Retries,
				Message: "retries only apply to connect mode",
			}
		}
	} else {
		if c.Host == "" {
			return &nerrors.ConfigError{
				Field:   "host",
				Message: "hostname is required",
				Hint:    "mcpnc <host> <port>, or -l -p <port> to listen",
			}
		}
		if c.Port == 0 {
			return &nerrors.ConfigError{
				Field:   "port",
				Message: "destination port is required",
				Hint:    "mcpnc <host> <port>",
			}
		}
		if c.KeepOpen {
			return &nerrors.ConfigError{
				Field:   "keep-open",
				Message: "-k only applies to listen mode",
			}
		}
	}

	if c.Port < 0 || c.Port > 65535 {
		return &nerrors.ConfigError{Field: "port", Value: c.Port, Message: "out of range 1-65535"}
	}
	if c.LocalPort < 0 || c.LocalPort > 65535 {
		return &nerrors.ConfigError{Field: "port", Value: c.LocalPort, Message: "out of range 1-65535"}
	}
	if c.Retries < 0 {
		return &nerrors.ConfigError{Field: "retry", Value: c.Retries, Message: "must not be negative"}
	}
	if c.Timeout < 0 {
		return &nerrors.ConfigError{Field: "wait", Value: c.Timeout, Message: "must not be negative"}
	}

	if c.TunnelEnabled && c.TunnelHost == "" {
		return &nerrors.ConfigError{Field: "tunnel", Message: "tunnel host is required"}
	}
	if c.StrictHostKey && !c.TunnelEnabled {
		return &nerrors.ConfigError{
			Field:   "strict-hostkey",
			Message: "only meaningful with an SSH tunnel",
			Hint:    "add -T user@gateway",
		}
	}

	if c.IdleTimeout < 0 {
		return &nerrors.ConfigError{Field: "idle", Value: c.IdleTimeout, Message: "must not be negative"}
	}

	if err := validateCordTypes("cord-type", c.CordTypes); err != nil {
		return err
	}
	return validateCordTypes("open-cord", c.OpenCords)
}

func validateCordTypes(field string, types []string) error {
	seen := make(map[string]bool, len(types))
	for _, t := range types {
		if t == "" {
			return &nerrors.ConfigError{Field: field, Message: "cord type must not be empty"}
		}
		if seen[t] {
			return &nerrors.ConfigError{Field: field, Value: t, Message: "listed twice"}
		}
		seen[t] = true
	}
	return nil
}
