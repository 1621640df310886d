package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultListenAddress is the address listen mode binds to.
	DefaultListenAddress = "0.0.0.0"

	// DefaultConnTimeout is the TCP/SSH connection timeout.
	DefaultConnTimeout = 30 * time.Second

	// DefaultRetryBaseDelay is the first backoff step between dial
	// attempts.
	DefaultRetryBaseDelay = 500 * time.Millisecond

	// DefaultRetryMaxDelay caps the exponential backoff between dial
	// attempts.
	DefaultRetryMaxDelay = 30 * time.Second

	// DefaultGracePeriod is how long listen mode waits for open
	// sessions to finish on shutdown.
	DefaultGracePeriod = 5 * time.Second

	// DefaultConfigFile is read when it exists and no other file was
	// named, relative to the user's config directory.
	DefaultConfigFile = "mcpnc/config.toml"
)

// Default returns a Config populated with the defaults above.
func Default() *Config {
	return &Config{
		Timeout: DefaultConnTimeout,
		Verbose: 1,
	}
}
