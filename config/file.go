package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	nerrors "mcpnc/internal/errors"
)

type fileTunnel struct {
	Spec          string `toml:"spec"`
	Key           string `toml:"key"`
	Password      bool   `toml:"password"`
	Agent         bool   `toml:"agent"`
	StrictHostKey bool   `toml:"strict_hostkey"`
	KnownHosts    string `toml:"known_hosts"`
}

type fileConfig struct {
	Host        string     `toml:"host"`
	Port        int        `toml:"port"`
	ListenPort  int        `toml:"listen_port"`
	Listen      bool       `toml:"listen"`
	KeepOpen    bool       `toml:"keep_open"`
	Timeout     string     `toml:"timeout"`
	IdleTimeout string     `toml:"idle_timeout"`
	NoDNS       bool       `toml:"no_dns"`
	Retry       int        `toml:"retry"`
	CRLF        bool       `toml:"crlf"`
	CordTypes   []string   `toml:"cord_types"`
	OpenCords   []string   `toml:"open_cords"`
	Stats       bool       `toml:"stats"`
	Verbose     int        `toml:"verbose"`
	Tunnel      fileTunnel `toml:"tunnel"`
}

// DefaultConfigPath returns the per-user config file location, or "" if
// the user config directory is unknown.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, DefaultConfigFile)
}

// LoadFile overlays the TOML file at path onto cfg.  Only keys present in
// the file change cfg.  Keys the file defines that mcpnc does not know
// are reported as a ConfigError so typos do not go unnoticed.
func LoadFile(cfg *Config, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return &nerrors.ConfigError{
			Field:   "config",
			Value:   path,
			Message: "unknown keys: " + strings.Join(keys, ", "),
			Hint:    "check the spelling against mcpnc --help",
		}
	}

	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("listen_port") {
		cfg.LocalPort = raw.ListenPort
	}
	if meta.IsDefined("listen") {
		cfg.Listen = raw.Listen
	}
	if meta.IsDefined("keep_open") {
		cfg.KeepOpen = raw.KeepOpen
	}
	if meta.IsDefined("timeout") {
		d, err := parseFileDuration("timeout", raw.Timeout)
		if err != nil {
			return err
		}
		cfg.Timeout = d
	}
	if meta.IsDefined("idle_timeout") {
		d, err := parseFileDuration("idle_timeout", raw.IdleTimeout)
		if err != nil {
			return err
		}
		cfg.IdleTimeout = d
	}
	if meta.IsDefined("no_dns") {
		cfg.NoDNS = raw.NoDNS
	}
	if meta.IsDefined("retry") {
		cfg.Retries = raw.Retry
	}
	if meta.IsDefined("crlf") {
		cfg.CRLF = raw.CRLF
	}
	if meta.IsDefined("cord_types") {
		cfg.CordTypes = normalizeList(raw.CordTypes)
	}
	if meta.IsDefined("open_cords") {
		cfg.OpenCords = normalizeList(raw.OpenCords)
	}
	if meta.IsDefined("stats") {
		cfg.Stats = raw.Stats
	}
	if meta.IsDefined("verbose") {
		cfg.Verbose = raw.Verbose
	}

	if meta.IsDefined("tunnel", "spec") {
		cfg.TunnelSpec = strings.TrimSpace(raw.Tunnel.Spec)
	}
	if meta.IsDefined("tunnel", "key") {
		cfg.SSHKeyPath = raw.Tunnel.Key
	}
	if meta.IsDefined("tunnel", "password") {
		cfg.SSHPassword = raw.Tunnel.Password
	}
	if meta.IsDefined("tunnel", "agent") {
		cfg.UseSSHAgent = raw.Tunnel.Agent
	}
	if meta.IsDefined("tunnel", "strict_hostkey") {
		cfg.StrictHostKey = raw.Tunnel.StrictHostKey
	}
	if meta.IsDefined("tunnel", "known_hosts") {
		cfg.KnownHostsPath = raw.Tunnel.KnownHosts
	}

	cfg.ConfigFile = path
	return nil
}

// LoadDefaultFile loads DefaultConfigPath when it exists.  A missing file
// is not an error.
func LoadDefaultFile(cfg *Config) error {
	path := DefaultConfigPath()
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return LoadFile(cfg, path)
}

func parseFileDuration(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, &nerrors.ConfigError{
			Field:   field,
			Value:   s,
			Message: err.Error(),
			Hint:    `use a Go duration such as "10s"`,
		}
	}
	return d, nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if v := strings.TrimSpace(s); v != "" {
			out = append(out, v)
		}
	}
	return out
}
