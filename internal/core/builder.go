package core

import (
	"fmt"

	"mcpnc/config"
	"mcpnc/internal/capability"
	"mcpnc/internal/metrics"
	"mcpnc/internal/transport"
	"mcpnc/mcp"
	"mcpnc/util"
)

// Build constructs the appropriate Mode from the given configuration.
// Both modes get a fresh mcp.Registry carrying a logging cord handler
// for every cfg.CordTypes entry.
func Build(cfg *config.Config, logger *util.Logger, m *metrics.Collector) (Mode, error) {
	reg := mcp.NewRegistry()
	if err := capability.RegisterCordLoggers(reg, cfg.CordTypes, logger, m); err != nil {
		return nil, err
	}
	if cfg.Listen {
		return buildListen(cfg, reg, logger, m), nil
	}
	return buildConnect(cfg, reg, logger, m)
}

// ── mode builders ────────────────────────────────────────────────────

func buildConnect(cfg *config.Config, reg *mcp.Registry, logger *util.Logger, m *metrics.Collector) (Mode, error) {
	address, err := util.ResolveAddr(cfg.Host, cfg.Port, cfg.NoDNS)
	if err != nil {
		return nil, err
	}

	return &ConnectMode{
		Dialer:     transport.New(cfg, logger, m),
		Capability: buildEndpoint(cfg, reg, mcp.Client, logger, m),
		Network:    "tcp",
		Address:    address,
		Ending:     cfg.LineEnding(),
		Logger:     logger,
		Metrics:    m,
	}, nil
}

func buildListen(cfg *config.Config, reg *mcp.Registry, logger *util.Logger, m *metrics.Collector) Mode {
	host := cfg.Host
	if host == "" {
		host = config.DefaultListenAddress
	}

	return &ListenMode{
		Address:    util.FormatAddr(host, cfg.LocalPort),
		KeepOpen:   cfg.KeepOpen,
		Capability: buildEndpoint(cfg, reg, mcp.Server, logger, m),
		Ending:     cfg.LineEnding(),
		Logger:     logger,
		Metrics:    m,
	}
}

// buildEndpoint creates the per-connection MCP behaviour.
func buildEndpoint(cfg *config.Config, reg *mcp.Registry, role mcp.Role, logger *util.Logger, m *metrics.Collector) *capability.Endpoint {
	e := &capability.Endpoint{
		Registry:    reg,
		Role:        role,
		IdleTimeout: cfg.IdleTimeout,
	}
	if len(cfg.OpenCords) > 0 {
		e.OnNegotiated = capability.OpenCords(cfg.OpenCords, logger, m)
	}
	return e
}

// Describe summarises what Build would run, for --dry-run.
func Describe(cfg *config.Config) string {
	if cfg.Listen {
		host := cfg.Host
		if host == "" {
			host = config.DefaultListenAddress
		}
		s := fmt.Sprintf("listen on %s as MCP server", util.FormatAddr(host, cfg.LocalPort))
		if cfg.KeepOpen {
			s += " (keep open)"
		}
		return s
	}
	s := fmt.Sprintf("connect to %s as MCP client", util.FormatAddr(cfg.Host, cfg.Port))
	if cfg.TunnelEnabled {
		s += fmt.Sprintf(" via ssh %s@%s", cfg.TunnelUser, util.FormatAddr(cfg.TunnelHost, cfg.TunnelPort))
	}
	if cfg.Retries > 0 {
		s += fmt.Sprintf(" (%d retries)", cfg.Retries)
	}
	return s
}
