// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"mcpnc/config"
	"mcpnc/internal/core"
	"mcpnc/internal/metrics"
	"mcpnc/mcp"
	"mcpnc/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X mcpnc/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the selected mcpnc mode.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("mcpnc", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// ── connection ───────────────────────────────────────────────
	fs.BoolVarP(&cfg.Listen, "listen", "l", cfg.Listen, "Listen mode (MCP server role)")
	fs.IntVarP(&cfg.LocalPort, "port", "p", cfg.LocalPort, "Local port number")
	fs.BoolVarP(&cfg.KeepOpen, "keep-open", "k", cfg.KeepOpen, "Accept multiple connections (with -l)")
	fs.BoolVarP(&cfg.NoDNS, "no-dns", "n", cfg.NoDNS, "Numeric-only, no DNS resolution")
	fs.BoolVarP(&cfg.CRLF, "crlf", "C", cfg.CRLF, "Send CRLF line endings")
	fs.IntVar(&cfg.Retries, "retry", cfg.Retries, "Retry a failed dial N times")

	timeoutSec := int(cfg.Timeout / time.Second)
	fs.IntVarP(&timeoutSec, "wait", "w", timeoutSec, "Connect timeout in seconds")
	idleSec := int(cfg.IdleTimeout / time.Second)
	fs.IntVar(&idleSec, "idle", idleSec, "Close after N seconds without peer input (0 = never)")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "SSH tunnel via [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── protocol ─────────────────────────────────────────────────
	fs.StringSliceVar(&cfg.CordTypes, "cord-type", cfg.CordTypes, "Log cords of this type (repeatable)")
	fs.StringSliceVar(&cfg.OpenCords, "open-cord", cfg.OpenCords, "Open a cord of this type after negotiation (repeatable)")
	fs.BoolVar(&cfg.Stats, "stats", cfg.Stats, "Print protocol counters as JSON on exit")

	// ── output ───────────────────────────────────────────────────
	baseVerbose := cfg.Verbose
	var extraVerbose int
	fs.CountVarP(&extraVerbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Validate and print the plan without connecting")
	fs.String("config", cfg.ConfigFile, "TOML config file")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs, stderr) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(fs, stderr)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "mcpnc %s (MCP %s)\n", version, mcp.ProtocolVersion)
		return nil
	}

	cfg.Verbose = baseVerbose + extraVerbose
	if fs.Changed("wait") {
		cfg.Timeout = time.Duration(timeoutSec) * time.Second
	}
	if fs.Changed("idle") {
		cfg.IdleTimeout = time.Duration(idleSec) * time.Second
	}

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── tunnel spec + validate ───────────────────────────────────
	if err := cfg.ApplyTunnelSpec(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.DryRun {
		fmt.Fprintln(stdout, core.Describe(cfg))
		return nil
	}

	// ── build + run ──────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	logger.SetOutput(stderr)
	if cfg.ConfigFile != "" {
		logger.Debug("loaded config %s", cfg.ConfigFile)
	}

	m := metrics.New()
	mode, err := core.Build(cfg, logger, m)
	if err != nil {
		return err
	}

	runErr := mode.Run(ctx)
	if runErr != nil {
		m.RecordError(runErr.Error())
	}
	if cfg.Stats {
		fmt.Fprintln(stderr, m.JSON())
	}
	return runErr
}

// loadConfig applies defaults, then the config file, then MCPNC_*
// variables.  Flags are layered on afterwards by the caller.
func loadConfig(args []string) (*config.Config, error) {
	cfg := config.Default()

	path := configFlag(args)
	if path == "" {
		path = os.Getenv(config.ConfigFileEnv)
	}
	var err error
	if path != "" {
		err = config.LoadFile(cfg, path)
	} else {
		err = config.LoadDefaultFile(cfg)
	}
	if err != nil {
		return nil, err
	}

	config.LoadFromEnv(cfg)
	return cfg, nil
}

// configFlag finds --config ahead of the real parse, since the file
// supplies the defaults the other flags are declared with.
func configFlag(args []string) string {
	for i, a := range args {
		switch {
		case a == "--":
			return ""
		case strings.HasPrefix(a, "--config="):
			return strings.TrimPrefix(a, "--config=")
		case a == "--config" && i+1 < len(args):
			return args[i+1]
		}
	}
	return ""
}

// ── helpers ──────────────────────────────────────────────────────────

func parsePositional(cfg *config.Config, remaining []string) error {
	if cfg.Listen {
		switch len(remaining) {
		case 0: // mcpnc -l -p PORT
		case 1, 2:
			cfg.Host = remaining[0]
			if len(remaining) == 2 {
				port, err := config.ParsePort(remaining[1])
				if err != nil {
					return fmt.Errorf("port: %w", err)
				}
				cfg.LocalPort = port
			}
		default:
			return fmt.Errorf("too many arguments for listen mode")
		}
		return nil
	}

	switch len(remaining) {
	case 0:
		if cfg.Host == "" {
			return fmt.Errorf("hostname required (use --help for usage)")
		}
	case 1, 2:
		cfg.Host = remaining[0]
	default:
		return fmt.Errorf("too many arguments: expected <host> <port>")
	}

	if len(remaining) == 2 {
		port, err := config.ParsePort(remaining[1])
		if err != nil {
			return fmt.Errorf("port: %w", err)
		}
		cfg.Port = port
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port required")
	}
	return nil
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, `mcpnc – MUD Client Protocol netcat v%s

Speaks MCP %s over a plain TCP line stream, optionally through an SSH
gateway.  Text lines pass through; MCP out-of-band lines are handled.

Usage:
  mcpnc [options] <host> <port>               Connect (MCP client)
  mcpnc -l -p <port> [options]                Listen (MCP server)
  mcpnc -T user@gateway <host> <port>         Connect through SSH

Options:
`, version, mcp.ProtocolVersion)
	fmt.Fprint(w, fs.FlagUsages())
	fmt.Fprintf(w, `
Examples:
  mcpnc mud.example.com 7777                  Play with MCP enabled
  mcpnc -l -k -p 7777 --cord-type whiteboard  Serve MCP, log cords
  mcpnc --open-cord whiteboard mud 7777       Open a cord once negotiated
  mcpnc --stats --idle 300 mud 7777           Print counters on exit
`)
}
