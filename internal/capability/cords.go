package capability

import (
	"sort"
	"strconv"
	"strings"

	"mcpnc/internal/metrics"
	"mcpnc/mcp"
	"mcpnc/util"
)

// CordLogger returns a cord handler that logs every cord event at Info
// and counts it in m.
func CordLogger(logger *util.Logger, m *metrics.Collector) mcp.CordHandler {
	return mcp.CordHandlerFuncs{
		OnOpen: func(c mcp.Cord) {
			m.CordOpened()
			logger.Info("cord %s (%s) opened", c.ID, c.Type)
		},
		OnMessage: func(c mcp.Cord, msgType string, fields map[string]mcp.Value) {
			m.CordMessage()
			logger.Info("cord %s (%s) %s %s", c.ID, c.Type, msgType, FormatFields(fields))
		},
		OnClose: func(c mcp.Cord) {
			m.CordClosed()
			logger.Info("cord %s (%s) closed", c.ID, c.Type)
		},
	}
}

// RegisterCordLoggers installs CordLogger for each of types.
func RegisterCordLoggers(reg *mcp.Registry, types []string, logger *util.Logger, m *metrics.Collector) error {
	h := CordLogger(logger, m)
	for _, typ := range types {
		if err := reg.RegisterCordHandler(typ, h); err != nil {
			return err
		}
	}
	return nil
}

// OpenCords returns an OnNegotiated callback that opens one cord of
// each type, logged through CordLogger.  Nothing is opened when the
// peer did not negotiate mcp-cord.
func OpenCords(types []string, logger *util.Logger, m *metrics.Collector) func(*mcp.Connection) {
	h := CordLogger(logger, m)
	return func(c *mcp.Connection) {
		cords := c.Cords()
		if cords == nil {
			if len(types) > 0 {
				logger.Warn("peer did not negotiate %s; not opening cords", mcp.CordPackageName)
			}
			return
		}
		for _, typ := range types {
			cords.Open(typ, h)
		}
	}
}

// FormatFields renders fields as sorted key=value pairs with Go-quoted
// values, multiline values joined by newlines.
func FormatFields(fields map[string]mcp.Value) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.Quote(fields[k].Text()))
	}
	return b.String()
}
