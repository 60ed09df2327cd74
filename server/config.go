package server

import (
	"github.com/purc-tools/purcrdr/constants"
	"github.com/purc-tools/purcrdr/control"
	"github.com/purc-tools/purcrdr/logging"
)

// Config holds the server's listen addresses and housekeeping
// overrides. Zero-value fields fall back to the package defaults.
type Config struct {
	// UnixSocketPath is the path the US listener binds; empty means
	// the US listener is disabled.
	UnixSocketPath string

	// WSAddr is the "host:port" the WebSocket listener binds (tcp);
	// empty means the WS listener is disabled.
	WSAddr string

	MaxClientsEachListener int

	Logger logging.Logger

	// Housekeeping holds the reap/ping/no-responding intervals as a
	// hot-reloadable control.ConfigStore; nil means Run uses a store
	// seeded with the package defaults and never reloaded.
	Housekeeping *control.ConfigStore
}

// DefaultConfig returns a US-only server configuration bound at the
// spec's default socket path.
func DefaultConfig() *Config {
	return &Config{
		UnixSocketPath:         constants.DefaultUnixSocketPath,
		MaxClientsEachListener: constants.MaxClientsEachListener,
		Logger:                 logging.NewDefault("purcrdr"),
		Housekeeping:           control.NewConfigStore(),
	}
}

func (c *Config) withDefaults() *Config {
	cfg := *c
	if cfg.MaxClientsEachListener == 0 {
		cfg.MaxClientsEachListener = constants.MaxClientsEachListener
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.Housekeeping == nil {
		cfg.Housekeeping = control.NewConfigStore()
	}
	return &cfg
}
