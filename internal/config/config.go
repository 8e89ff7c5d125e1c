// Package config loads the gateway's process-wide configuration from
// environment variables, the way examples/main.go in the teacher loads
// Buffalo settings via envy.Load()+envy.Get(key, default). The result is
// an immutable value passed by value to every subsystem; nothing here is
// a package-level global (spec §9).
package config

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/gobuffalo/envy"
)

// Config is the immutable set of options recognized by the gateway
// (spec §6).
type Config struct {
	// CallbackURL is the controller's connect/disconnect callback
	// endpoint. Empty disables the service: both client endpoints then
	// return 503 (spec §4.D step 1, §6 Health).
	CallbackURL string

	// HeartbeatInterval is the period of the per-connection heartbeat
	// loop. Minimum 1 second; defaults to 15.
	HeartbeatInterval int

	// CallbackTimeout is the deadline for the outbound connect/disconnect
	// POST, covering the whole request including body read.
	CallbackTimeout int

	// ListenAddr is the address the HTTP server binds to. Out of the
	// core's scope per spec §1, but still a required part of a runnable
	// process.
	ListenAddr string

	// LogLevel controls the minimum level the structured logger emits.
	LogLevel string
}

const (
	defaultHeartbeatInterval = 15
	defaultCallbackTimeout   = 5
	defaultListenAddr        = ":8080"
	defaultLogLevel          = "info"
)

// Load reads Config from the environment. It fails fast only on a
// malformed ListenAddr, per the Config loader interface in spec §6. An
// invalid HEARTBEAT_INTERVAL_SECONDS does not fail startup: it is logged
// as an error and the default is substituted, per spec §4.F/§7.
func Load(log *slog.Logger) (Config, error) {
	envy.Load()
	// envy keeps its own copy of the environment taken at init; refresh it
	// so variables set after process start are seen.
	envy.Reload()

	cfg := Config{
		CallbackURL:       envy.Get("CONTROLLER_CALLBACK_URL", ""),
		ListenAddr:        envy.Get("LISTEN_ADDR", defaultListenAddr),
		LogLevel:          envy.Get("LOG_LEVEL", defaultLogLevel),
		HeartbeatInterval: parseHeartbeatInterval(envy.Get("HEARTBEAT_INTERVAL_SECONDS", ""), log),
		CallbackTimeout:   parsePositiveInt(envy.Get("CALLBACK_TIMEOUT_SECONDS", ""), defaultCallbackTimeout),
	}

	if _, _, err := net.SplitHostPort(cfg.ListenAddr); err != nil {
		return Config{}, fmt.Errorf("config: invalid LISTEN_ADDR %q: %w", cfg.ListenAddr, err)
	}

	return cfg, nil
}

func parseHeartbeatInterval(raw string, log *slog.Logger) int {
	if raw == "" {
		return defaultHeartbeatInterval
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		if log != nil {
			log.Error("invalid HEARTBEAT_INTERVAL_SECONDS, falling back to default",
				"value", raw, "default", defaultHeartbeatInterval)
		}
		return defaultHeartbeatInterval
	}
	return n
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
