package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONTROLLER_CALLBACK_URL", "HEARTBEAT_INTERVAL_SECONDS",
		"CALLBACK_TIMEOUT_SECONDS", "LISTEN_ADDR", "LOG_LEVEL",
	} {
		orig, had := os.LookupEnv(key)
		_ = os.Unsetenv(key)
		t.Cleanup(func() {
			if had {
				_ = os.Setenv(key, orig)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CallbackURL != "" {
		t.Errorf("expected empty CallbackURL, got %q", cfg.CallbackURL)
	}
	if cfg.HeartbeatInterval != defaultHeartbeatInterval {
		t.Errorf("HeartbeatInterval = %d, want %d", cfg.HeartbeatInterval, defaultHeartbeatInterval)
	}
	if cfg.ListenAddr != defaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, defaultListenAddr)
	}
}

func TestLoad_InvalidHeartbeat_FallsBackToDefault(t *testing.T) {
	clearEnv(t)
	_ = os.Setenv("HEARTBEAT_INTERVAL_SECONDS", "-5")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load should not fail on invalid heartbeat interval: %v", err)
	}
	if cfg.HeartbeatInterval != defaultHeartbeatInterval {
		t.Errorf("HeartbeatInterval = %d, want default %d", cfg.HeartbeatInterval, defaultHeartbeatInterval)
	}
}

func TestLoad_NonIntegerHeartbeat_FallsBackToDefault(t *testing.T) {
	clearEnv(t)
	_ = os.Setenv("HEARTBEAT_INTERVAL_SECONDS", "soon")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load should not fail: %v", err)
	}
	if cfg.HeartbeatInterval != defaultHeartbeatInterval {
		t.Errorf("HeartbeatInterval = %d, want default %d", cfg.HeartbeatInterval, defaultHeartbeatInterval)
	}
}

func TestLoad_ValidHeartbeat(t *testing.T) {
	clearEnv(t)
	_ = os.Setenv("HEARTBEAT_INTERVAL_SECONDS", "1")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HeartbeatInterval != 1 {
		t.Errorf("HeartbeatInterval = %d, want 1", cfg.HeartbeatInterval)
	}
}

func TestLoad_InvalidListenAddr(t *testing.T) {
	clearEnv(t)
	_ = os.Setenv("LISTEN_ADDR", "not-a-valid-addr")

	if _, err := Load(nil); err == nil {
		t.Fatal("expected error for malformed LISTEN_ADDR")
	}
}

func TestLoad_CallbackURLConfigured(t *testing.T) {
	clearEnv(t)
	_ = os.Setenv("CONTROLLER_CALLBACK_URL", "http://controller.internal/callback")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CallbackURL != "http://controller.internal/callback" {
		t.Errorf("CallbackURL = %q", cfg.CallbackURL)
	}
}
