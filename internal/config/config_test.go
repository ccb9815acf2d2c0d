package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("OPERATING_MODE", "")
	t.Setenv("COMMISSION_CACHE_TTL_SECONDS", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.OperatingMode != ModeNormal {
		t.Fatalf("expected normal operating mode, got %q", cfg.OperatingMode)
	}
	if cfg.CommissionCacheTTLSeconds != 60 {
		t.Fatalf("expected 60s commission cache TTL, got %d", cfg.CommissionCacheTTLSeconds)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}

func TestLoadRejectsUnknownOperatingMode(t *testing.T) {
	t.Setenv("OPERATING_MODE", "kiosk")

	cfg := Load()
	if cfg.OperatingMode != ModeNormal {
		t.Fatalf("expected unknown mode to fall back to normal, got %q", cfg.OperatingMode)
	}
}
