package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	// ensure defaults kick in with empty env
	os.Unsetenv("HTTP_ADDR")
	os.Unsetenv("LAYOUT_BARNES_HUT_THETA")
	os.Unsetenv("LAYOUT_LINK_STRENGTH")
	os.Unsetenv("LAYOUT_ANTI_GRAVITY_STRENGTH")
	os.Unsetenv("RATE_LIMIT_BURST")
	ResetForTest()

	cfg := Load()
	if cfg.HTTPAddr == "" {
		t.Fatalf("expected default HTTP address, got empty")
	}
	if cfg.LayoutTheta != 1.0 {
		t.Fatalf("expected default theta=1.0, got %f", cfg.LayoutTheta)
	}
	if cfg.LinkStrength != 4.0 || cfg.AntiGravityStrength != 1.0 {
		t.Fatalf("unexpected defaults: link=%f anti-gravity=%f", cfg.LinkStrength, cfg.AntiGravityStrength)
	}
	if cfg.RateLimitBurst != 5 {
		t.Fatalf("expected default RateLimitBurst=5, got %d", cfg.RateLimitBurst)
	}
}
