package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want development", cfg.Env)
	}
	if cfg.IsProduction() {
		t.Error("IsProduction() true for development")
	}
	if cfg.Addr() != "0.0.0.0:8000" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
	if cfg.RosterTTL != 5*time.Minute {
		t.Errorf("RosterTTL = %v", cfg.RosterTTL)
	}
	if cfg.RateLimitMax != 300 {
		t.Errorf("development RateLimitMax = %d, want 300", cfg.RateLimitMax)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PORT", "9100")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("ROSTER_CACHE_TTL", "90s")
	t.Setenv("RATE_LIMIT_WINDOW", "not-a-duration")

	cfg := Load()
	if !cfg.IsProduction() {
		t.Error("IsProduction() false for production")
	}
	if cfg.Port != "9100" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.RosterTTL != 90*time.Second {
		t.Errorf("RosterTTL = %v, want 90s", cfg.RosterTTL)
	}
	if cfg.RateLimitSpan != 15*time.Minute {
		t.Errorf("invalid duration did not fall back: %v", cfg.RateLimitSpan)
	}
	if cfg.RateLimitMax != 60 {
		t.Errorf("production RateLimitMax = %d, want 60", cfg.RateLimitMax)
	}
}
