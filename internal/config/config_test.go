package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Port)
	}
	if cfg.RateLimit.RequestsPerWindow != 10 || cfg.RateLimit.WindowDuration != time.Minute {
		t.Errorf("unexpected rate limit defaults: %+v", cfg.RateLimit)
	}
	if cfg.Digest.Enabled {
		t.Error("digests should be disabled by default")
	}
	if !cfg.IsDevelopment() {
		t.Error("no frontend URL should mean development mode")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("DIGEST_ENABLED", "true")
	t.Setenv("GENERATION_MIN_DELAY", "10ms")
	t.Setenv("GENERATION_MAX_DELAY", "20ms")
	t.Setenv("FRONTEND_URL", "https://app.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9999" {
		t.Errorf("port = %q, want 9999", cfg.Port)
	}
	if !cfg.Digest.Enabled {
		t.Error("DIGEST_ENABLED=true not applied")
	}
	if cfg.Generation.MinDelay != 10*time.Millisecond || cfg.Generation.MaxDelay != 20*time.Millisecond {
		t.Errorf("unexpected generation delays: %+v", cfg.Generation)
	}
	if cfg.IsDevelopment() {
		t.Error("a non-localhost frontend URL should mean production mode")
	}
}

func TestLoadInvalidDelayWindow(t *testing.T) {
	t.Setenv("GENERATION_MIN_DELAY", "5s")
	t.Setenv("GENERATION_MAX_DELAY", "1s")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for max delay below min delay")
	}
}

func TestGetEnvBoolParsing(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true}, {"true", true}, {"YES", true}, {"on", true},
		{"0", false}, {"false", false}, {"off", false}, {"garbage", false},
	}
	for _, tt := range tests {
		t.Setenv("TEST_BOOL", tt.value)
		if got := getEnvBool("TEST_BOOL", false); got != tt.want {
			t.Errorf("getEnvBool(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
