package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "static-test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTPPort != 3000 {
		t.Errorf("Expected default port 3000, got %d", cfg.HTTPPort)
	}
	if cfg.Policy.BreakerThreshold != 5 {
		t.Errorf("Expected default breaker threshold 5, got %d", cfg.Policy.BreakerThreshold)
	}
	if cfg.SecretsCacheTTL != 5*time.Minute {
		t.Errorf("Expected default secrets TTL 5m, got %s", cfg.SecretsCacheTTL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "static-test-secret")
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("SECRETS_CACHE_TTL", "90s")
	t.Setenv("AUTH_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.SecretsCacheTTL != 90*time.Second {
		t.Errorf("Expected 90s TTL, got %s", cfg.SecretsCacheTTL)
	}
	if cfg.AuthEnabled {
		t.Error("Expected auth disabled")
	}
}

func TestLoadPolicy_EmptyPathUsesDefaults(t *testing.T) {
	p, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("LoadPolicy returned error: %v", err)
	}
	if p != DefaultPolicy() {
		t.Errorf("Expected defaults, got %+v", p)
	}
}

func TestLoadPolicy_OverlayKeepsUnsetDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	data := []byte("breaker_threshold: 10\nlimiter_rate: 0.5\nmutation_wait: 2s\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy returned error: %v", err)
	}
	if p.BreakerThreshold != 10 {
		t.Errorf("Expected threshold 10, got %d", p.BreakerThreshold)
	}
	if p.LimiterRate != 0.5 {
		t.Errorf("Expected rate 0.5, got %f", p.LimiterRate)
	}
	if p.MutationWait != 2*time.Second {
		t.Errorf("Expected 2s mutation wait, got %s", p.MutationWait)
	}
	// Fields absent from the file keep defaults.
	if p.BreakerCooldown != DefaultPolicy().BreakerCooldown {
		t.Errorf("Expected default cooldown, got %s", p.BreakerCooldown)
	}
	if p.LimiterBurst != DefaultPolicy().LimiterBurst {
		t.Errorf("Expected default burst, got %d", p.LimiterBurst)
	}
}

func TestLoadPolicy_BadFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	os.WriteFile(path, []byte("breaker_threshold: [not an int]"), 0644)

	if _, err := LoadPolicy(path); err == nil {
		t.Fatal("Expected error for malformed policy file")
	}
}
