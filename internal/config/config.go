package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// HTTP Server Configuration
	HTTPPort int

	// Database Configuration
	DatabaseURL string

	// Ingest labels attached to every event as debug context
	IngestTopic  string
	IngestRegion string

	// Issue tracker configuration
	TrackerBaseURL string
	TrackerOwner   string
	TrackerRepo    string

	// Secrets configuration. When SecretsFile is set, credentials are
	// read from that JSON file with the environment as fallback.
	SecretsFile     string
	SecretsCacheTTL time.Duration

	// Slack notifications (empty channel disables them)
	SlackChannel string

	// Authentication Configuration
	AuthEnabled    bool
	AdminUsername  string
	AdminPassword  string
	JWTSecret      string
	JWTExpiryHours int

	// Policy tunes the resilience layer
	Policy Policy
}

// Policy holds the resilience tuning knobs. Defaults come from code;
// a YAML policy file overrides them.
type Policy struct {
	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerWindow    time.Duration `yaml:"breaker_window"`
	BreakerCooldown  time.Duration `yaml:"breaker_cooldown"`
	LimiterRate      float64       `yaml:"limiter_rate"`
	LimiterBurst     int           `yaml:"limiter_burst"`
	MutationWait     time.Duration `yaml:"mutation_wait"`
}

// DefaultPolicy returns the built-in resilience defaults.
func DefaultPolicy() Policy {
	return Policy{
		BreakerThreshold: 5,
		BreakerWindow:    time.Minute,
		BreakerCooldown:  30 * time.Second,
		LimiterRate:      2,
		LimiterBurst:     10,
		MutationWait:     5 * time.Second,
	}
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTPPort = getEnvAsIntOrDefault("HTTP_PORT", 3000)
	cfg.DatabaseURL = getEnvOrDefault("DATABASE_URL", "alerting.db")

	cfg.IngestTopic = getEnvOrDefault("INGEST_TOPIC", "webhook")
	cfg.IngestRegion = getEnvOrDefault("INGEST_REGION", "")

	cfg.TrackerBaseURL = os.Getenv("TRACKER_BASE_URL")
	cfg.TrackerOwner = os.Getenv("TRACKER_OWNER")
	cfg.TrackerRepo = os.Getenv("TRACKER_REPO")

	cfg.SecretsFile = os.Getenv("SECRETS_FILE")
	cfg.SecretsCacheTTL = getEnvAsDurationOrDefault("SECRETS_CACHE_TTL", 5*time.Minute)

	cfg.SlackChannel = os.Getenv("SLACK_CHANNEL")

	cfg.AuthEnabled = getEnvOrDefault("AUTH_ENABLED", "true") == "true"
	cfg.AdminUsername = getEnvOrDefault("ADMIN_USERNAME", "admin")
	cfg.AdminPassword = os.Getenv("ADMIN_PASSWORD") // No default - must be set
	cfg.JWTExpiryHours = getEnvAsIntOrDefault("JWT_EXPIRY_HOURS", 24)

	// JWT Secret: auto-generate and persist if not provided via env var
	cfg.JWTSecret = loadOrGenerateJWTSecret(getEnvOrDefault("JWT_SECRET_PATH", ".jwt_secret"))

	policy, err := LoadPolicy(os.Getenv("POLICY_FILE"))
	if err != nil {
		return nil, err
	}
	cfg.Policy = policy

	return cfg, nil
}

// LoadPolicy returns the defaults overlaid with a YAML policy file when
// path is non-empty. Zero values in the file keep the defaults.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("read policy file: %w", err)
	}

	var overlay Policy
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return policy, fmt.Errorf("parse policy file: %w", err)
	}

	if overlay.BreakerThreshold > 0 {
		policy.BreakerThreshold = overlay.BreakerThreshold
	}
	if overlay.BreakerWindow > 0 {
		policy.BreakerWindow = overlay.BreakerWindow
	}
	if overlay.BreakerCooldown > 0 {
		policy.BreakerCooldown = overlay.BreakerCooldown
	}
	if overlay.LimiterRate > 0 {
		policy.LimiterRate = overlay.LimiterRate
	}
	if overlay.LimiterBurst > 0 {
		policy.LimiterBurst = overlay.LimiterBurst
	}
	if overlay.MutationWait > 0 {
		policy.MutationWait = overlay.MutationWait
	}
	return policy, nil
}

// loadOrGenerateJWTSecret loads JWT secret from file or generates a new one
func loadOrGenerateJWTSecret(secretPath string) string {
	// First check if JWT_SECRET env var is set (allows override)
	if envSecret := os.Getenv("JWT_SECRET"); envSecret != "" {
		return envSecret
	}

	// Try to load existing secret from file
	if data, err := os.ReadFile(secretPath); err == nil {
		secret := strings.TrimSpace(string(data))
		if secret != "" {
			return secret
		}
	}

	// Generate new secret
	secret := generateSecureSecret(32) // 256 bits

	if err := os.MkdirAll(filepath.Dir(secretPath), 0755); err != nil {
		log.Warn("could not create directory for JWT secret", "error", err)
		return secret
	}

	if err := os.WriteFile(secretPath, []byte(secret), 0600); err != nil {
		log.Warn("could not save JWT secret", "error", err)
	} else {
		log.Info("generated new JWT secret", "path", secretPath)
	}

	return secret
}

// generateSecureSecret generates a cryptographically secure random string
func generateSecureSecret(bytes int) string {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		// Fallback to a less secure but functional default (should never happen)
		log.Warn("could not generate secure random bytes", "error", err)
		return "fallback-insecure-secret-please-set-jwt-secret-env"
	}
	return hex.EncodeToString(b)
}

// getEnvOrDefault returns the value of an environment variable or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault returns the value of an environment variable as an integer or a default value
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsDurationOrDefault parses an environment variable as a duration
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
