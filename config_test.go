package sessioncore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lernia-dev/sessioncore/rate"
	"github.com/lernia-dev/sessioncore/role"
	"github.com/lernia-dev/sessioncore/session"
)

func TestDefaultConfigValidatesWithSecret(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("defaults without a secret must not validate")
	}

	cfg.TokenSecret = "test-secret-test-secret-32bytes!"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	base := func() Config {
		cfg := DefaultConfig()
		cfg.TokenSecret = "test-secret-test-secret-32bytes!"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short secret", func(c *Config) { c.TokenSecret = "short" }},
		{"negative reset ttl", func(c *Config) { c.ResetTTL = -time.Minute }},
		{"zero rate window", func(c *Config) { c.RateLimits.Strict.Window = 0 }},
		{"zero rate budget", func(c *Config) { c.RateLimits.Auth.MaxRequests = 0 }},
		{"unknown role policy", func(c *Config) {
			c.Sessions[role.Role(99)] = session.Policy{TTL: time.Hour, MaxSessions: 1}
		}},
		{"negative cap", func(c *Config) {
			c.Sessions[role.User] = session.Policy{TTL: time.Hour, MaxSessions: -1}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "env-secret-env-secret-32-bytes!!")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("USER_SESSION_TTL_HOURS", "12")
	t.Setenv("USER_MAX_SESSIONS", "5")
	t.Setenv("RATE_AUTH_MAX_REQUESTS", "3")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.TokenSecret != "env-secret-env-secret-32-bytes!!" {
		t.Fatalf("secret not taken from env: %q", cfg.TokenSecret)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Fatalf("redis addr %q", cfg.Redis.Addr)
	}
	if got := cfg.Sessions[role.User]; got.TTL != 12*time.Hour || got.MaxSessions != 5 {
		t.Fatalf("user policy %+v", got)
	}
	// Roles without overrides keep their defaults.
	if got := cfg.Sessions[role.Admin]; got.MaxSessions != role.Admin.DefaultMaxSessions() {
		t.Fatalf("admin policy %+v", got)
	}
	if cfg.RateLimits.Auth.MaxRequests != 3 {
		t.Fatalf("auth budget %d", cfg.RateLimits.Auth.MaxRequests)
	}
	if cfg.RateLimits.Standard != rate.StandardProfile() {
		t.Fatalf("standard profile %+v", cfg.RateLimits.Standard)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config must validate: %v", err)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "" +
		"TOKEN_SECRET: file-secret-file-secret-32bytes!\n" +
		"TOKEN_ISSUER: lernia\n" +
		"RESET_TTL_SECONDS: 900\n" +
		"RATE_STRICT_WINDOW_MS: 30000\n" +
		"RATE_STRICT_MAX_REQUESTS: 10\n"
	if err := os.WriteFile(filepath.Join(dir, "sessioncore.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.TokenSecret != "file-secret-file-secret-32bytes!" || cfg.TokenIssuer != "lernia" {
		t.Fatalf("file values not applied: %q %q", cfg.TokenSecret, cfg.TokenIssuer)
	}
	if cfg.ResetTTL != 15*time.Minute {
		t.Fatalf("reset ttl %v", cfg.ResetTTL)
	}
	if cfg.RateLimits.Strict != (rate.Profile{Window: 30 * time.Second, MaxRequests: 10}) {
		t.Fatalf("strict profile %+v", cfg.RateLimits.Strict)
	}
}

func TestLoadConfigMissingFileIsFine(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "env-secret-env-secret-32-bytes!!")

	if _, err := LoadConfig(t.TempDir()); err != nil {
		t.Fatalf("missing file must not fail: %v", err)
	}
}
