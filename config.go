package sessioncore

import (
	"errors"
	"time"

	"github.com/lernia-dev/sessioncore/rate"
	"github.com/lernia-dev/sessioncore/reset"
	"github.com/lernia-dev/sessioncore/session"
)

// RedisConfig describes the Redis connection used by every component.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RateLimitConfig holds the three limiter profiles the platform runs with.
type RateLimitConfig struct {
	Standard rate.Profile
	Strict   rate.Profile
	Auth     rate.Profile
}

// Config is the recognized configuration surface. Construct with
// DefaultConfig and override, or load from file/env with LoadConfig.
type Config struct {
	Redis RedisConfig

	// TokenSecret signs identity tokens. Required, no default.
	TokenSecret string
	TokenIssuer string

	// Sessions carries per-role TTLs and concurrency caps. Roles left out
	// use the role defaults.
	Sessions session.Policies

	// ResetTTL bounds password reset token lifetime.
	ResetTTL time.Duration

	RateLimits RateLimitConfig

	// GeoIPDatabasePath points at a MaxMind GeoLite2-City database. Empty
	// disables location enrichment; sessions then carry a nil location.
	GeoIPDatabasePath string
}

// DefaultConfig returns the built-in defaults. TokenSecret stays empty and
// must be supplied by the host.
func DefaultConfig() Config {
	return Config{
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Sessions: session.DefaultPolicies(),
		ResetTTL: reset.DefaultTTL,
		RateLimits: RateLimitConfig{
			Standard: rate.StandardProfile(),
			Strict:   rate.StrictProfile(),
			Auth:     rate.AuthProfile(),
		},
	}
}

// Validate checks the configuration before Core construction.
func (c *Config) Validate() error {
	if c.TokenSecret == "" {
		return errors.New("sessioncore: token secret is required")
	}
	if len(c.TokenSecret) < 32 {
		return errors.New("sessioncore: token secret must be at least 32 bytes")
	}
	if c.ResetTTL < 0 {
		return errors.New("sessioncore: reset ttl must not be negative")
	}
	for _, p := range []rate.Profile{c.RateLimits.Standard, c.RateLimits.Strict, c.RateLimits.Auth} {
		if p.Window <= 0 || p.MaxRequests <= 0 {
			return errors.New("sessioncore: rate limit profiles need a positive window and budget")
		}
	}
	for r, p := range c.Sessions {
		if !r.Valid() {
			return errors.New("sessioncore: session policy for unknown role")
		}
		if p.TTL < 0 || p.MaxSessions < 0 {
			return errors.New("sessioncore: session policy values must not be negative")
		}
	}
	return nil
}
