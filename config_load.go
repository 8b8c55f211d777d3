package sessioncore

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/lernia-dev/sessioncore/rate"
	"github.com/lernia-dev/sessioncore/role"
)

// fileConfig is the flat shape read from config files and environment
// variables. It is converted into Config after unmarshalling.
type fileConfig struct {
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	TokenSecret string `mapstructure:"TOKEN_SECRET"`
	TokenIssuer string `mapstructure:"TOKEN_ISSUER"`

	UserSessionTTLHours  int `mapstructure:"USER_SESSION_TTL_HOURS"`
	AdminSessionTTLHours int `mapstructure:"ADMIN_SESSION_TTL_HOURS"`
	SuperSessionTTLHours int `mapstructure:"ADMINISTRATOR_SESSION_TTL_HOURS"`
	UserMaxSessions      int `mapstructure:"USER_MAX_SESSIONS"`
	AdminMaxSessions     int `mapstructure:"ADMIN_MAX_SESSIONS"`
	SuperMaxSessions     int `mapstructure:"ADMINISTRATOR_MAX_SESSIONS"`

	ResetTTLSeconds int `mapstructure:"RESET_TTL_SECONDS"`

	StandardWindowMs    int `mapstructure:"RATE_STANDARD_WINDOW_MS"`
	StandardMaxRequests int `mapstructure:"RATE_STANDARD_MAX_REQUESTS"`
	StrictWindowMs      int `mapstructure:"RATE_STRICT_WINDOW_MS"`
	StrictMaxRequests   int `mapstructure:"RATE_STRICT_MAX_REQUESTS"`
	AuthWindowMs        int `mapstructure:"RATE_AUTH_WINDOW_MS"`
	AuthMaxRequests     int `mapstructure:"RATE_AUTH_MAX_REQUESTS"`

	GeoIPDatabasePath string `mapstructure:"GEOIP_DATABASE_PATH"`
}

// LoadConfig reads configuration from an optional yaml file in the given
// search paths plus environment variables, layered over DefaultConfig.
// A missing config file is not an error; env vars alone are enough.
func LoadConfig(searchPaths ...string) (Config, error) {
	v := viper.New()
	v.SetConfigName("sessioncore")
	v.SetConfigType("yaml")
	if len(searchPaths) == 0 {
		searchPaths = []string{"."}
	}
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	v.AutomaticEnv()

	// Unmarshal only sees keys viper knows about, so bind every recognized
	// key instead of relying on AutomaticEnv alone.
	for _, key := range []string{
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"TOKEN_SECRET", "TOKEN_ISSUER",
		"USER_SESSION_TTL_HOURS", "ADMIN_SESSION_TTL_HOURS", "ADMINISTRATOR_SESSION_TTL_HOURS",
		"USER_MAX_SESSIONS", "ADMIN_MAX_SESSIONS", "ADMINISTRATOR_MAX_SESSIONS",
		"RESET_TTL_SECONDS",
		"RATE_STANDARD_WINDOW_MS", "RATE_STANDARD_MAX_REQUESTS",
		"RATE_STRICT_WINDOW_MS", "RATE_STRICT_MAX_REQUESTS",
		"RATE_AUTH_WINDOW_MS", "RATE_AUTH_MAX_REQUESTS",
		"GEOIP_DATABASE_PATH",
	} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("sessioncore: bind env %s: %w", key, err)
		}
	}

	defaults := DefaultConfig()
	v.SetDefault("REDIS_ADDR", defaults.Redis.Addr)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RESET_TTL_SECONDS", int(defaults.ResetTTL.Seconds()))
	v.SetDefault("RATE_STANDARD_WINDOW_MS", int(defaults.RateLimits.Standard.Window.Milliseconds()))
	v.SetDefault("RATE_STANDARD_MAX_REQUESTS", defaults.RateLimits.Standard.MaxRequests)
	v.SetDefault("RATE_STRICT_WINDOW_MS", int(defaults.RateLimits.Strict.Window.Milliseconds()))
	v.SetDefault("RATE_STRICT_MAX_REQUESTS", defaults.RateLimits.Strict.MaxRequests)
	v.SetDefault("RATE_AUTH_WINDOW_MS", int(defaults.RateLimits.Auth.Window.Milliseconds()))
	v.SetDefault("RATE_AUTH_MAX_REQUESTS", defaults.RateLimits.Auth.MaxRequests)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("sessioncore: read config: %w", err)
		}
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return Config{}, fmt.Errorf("sessioncore: unmarshal config: %w", err)
	}

	cfg := defaults
	cfg.Redis = RedisConfig{Addr: fc.RedisAddr, Password: fc.RedisPassword, DB: fc.RedisDB}
	cfg.TokenSecret = fc.TokenSecret
	cfg.TokenIssuer = fc.TokenIssuer
	cfg.GeoIPDatabasePath = fc.GeoIPDatabasePath
	cfg.ResetTTL = time.Duration(fc.ResetTTLSeconds) * time.Second
	cfg.RateLimits = RateLimitConfig{
		Standard: rate.Profile{Window: time.Duration(fc.StandardWindowMs) * time.Millisecond, MaxRequests: fc.StandardMaxRequests},
		Strict:   rate.Profile{Window: time.Duration(fc.StrictWindowMs) * time.Millisecond, MaxRequests: fc.StrictMaxRequests},
		Auth:     rate.Profile{Window: time.Duration(fc.AuthWindowMs) * time.Millisecond, MaxRequests: fc.AuthMaxRequests},
	}

	applyPolicy := func(r role.Role, ttlHours, maxSessions int) {
		p := cfg.Sessions[r]
		if ttlHours > 0 {
			p.TTL = time.Duration(ttlHours) * time.Hour
		}
		if maxSessions > 0 {
			p.MaxSessions = maxSessions
		}
		cfg.Sessions[r] = p
	}
	applyPolicy(role.User, fc.UserSessionTTLHours, fc.UserMaxSessions)
	applyPolicy(role.Admin, fc.AdminSessionTTLHours, fc.AdminMaxSessions)
	applyPolicy(role.Administrator, fc.SuperSessionTTLHours, fc.SuperMaxSessions)

	return cfg, nil
}
