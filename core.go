package sessioncore

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lernia-dev/sessioncore/device"
	"github.com/lernia-dev/sessioncore/rate"
	"github.com/lernia-dev/sessioncore/reset"
	"github.com/lernia-dev/sessioncore/role"
	"github.com/lernia-dev/sessioncore/session"
	"github.com/lernia-dev/sessioncore/token"
)

// Core wires the session store, token service, reset tokens, rate limiters,
// and the auth gate around one injected Redis client. Construction is
// allocation-only; every Redis round trip happens inside component methods.
type Core struct {
	Sessions *session.Store
	Tokens   *token.Service
	Resets   *reset.Store
	Gate     *Gate

	Standard *rate.Limiter
	Strict   *rate.Limiter
	Auth     *rate.Limiter

	geoip *device.GeoIP
	log   zerolog.Logger
}

// NewRedisClient dials Redis from cfg and verifies the connection with a
// ping before returning. The caller owns the client and closes it.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sessioncore: redis connect: %w", err)
	}

	return client, nil
}

// New builds a Core from cfg and an injected Redis client.
func New(cfg Config, redisClient redis.UniversalClient, log zerolog.Logger) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ttls := make(map[role.Role]time.Duration, len(cfg.Sessions))
	for r, p := range cfg.Sessions {
		ttls[r] = p.TTL
	}
	tokens, err := token.NewService(token.Config{
		Secret: []byte(cfg.TokenSecret),
		Issuer: cfg.TokenIssuer,
		TTLs:   ttls,
	})
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore(redisClient, cfg.Sessions)

	core := &Core{
		Sessions: sessions,
		Tokens:   tokens,
		Resets:   reset.NewStore(redisClient, cfg.ResetTTL),
		Gate:     NewGate(tokens, sessions, log),
		Standard: rate.New(redisClient, cfg.RateLimits.Standard),
		Strict:   rate.New(redisClient, cfg.RateLimits.Strict),
		Auth:     rate.New(redisClient, cfg.RateLimits.Auth),
		log:      log,
	}

	if cfg.GeoIPDatabasePath != "" {
		geoip, err := device.OpenGeoIP(cfg.GeoIPDatabasePath)
		if err != nil {
			return nil, err
		}
		core.geoip = geoip
	}

	return core, nil
}

// Close releases resources the Core owns. The injected Redis client is the
// caller's to close.
func (c *Core) Close() error {
	return c.geoip.Close()
}

// LoginResult is returned from EstablishSession.
type LoginResult struct {
	// Result carries the session (persisted or, when LimitExceeded, the
	// display-only candidate) and the user's active session list.
	Result *session.CreateResult
	// Token and Cookie are only set when the session was admitted.
	Token  string
	Cookie *http.Cookie
}

// EstablishSession runs the login-side flow: extract device/IP/location
// from the request, admit a session under the role's cap, then issue the
// identity token and its role cookie. When the cap rejects the login it
// returns ErrSessionLimitExceeded alongside a result the caller can use to
// offer "terminate another session".
func (c *Core) EstablishSession(ctx context.Context, r *http.Request, userID, fullName, avatarLink string, rl role.Role) (*LoginResult, error) {
	info := device.Extract(r)

	result, err := c.Sessions.Create(ctx, session.CreateParams{
		UserID:    userID,
		Role:      rl,
		Device:    info.Label(),
		IP:        info.IP,
		UserAgent: info.UserAgent,
		Location:  c.geoip.LookupOrNil(info.IP),
	})
	if err != nil {
		return nil, err
	}

	if result.LimitExceeded {
		return &LoginResult{Result: result}, ErrSessionLimitExceeded
	}

	signed, err := c.Tokens.Issue(userID, fullName, avatarLink, rl, result.Session.SessionID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Result: result,
		Token:  signed,
		Cookie: SessionCookie(rl, signed, c.Sessions.TTL(rl)),
	}, nil
}

// Logout deletes the request's session for the role and returns the
// clearing cookie. Unauthenticated requests get ErrUnauthenticated.
func (c *Core) Logout(ctx context.Context, r *http.Request, rl role.Role) (*http.Cookie, error) {
	identity, err := c.Gate.Authenticate(ctx, r, rl)
	if err != nil {
		return nil, err
	}

	if err := c.Sessions.Invalidate(ctx, identity.SessionID, identity.UserID, rl); err != nil {
		return nil, err
	}

	return ClearSessionCookie(rl), nil
}

// SessionCookie builds the role's HTTP-only, SameSite-Lax token cookie with
// MaxAge equal to the session TTL.
func SessionCookie(r role.Role, signedToken string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     r.CookieName(),
		Value:    signedToken,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearSessionCookie builds the cookie that removes the role's token.
func ClearSessionCookie(r role.Role) *http.Cookie {
	return &http.Cookie{
		Name:     r.CookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
