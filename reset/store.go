// Package reset implements single-use, TTL-bound password reset tokens.
// The externally visible token is <rolePrefix>_<64 hex chars>, so the role
// is recoverable from the token itself without a store lookup.
package reset

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lernia-dev/sessioncore/role"
)

var (
	// ErrInvalidToken covers every validation failure: malformed external
	// token, unknown prefix, expired, consumed, or never issued. Callers
	// surface it as one undifferentiated "invalid or expired" message.
	ErrInvalidToken = errors.New("reset token invalid or expired")
	// ErrRedisUnavailable wraps transport failures talking to Redis.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const (
	keyPrefix  = "pwreset"
	rawBytes   = 32
	separator  = "_"
	DefaultTTL = time.Hour
)

// Data is the record stored behind a reset token.
type Data struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store issues and validates password reset tokens in Redis.
type Store struct {
	redis redis.UniversalClient
	ttl   time.Duration
}

// NewStore creates a reset token Store. ttl <= 0 falls back to DefaultTTL.
func NewStore(redisClient redis.UniversalClient, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{redis: redisClient, ttl: ttl}
}

func key(r role.Role, rawToken string) string {
	return keyPrefix + ":" + r.String() + ":" + rawToken
}

// Generate creates 32 bytes of cryptographically random data, stores the
// record under pwreset:<role>:<rawToken>, and returns the external token.
func (s *Store) Generate(ctx context.Context, userID, email string, r role.Role) (string, error) {
	if !r.Valid() {
		return "", role.ErrUnknownRole
	}

	raw := make([]byte, rawBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	rawToken := hex.EncodeToString(raw)

	data, err := json.Marshal(Data{UserID: userID, Email: email, CreatedAt: time.Now().UTC()})
	if err != nil {
		return "", err
	}

	if err := s.redis.Set(ctx, key(r, rawToken), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return r.ResetPrefix() + separator + rawToken, nil
}

// Validate recovers the role from the token prefix and looks the record up.
// A malformed token fails exactly like an expired one.
func (s *Store) Validate(ctx context.Context, externalToken string) (*Data, role.Role, error) {
	r, rawToken, err := split(externalToken)
	if err != nil {
		return nil, 0, ErrInvalidToken
	}

	payload, err := s.redis.Get(ctx, key(r, rawToken)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, 0, ErrInvalidToken
		}
		return nil, 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, 0, ErrInvalidToken
	}

	return &data, r, nil
}

// Invalidate deletes the token record. Called right after a successful
// password change to enforce single use ahead of the TTL. Idempotent.
func (s *Store) Invalidate(ctx context.Context, externalToken string) error {
	r, rawToken, err := split(externalToken)
	if err != nil {
		// Nothing to delete for a token that could never have been issued.
		return nil
	}

	if err := s.redis.Del(ctx, key(r, rawToken)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func split(externalToken string) (role.Role, string, error) {
	prefix, rawToken, found := strings.Cut(externalToken, separator)
	if !found || rawToken == "" {
		return 0, "", ErrInvalidToken
	}

	r, err := role.ParseResetPrefix(prefix)
	if err != nil {
		return 0, "", ErrInvalidToken
	}
	return r, rawToken, nil
}
