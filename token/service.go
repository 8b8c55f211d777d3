// Package token issues and verifies the signed identity tokens bound to
// sessions. Tokens are stateless: a valid signature is necessary but not
// sufficient, and revocation happens by deleting the session record, never
// by token blacklisting.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lernia-dev/sessioncore/role"
)

// ErrInvalidToken is returned for every verification failure — malformed,
// expired, wrong signature, wrong algorithm. Failure modes are deliberately
// not distinguished to avoid oracle leakage.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the signed identity payload. JSON field names are
// compatibility-binding with existing deployments.
type Claims struct {
	UserID     string    `json:"userId"`
	FullName   string    `json:"fullName"`
	AvatarLink string    `json:"avatarLink,omitempty"`
	Role       role.Role `json:"role"`
	SessionID  string    `json:"sessionId"`
	jwt.RegisteredClaims
}

// Config holds the signing parameters. The secret and issuer are fixed for
// the process lifetime; per-role expiry comes from the role's session TTL.
type Config struct {
	Secret []byte
	Issuer string
	// TTLs maps each role to its token lifetime. Roles absent from the map
	// use the role's default session TTL.
	TTLs map[role.Role]time.Duration
}

// Service signs and verifies identity tokens with HS256.
type Service struct {
	config Config
}

// NewService validates cfg and returns a Service.
func NewService(cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token: secret is required")
	}
	if cfg.TTLs == nil {
		cfg.TTLs = map[role.Role]time.Duration{}
	}
	for _, r := range role.All() {
		if cfg.TTLs[r] <= 0 {
			cfg.TTLs[r] = r.DefaultSessionTTL()
		}
	}
	return &Service{config: cfg}, nil
}

// TTL returns the token lifetime for a role.
func (s *Service) TTL(r role.Role) time.Duration {
	return s.config.TTLs[r]
}

// Issue signs an identity token for the given claims. Expiry is the role's
// session TTL; there is no per-call configuration.
func (s *Service) Issue(userID, fullName, avatarLink string, r role.Role, sessionID string) (string, error) {
	if !r.Valid() {
		return "", role.ErrUnknownRole
	}

	now := time.Now()
	claims := Claims{
		UserID:     userID,
		FullName:   fullName,
		AvatarLink: avatarLink,
		Role:       r,
		SessionID:  sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TTLs[r])),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the claims. Every failure
// collapses to ErrInvalidToken.
func (s *Service) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		// Pin the algorithm; tokens signed with anything else are invalid.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.config.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.Role.Valid() || claims.SessionID == "" || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
