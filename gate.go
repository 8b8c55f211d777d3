package sessioncore

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/lernia-dev/sessioncore/role"
	"github.com/lernia-dev/sessioncore/session"
	"github.com/lernia-dev/sessioncore/token"
)

const touchTimeout = 5 * time.Second

// Identity is the verified identity attached to an authenticated request.
type Identity struct {
	UserID     string
	FullName   string
	AvatarLink string
	Role       role.Role
	SessionID  string
}

// Gate authenticates inbound requests for one or more roles: role cookie ->
// token signature -> live session check -> background activity refresh.
type Gate struct {
	tokens   *token.Service
	sessions *session.Store
	log      zerolog.Logger
}

// NewGate composes the token service and session store into a request gate.
func NewGate(tokens *token.Service, sessions *session.Store, log zerolog.Logger) *Gate {
	return &Gate{tokens: tokens, sessions: sessions, log: log}
}

// Authenticate verifies the request against the given roles (all roles when
// none are named) and returns the verified identity.
//
// Every failure mode — no cookie, bad signature, expired token, revoked
// session — collapses to ErrUnauthenticated. A Redis outage during the
// session check is the one exception: it propagates so callers fail closed
// rather than treating "could not check" as "not logged in" or, worse,
// "logged in".
func (g *Gate) Authenticate(ctx context.Context, r *http.Request, roles ...role.Role) (*Identity, error) {
	if len(roles) == 0 {
		roles = role.All()
	}

	var storeErr error
	for _, rl := range roles {
		cookie, err := r.Cookie(rl.CookieName())
		if err != nil || cookie.Value == "" {
			continue
		}

		claims, err := g.tokens.Verify(cookie.Value)
		if err != nil || claims.Role != rl {
			continue
		}

		live, err := g.sessions.Validate(ctx, claims.SessionID, claims.UserID, rl)
		if err != nil {
			storeErr = err
			continue
		}
		if !live {
			continue
		}

		g.touchAsync(claims.SessionID, claims.UserID, rl)

		return &Identity{
			UserID:     claims.UserID,
			FullName:   claims.FullName,
			AvatarLink: claims.AvatarLink,
			Role:       rl,
			SessionID:  claims.SessionID,
		}, nil
	}

	if storeErr != nil {
		return nil, storeErr
	}
	return nil, ErrUnauthenticated
}

// touchAsync refreshes the session TTL off the request path. The refresh is
// an optimization, so failures are logged and dropped, never surfaced to
// the request.
func (g *Gate) touchAsync(sessionID, userID string, r role.Role) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), touchTimeout)
		defer cancel()

		if err := g.sessions.Touch(ctx, sessionID, userID, r); err != nil {
			g.log.Warn().
				Err(err).
				Str("role", r.String()).
				Str("session_id", sessionID).
				Msg("session activity refresh failed")
		}
	}()
}
