package middleware

import (
	"context"
	"net/http"

	sessioncore "github.com/lernia-dev/sessioncore"
	"github.com/lernia-dev/sessioncore/role"
)

type identityContextKey struct{}

// IdentityFromContext returns the verified identity Guard attached to the
// request context.
func IdentityFromContext(ctx context.Context) (*sessioncore.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(*sessioncore.Identity)
	return identity, ok
}

// Guard authenticates every request against the given roles before calling
// the next handler. All failures produce the same 401 body; the client
// never learns whether a cookie was missing, forged, expired, or revoked.
func Guard(gate *sessioncore.Gate, roles ...role.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gate == nil {
				writeUnauthenticated(w)
				return
			}

			identity, err := gate.Authenticate(r.Context(), r, roles...)
			if err != nil {
				writeUnauthenticated(w)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthenticated(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorBody{
		Success: false,
		Error:   "authentication required or invalid",
	})
}
