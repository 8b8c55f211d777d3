package session

import (
	"time"

	"github.com/lernia-dev/sessioncore/device"
	"github.com/lernia-dev/sessioncore/role"
)

// Session represents one authenticated device/browser instance. All fields
// except LastActiveAt are set at creation and never mutated; revocation is
// deletion of the backing key, not a field change.
//
// Records are stored as JSON under session:<role>:<userId>:<sessionId> so a
// single prefix scan enumerates a user's sessions.
type Session struct {
	SessionID    string           `json:"sessionId"`
	UserID       string           `json:"userId"`
	Role         role.Role        `json:"role"`
	Device       string           `json:"device"`
	IP           string           `json:"ip"`
	Location     *device.Location `json:"location,omitempty"`
	UserAgent    string           `json:"userAgent"`
	CreatedAt    time.Time        `json:"createdAt"`
	LastActiveAt time.Time        `json:"lastActiveAt"`
}

// Policy is the per-role session policy.
type Policy struct {
	// TTL is the session lifetime; it is also the token expiry and the
	// cookie MaxAge for the role.
	TTL time.Duration
	// MaxSessions caps concurrent sessions per (role, user). The cap is a
	// UX soft limit, not a security boundary (see Store.Create).
	MaxSessions int
}

// Policies maps every role to its session policy.
type Policies map[role.Role]Policy

// DefaultPolicies returns the built-in per-role policies.
func DefaultPolicies() Policies {
	p := make(Policies, len(role.All()))
	for _, r := range role.All() {
		p[r] = Policy{TTL: r.DefaultSessionTTL(), MaxSessions: r.DefaultMaxSessions()}
	}
	return p
}
