// Package role defines the closed set of stakeholder roles the platform
// recognizes. Every per-role table in the module — cache key fragments,
// cookie names, reset-token prefixes, default TTLs and session caps — is
// keyed by these variants, so an unknown role cannot be represented.
package role

import (
	"errors"
	"fmt"
	"time"
)

// Role identifies one stakeholder class. The zero value is User.
type Role uint8

const (
	// User is an end user of the platform.
	User Role = iota
	// Admin is a content/course administrator.
	Admin
	// Administrator is a platform-level superuser.
	Administrator

	roleCount
)

// ErrUnknownRole is returned when a wire string or reset prefix does not
// map to a known role.
var ErrUnknownRole = errors.New("unknown role")

// All returns every role in declaration order.
func All() []Role {
	return []Role{User, Admin, Administrator}
}

// Valid reports whether r is one of the declared variants.
func (r Role) Valid() bool {
	return r < roleCount
}

// String returns the wire name used inside cache keys and token claims.
// The format is compatibility-binding: session keys are
// session:<role>:<userId>:<sessionId>.
func (r Role) String() string {
	switch r {
	case User:
		return "user"
	case Admin:
		return "admin"
	case Administrator:
		return "administrator"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// CookieName returns the role's token cookie name. Each role gets its own
// cookie so one browser can hold independent sessions for several roles.
func (r Role) CookieName() string {
	switch r {
	case User:
		return "user_token"
	case Admin:
		return "admin_token"
	case Administrator:
		return "administrator_token"
	default:
		return ""
	}
}

// ResetPrefix returns the short code prepended to external password-reset
// tokens (<prefix>_<64 hex>), letting the role be recovered without a lookup.
func (r Role) ResetPrefix() string {
	switch r {
	case User:
		return "usr"
	case Admin:
		return "adm"
	case Administrator:
		return "sup"
	default:
		return ""
	}
}

// DefaultSessionTTL is the session lifetime used when the host application
// does not override it.
func (r Role) DefaultSessionTTL() time.Duration {
	switch r {
	case User:
		return 7 * 24 * time.Hour
	case Admin, Administrator:
		return 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// DefaultMaxSessions is the concurrent-session cap used when the host
// application does not override it.
func (r Role) DefaultMaxSessions() int {
	switch r {
	case User:
		return 3
	case Admin:
		return 2
	case Administrator:
		return 1
	default:
		return 1
	}
}

// Parse maps a wire name back to a Role.
func Parse(s string) (Role, error) {
	switch s {
	case "user":
		return User, nil
	case "admin":
		return Admin, nil
	case "administrator":
		return Administrator, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// ParseResetPrefix maps an external reset-token prefix back to a Role.
func ParseResetPrefix(prefix string) (Role, error) {
	switch prefix {
	case "usr":
		return User, nil
	case "adm":
		return Admin, nil
	case "sup":
		return Administrator, nil
	default:
		return 0, fmt.Errorf("%w: reset prefix %q", ErrUnknownRole, prefix)
	}
}

// MarshalText encodes the role as its wire name so JSON session records and
// JWT claims carry "user"/"admin"/"administrator" rather than a number.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a wire name.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
