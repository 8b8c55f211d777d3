package sessioncore

import "errors"

var (
	// ErrUnauthenticated is the single outcome for every authentication
	// failure: missing cookie, bad signature, expired token, revoked
	// session. The modes are deliberately not distinguished to the caller
	// to prevent enumeration.
	ErrUnauthenticated = errors.New("authentication required or invalid")

	// ErrSessionLimitExceeded is returned by Core.EstablishSession when the
	// role's concurrency cap rejects the login.
	ErrSessionLimitExceeded = errors.New("concurrent session limit exceeded")
)
