package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lernia-dev/sessioncore/role"
)

func newServiceTest(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(Config{
		Secret: []byte("test-secret-test-secret-32bytes!"),
		Issuer: "sessioncore-test",
		TTLs:   map[role.Role]time.Duration{role.User: time.Hour},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	svc := newServiceTest(t)

	signed, err := svc.Issue("u-1", "Ada Lovelace", "https://cdn.example/a.png", role.User, "sid-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := svc.Verify(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "u-1" || claims.FullName != "Ada Lovelace" || claims.SessionID != "sid-1" {
		t.Fatalf("claims did not round trip: %+v", claims)
	}
	if claims.Role != role.User {
		t.Fatalf("expected user role, got %v", claims.Role)
	}
}

func TestVerifyFailuresAreUniform(t *testing.T) {
	svc := newServiceTest(t)

	signed, err := svc.Issue("u-1", "Ada", "", role.User, "sid-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other, err := NewService(Config{Secret: []byte("a completely different secret!!!")})
	if err != nil {
		t.Fatalf("new other service: %v", err)
	}
	foreign, err := other.Issue("u-1", "Ada", "", role.User, "sid-1")
	if err != nil {
		t.Fatalf("issue foreign: %v", err)
	}

	// Token signed with "none" must never verify.
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"userId": "u-1", "role": "user", "sessionId": "sid-1",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	for name, tok := range map[string]string{
		"garbage":      "not.a.token",
		"empty":        "",
		"wrong secret": foreign,
		"alg none":     unsigned,
		"truncated":    signed[:len(signed)/2],
	} {
		if _, err := svc.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestVerifyExpired(t *testing.T) {
	svc, err := NewService(Config{
		Secret: []byte("test-secret-test-secret-32bytes!"),
		TTLs:   map[role.Role]time.Duration{role.User: time.Nanosecond},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	signed, err := svc.Issue("u-1", "Ada", "", role.User, "sid-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := svc.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestServiceRequiresSecret(t *testing.T) {
	if _, err := NewService(Config{}); err == nil {
		t.Fatal("expected error for missing secret")
	}
}
