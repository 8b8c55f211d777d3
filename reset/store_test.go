package reset

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/lernia-dev/sessioncore/role"
)

func newResetTest(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStore(rdb, ttl), mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestGenerateValidateRoundTrip(t *testing.T) {
	store, _, done := newResetTest(t, time.Hour)
	defer done()
	ctx := context.Background()

	external, err := store.Generate(ctx, "u-1", "ada@example.com", role.Admin)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(external, "adm_") {
		t.Fatalf("expected adm_ prefix, got %q", external)
	}
	if len(external) != len("adm_")+64 {
		t.Fatalf("expected 64 hex chars after prefix, got %q", external)
	}

	data, r, err := store.Validate(ctx, external)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if r != role.Admin {
		t.Fatalf("expected admin role, got %v", r)
	}
	if data.UserID != "u-1" || data.Email != "ada@example.com" {
		t.Fatalf("record did not round trip: %+v", data)
	}
}

func TestSingleUse(t *testing.T) {
	store, _, done := newResetTest(t, time.Hour)
	defer done()
	ctx := context.Background()

	external, err := store.Generate(ctx, "u-1", "ada@example.com", role.User)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, _, err := store.Validate(ctx, external); err != nil {
		t.Fatalf("first validate: %v", err)
	}
	if err := store.Invalidate(ctx, external); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, _, err := store.Validate(ctx, external); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after consumption, got %v", err)
	}

	// Idempotent.
	if err := store.Invalidate(ctx, external); err != nil {
		t.Fatalf("second invalidate: %v", err)
	}
}

func TestExpiry(t *testing.T) {
	store, mr, done := newResetTest(t, time.Minute)
	defer done()
	ctx := context.Background()

	external, err := store.Generate(ctx, "u-1", "ada@example.com", role.Administrator)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, _, err := store.Validate(ctx, external); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestMalformedTokensNeverPanic(t *testing.T) {
	store, _, done := newResetTest(t, time.Hour)
	defer done()
	ctx := context.Background()

	for _, tok := range []string{
		"",
		"abcdef1234",            // no separator
		"xyz_" + strings.Repeat("a", 64), // unknown prefix
		"usr_",                  // empty raw token
		"_deadbeef",             // empty prefix
		"usr_short",             // never issued
	} {
		if _, _, err := store.Validate(ctx, tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%q: expected ErrInvalidToken, got %v", tok, err)
		}
		if err := store.Invalidate(ctx, tok); err != nil {
			t.Fatalf("%q: invalidate should be silent, got %v", tok, err)
		}
	}
}
