// Package rate implements sliding-window request limiting on a Redis sorted
// set. Each identifier gets one set of request entries scored by arrival
// time in epoch milliseconds; admission counts entries inside the moving
// window ending at now.
package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures talking to Redis. Limiting
// decisions must never silently default to "allowed" on store failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

const keyPrefix = "ratelimit"

// Profile pairs a window size with a request budget.
type Profile struct {
	Window      time.Duration
	MaxRequests int
}

// StandardProfile is the general API budget.
func StandardProfile() Profile { return Profile{Window: time.Minute, MaxRequests: 100} }

// StrictProfile is for expensive or abuse-prone endpoints.
func StrictProfile() Profile { return Profile{Window: time.Minute, MaxRequests: 20} }

// AuthProfile is for login/registration/reset endpoints.
func AuthProfile() Profile { return Profile{Window: 15 * time.Minute, MaxRequests: 10} }

// Result is a single admission decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt is when the current window fully rolls over.
	ResetAt time.Time
	// RetryAfter is set on rejection. It is a best-effort hint: the oldest
	// entry is read outside the atomic batch and can be marginally stale
	// under contention.
	RetryAfter time.Duration
}

// Limiter admits or rejects requests from an identifier (IP or account),
// independent of authentication state.
type Limiter struct {
	redis   redis.UniversalClient
	profile Profile
}

// New creates a Limiter for one profile backed by the given Redis client.
func New(redisClient redis.UniversalClient, profile Profile) *Limiter {
	return &Limiter{redis: redisClient, profile: profile}
}

// Profile returns the limiter's window/budget pair.
func (l *Limiter) Profile() Profile {
	return l.profile
}

// Consume records one request for identifier and decides admission.
//
// Eviction of stale entries, the pre-add cardinality read, the entry add,
// and the key TTL refresh run as one atomic batch, so the count observed is
// the count before this request. When the budget is already spent the entry
// is removed again (add-then-undo avoids a second round trip on the admit
// path, which is the common case).
func (l *Limiter) Consume(ctx context.Context, identifier string) (*Result, error) {
	key := keyPrefix + ":" + Sanitize(identifier)

	now := time.Now()
	nowMs := now.UnixMilli()
	windowStart := nowMs - l.profile.Window.Milliseconds()

	// Distinct member per request so same-millisecond arrivals never
	// overwrite each other.
	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()

	var countCmd *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(windowStart, 10))
		countCmd = pipe.ZCard(ctx, key)
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(nowMs), Member: member})
		pipe.Expire(ctx, key, ceilSeconds(l.profile.Window))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	count := int(countCmd.Val())
	if count >= l.profile.MaxRequests {
		return l.reject(ctx, key, member, nowMs)
	}

	return &Result{
		Allowed:   true,
		Limit:     l.profile.MaxRequests,
		Remaining: l.profile.MaxRequests - count - 1,
		ResetAt:   now.Add(l.profile.Window),
	}, nil
}

func (l *Limiter) reject(ctx context.Context, key, member string, nowMs int64) (*Result, error) {
	// Undo the entry added for the rejected request.
	if err := l.redis.ZRem(ctx, key, member).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	result := &Result{
		Allowed:    false,
		Limit:      l.profile.MaxRequests,
		Remaining:  0,
		ResetAt:    time.UnixMilli(nowMs + l.profile.Window.Milliseconds()),
		RetryAfter: time.Second,
	}

	// Best-effort oldest-entry read: only on the rejection path, and
	// slightly stale under heavy contention is acceptable. If the read
	// fails the rejection stands with the conservative window-length hint.
	oldest, err := l.redis.ZRangeWithScores(ctx, key, 0, 0).Result()
	if err != nil {
		result.RetryAfter = l.profile.Window
		return result, nil
	}
	if len(oldest) > 0 {
		freeAt := int64(oldest[0].Score) + l.profile.Window.Milliseconds()
		result.ResetAt = time.UnixMilli(freeAt)
		if retry := time.Duration(freeAt-nowMs) * time.Millisecond; retry > time.Second {
			result.RetryAfter = retry
		}
	}

	return result, nil
}

// Sanitize flattens an identifier into a safe key fragment: lowercase, with
// path-separator-like and glob characters replaced so identifiers cannot
// collide with or escape the key namespace.
func Sanitize(identifier string) string {
	return strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '.', c == ':', c == '-', c == '_':
			return c
		case c >= 'A' && c <= 'Z':
			return c + ('a' - 'A')
		default:
			return '-'
		}
	}, identifier)
}

func ceilSeconds(d time.Duration) time.Duration {
	secs := (d.Milliseconds() + 999) / 1000
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}
