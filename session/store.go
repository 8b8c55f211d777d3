package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lernia-dev/sessioncore/device"
	"github.com/lernia-dev/sessioncore/role"
)

// ErrRedisUnavailable wraps transport failures talking to Redis. Validation
// paths must treat it as fatal (fail-closed); activity refreshes may log and
// drop it.
var ErrRedisUnavailable = errors.New("redis unavailable")

const keyPrefix = "session"

const scanBatch = 100

// Store persists per-(role, user) session records in Redis and enforces the
// per-role concurrency cap. It holds no in-process mutable state; every
// instance of the host application may share one Redis.
type Store struct {
	redis    redis.UniversalClient
	policies Policies
}

// NewStore creates a session Store backed by the given Redis client.
// Missing roles in policies fall back to the role defaults.
func NewStore(redisClient redis.UniversalClient, policies Policies) *Store {
	merged := DefaultPolicies()
	for r, p := range policies {
		if p.TTL > 0 {
			merged[r] = Policy{TTL: p.TTL, MaxSessions: merged[r].MaxSessions}
		}
		if p.MaxSessions > 0 {
			merged[r] = Policy{TTL: merged[r].TTL, MaxSessions: p.MaxSessions}
		}
	}
	return &Store{redis: redisClient, policies: merged}
}

// TTL returns the configured session lifetime for a role.
func (s *Store) TTL(r role.Role) time.Duration {
	return s.policies[r].TTL
}

// Cap returns the configured concurrent-session cap for a role.
func (s *Store) Cap(r role.Role) int {
	return s.policies[r].MaxSessions
}

func (s *Store) key(r role.Role, userID, sessionID string) string {
	return keyPrefix + ":" + r.String() + ":" + userID + ":" + sessionID
}

func (s *Store) pattern(r role.Role, userID string) string {
	return keyPrefix + ":" + r.String() + ":" + userID + ":*"
}

// CreateParams carries the descriptive fields captured at login.
type CreateParams struct {
	UserID    string
	Role      role.Role
	Device    string
	IP        string
	UserAgent string
	Location  *device.Location
}

// CreateResult is returned from Create.
type CreateResult struct {
	// Session is the newly constructed session. When LimitExceeded is true
	// it was NOT persisted and is returned for display only, so the caller
	// can offer "terminate another session".
	Session *Session
	// LimitExceeded is true when the role's concurrency cap was already
	// reached and no session was stored.
	LimitExceeded bool
	// ActiveSessions is the user's current live session list, newest first.
	// It does not include the unpersisted candidate.
	ActiveSessions []*Session
}

// Create admits a new session for (role, user) unless the role's cap is
// already reached.
//
// ATOMICITY NOTE: the cap check and the subsequent SET are separate Redis
// calls. Two concurrent Create calls for the same user can both observe a
// count below the cap and both persist, transiently exceeding the cap. The
// cap is a UX soft limit, so this race is accepted rather than patched with
// a distributed lock; strays expire with their TTL.
func (s *Store) Create(ctx context.Context, params CreateParams) (*CreateResult, error) {
	active, err := s.List(ctx, params.UserID, params.Role)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess := &Session{
		SessionID:    uuid.NewString(),
		UserID:       params.UserID,
		Role:         params.Role,
		Device:       params.Device,
		IP:           params.IP,
		Location:     params.Location,
		UserAgent:    params.UserAgent,
		CreatedAt:    now,
		LastActiveAt: now,
	}

	result := &CreateResult{Session: sess, ActiveSessions: active}

	policy := s.policies[params.Role]
	if policy.MaxSessions > 0 && len(active) >= policy.MaxSessions {
		result.LimitExceeded = true
		return result, nil
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}

	key := s.key(params.Role, params.UserID, sess.SessionID)
	if err := s.redis.Set(ctx, key, data, policy.TTL).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	result.ActiveSessions = append([]*Session{sess}, active...)
	return result, nil
}

// List returns all live sessions for (role, user), newest first. Expired
// sessions are simply absent: Redis eviction is the deletion.
func (s *Store) List(ctx context.Context, userID string, r role.Role) ([]*Session, error) {
	keys, err := s.scanKeys(ctx, s.pattern(r, userID))
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []*Session{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Get(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sessions := make([]*Session, 0, len(keys))
	for _, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			// Expired between SCAN and GET.
			if errors.Is(cmdErr, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}

		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			return nil, fmt.Errorf("session: corrupt record: %w", err)
		}
		sessions = append(sessions, &sess)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})

	return sessions, nil
}

// Validate reports whether the session still exists. It is an EXISTS-only
// check; the record is never deserialized on the hot path.
func (s *Store) Validate(ctx context.Context, sessionID, userID string, r role.Role) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(r, userID, sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}

// Touch resets the session key's TTL to the full role lifetime without
// reading or rewriting the record. Touching an already expired session is
// a no-op.
func (s *Store) Touch(ctx context.Context, sessionID, userID string, r role.Role) error {
	if err := s.redis.Expire(ctx, s.key(r, userID, sessionID), s.policies[r].TTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Invalidate deletes one session. Deleting a missing session is not an error.
func (s *Store) Invalidate(ctx context.Context, sessionID, userID string, r role.Role) error {
	if err := s.redis.Del(ctx, s.key(r, userID, sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// InvalidateAll deletes every session for (role, user) — "logout everywhere".
func (s *Store) InvalidateAll(ctx context.Context, userID string, r role.Role) error {
	keys, err := s.scanKeys(ctx, s.pattern(r, userID))
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)

	for {
		batch, next, err := s.redis.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}
