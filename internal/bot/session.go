package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"tailoring-bot/internal/fitting"
	"tailoring-bot/internal/wizard"
	"tailoring-bot/pkg/api"
	"tailoring-bot/pkg/redis"
)

// Session is everything the bot remembers about one chat.
type Session struct {
	Step string `json:"step"`

	// Field is the cursor inside the wizard's current step. It equals the
	// number of fields when the step is complete and awaiting submit.
	Field  int              `json:"field"`
	Slot   api.ImageType    `json:"slot,omitempty"`
	Wizard *wizard.Snapshot `json:"wizard,omitempty"`

	Fabric  string           `json:"fabric,omitempty"`
	Fitting *fitting.Booking `json:"fitting,omitempty"`
}

type SessionStore struct {
	redis redis.KV
	ttl   time.Duration
}

func NewSessionStore(kv redis.KV, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionStore{redis: kv, ttl: ttl}
}

// Get returns the chat's session, or an empty one if none is stored.
func (s *SessionStore) Get(ctx context.Context, chatID int64) (Session, error) {
	data, err := s.redis.Get(ctx, getStateKey(chatID))
	if errors.Is(err, redis.ErrNotFound) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to get state: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) Save(ctx context.Context, chatID int64, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := s.redis.Set(ctx, getStateKey(chatID), data, s.ttl); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

func (s *SessionStore) Clear(ctx context.Context, chatID int64) error {
	if err := s.redis.Del(ctx, getStateKey(chatID)); err != nil {
		return fmt.Errorf("failed to clear state: %w", err)
	}
	return nil
}

// BindOrder remembers which chat placed the order with the given session
// token, so confirmations can be routed back.
func (s *SessionStore) BindOrder(ctx context.Context, token string, chatID int64) error {
	if err := s.redis.Set(ctx, orderKey(token), []byte(strconv.FormatInt(chatID, 10)), 7*24*time.Hour); err != nil {
		return fmt.Errorf("failed to bind order: %w", err)
	}
	return nil
}

func (s *SessionStore) ChatForOrder(ctx context.Context, token string) (int64, bool, error) {
	data, err := s.redis.Get(ctx, orderKey(token))
	if errors.Is(err, redis.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up order: %w", err)
	}
	id, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse chat id: %w", err)
	}
	return id, true, nil
}

// Allow counts one action against a fixed window and reports whether the
// chat is still under the limit.
func (s *SessionStore) Allow(ctx context.Context, chatID int64, action string, limit int64, window time.Duration) (bool, error) {
	key := fmt.Sprintf("ratelimit:%d:%s", chatID, action)

	count, err := s.redis.Incr(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if count == 1 {
		if _, err := s.redis.Expire(ctx, key, window); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}
	return count <= limit, nil
}

// FirstNotice reports whether this is the first confirmation notice for a
// submission. The chat and the order events both try to send one.
func (s *SessionStore) FirstNotice(ctx context.Context, submissionID string) (bool, error) {
	key := "notice:" + submissionID

	count, err := s.redis.Incr(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to increment notice counter: %w", err)
	}
	if count == 1 {
		if _, err := s.redis.Expire(ctx, key, 7*24*time.Hour); err != nil {
			return false, fmt.Errorf("failed to set notice expiry: %w", err)
		}
	}
	return count == 1, nil
}

func getStateKey(chatID int64) string {
	return fmt.Sprintf("state:%d", chatID)
}

func orderKey(token string) string {
	return "order:" + token
}
