package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// MaxEntries is how many entries are kept per user.
	MaxEntries = 50
	// EntryTTL is how long a user's feed survives without new activity.
	EntryTTL = 7 * 24 * time.Hour

	keyPrefix = "activity:"
)

// Store keeps the most recent activity per user, newest first.
type Store interface {
	Record(ctx context.Context, userID string, entry Entry) error
	Recent(ctx context.Context, userID string, limit int) ([]Entry, error)
}

// RedisStore keeps each feed in a capped Redis list.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Record(ctx context.Context, userID string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("activity marshal error: %w", err)
	}

	key := keyPrefix + userID
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, MaxEntries-1)
		pipe.Expire(ctx, key, EntryTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("activity record error: %w", err)
	}
	return nil
}

func (s *RedisStore) Recent(ctx context.Context, userID string, limit int) ([]Entry, error) {
	raw, err := s.client.LRange(ctx, keyPrefix+userID, 0, int64(clampLimit(limit)-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("activity read error: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("activity unmarshal error: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// MemoryStore keeps feeds in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	feeds map[string][]Entry
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{feeds: make(map[string][]Entry)}
}

func (s *MemoryStore) Record(_ context.Context, userID string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	feed := append([]Entry{entry}, s.feeds[userID]...)
	if len(feed) > MaxEntries {
		feed = feed[:MaxEntries]
	}
	s.feeds[userID] = feed
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, userID string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	feed := s.feeds[userID]
	n := min(clampLimit(limit), len(feed))
	out := make([]Entry, n)
	copy(out, feed[:n])
	return out, nil
}

// clampLimit maps non-positive or oversized limits to MaxEntries.
func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxEntries {
		return MaxEntries
	}
	return limit
}
