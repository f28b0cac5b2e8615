package presence

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "presence:"

// Tracker keeps a TTL'd online marker per user in redis. Liveness is
// best-effort display state; failures are reported but never block anything.
type Tracker struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTracker constructs a Tracker.
func NewTracker(rdb *redis.Client, ttl time.Duration) *Tracker {
	return &Tracker{rdb: rdb, ttl: ttl}
}

// Touch refreshes the online marker for a user.
func (t *Tracker) Touch(ctx context.Context, userID string) error {
	return t.rdb.Set(ctx, keyPrefix+userID, "1", t.ttl).Err()
}

// Clear drops the online marker, e.g. on session close.
func (t *Tracker) Clear(ctx context.Context, userID string) error {
	return t.rdb.Del(ctx, keyPrefix+userID).Err()
}

// Online reports which of the given users currently hold a marker.
func (t *Tracker) Online(ctx context.Context, userIDs []string) (map[string]bool, error) {
	online := make(map[string]bool, len(userIDs))
	if len(userIDs) == 0 {
		return online, nil
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, keyPrefix+id)
	}
	values, err := t.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, val := range values {
		online[userIDs[i]] = val != nil
	}
	return online, nil
}
