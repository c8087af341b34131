package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventLog remembers which provider events were already handled.
type EventLog interface {
	// Claim returns false when the event was claimed before.
	Claim(ctx context.Context, eventID string) (bool, error)
	// Forget drops a claim so a redelivery is processed again.
	Forget(ctx context.Context, eventID string) error
}

type RedisEventLog struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisEventLog(rdb *redis.Client, ttl time.Duration) *RedisEventLog {
	return &RedisEventLog{rdb: rdb, ttl: ttl}
}

func eventKey(eventID string) string {
	return "webhook:event:" + eventID
}

func (l *RedisEventLog) Claim(ctx context.Context, eventID string) (bool, error) {
	return l.rdb.SetNX(ctx, eventKey(eventID), "processed", l.ttl).Result()
}

func (l *RedisEventLog) Forget(ctx context.Context, eventID string) error {
	return l.rdb.Del(ctx, eventKey(eventID)).Err()
}

// MemoryEventLog is used when redis is not configured.
type MemoryEventLog struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryEventLog(ttl time.Duration) *MemoryEventLog {
	return &MemoryEventLog{ttl: ttl, seen: map[string]time.Time{}, now: time.Now}
}

func (l *MemoryEventLog) Claim(ctx context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for id, at := range l.seen {
		if now.Sub(at) > l.ttl {
			delete(l.seen, id)
		}
	}
	if _, ok := l.seen[eventID]; ok {
		return false, nil
	}
	l.seen[eventID] = now
	return true, nil
}

func (l *MemoryEventLog) Forget(ctx context.Context, eventID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.seen, eventID)
	return nil
}
