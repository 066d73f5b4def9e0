package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// BracketLockKey builds redis keys guarding bracket generation per division.
func BracketLockKey(divisionID int64) string {
	return fmt.Sprintf("brackets:division:%d:lock", divisionID)
}

// ScheduleLockKey builds redis keys guarding schedule generation per division.
func ScheduleLockKey(divisionID int64) string {
	return fmt.Sprintf("schedule:division:%d:lock", divisionID)
}

// Mutex is a best-effort distributed lock on Redis. It protects slow
// generation jobs from concurrent runs, not correctness-critical sections.
type Mutex struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMutex constructs a Mutex with the given auto-expiry.
func NewMutex(client *redis.Client, ttl time.Duration) *Mutex {
	return &Mutex{client: client, ttl: ttl}
}

// Acquire takes the lock or returns ErrLockHeld.
func (m *Mutex) Acquire(ctx context.Context, key string) error {
	if m == nil || m.client == nil {
		return nil
	}
	ok, err := m.client.SetNX(ctx, key, "1", m.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockHeld
	}
	return nil
}

// Release frees the lock. Safe to call after expiry.
func (m *Mutex) Release(ctx context.Context, key string) error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Del(ctx, key).Err()
}
