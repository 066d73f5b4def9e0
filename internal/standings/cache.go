package standings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const bumpChannel = "standings.bump"

// Cache wraps Redis based caching with per-division versioning. A bump
// moves the division's version forward, so stale entries age out under
// their TTL instead of being deleted.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func versionKey(divisionID int64) string {
	return fmt.Sprintf("standings:division:%d:version", divisionID)
}

// Version returns the division's cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context, divisionID int64) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, versionKey(divisionID)).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, versionKey(divisionID), 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, versionKey(divisionID), ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes the division's cache key with its current version.
func (c *Cache) BuildKey(ctx context.Context, divisionID int64) (string, error) {
	if c == nil || c.client == nil {
		return fmt.Sprintf("standings:division:%d", divisionID), nil
	}
	ver, err := c.Version(ctx, divisionID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("standings:division:%d:v%d", divisionID, ver), nil
}

// FetchJSON loads a cached value or populates it using the loader.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if err != redis.Nil {
		return err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates a division's standings by incrementing its version and
// publishing the change.
func (c *Cache) Bump(ctx context.Context, divisionID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, versionKey(divisionID)).Result()
	if err != nil {
		return err
	}
	payload := fmt.Sprintf("%d:%d", divisionID, ver)
	return c.client.Publish(ctx, bumpChannel, payload).Err()
}

// ListenForInvalidation subscribes to bump notifications and reconciles the
// version keys, keeping instances aligned after a Redis failover.
func (c *Cache) ListenForInvalidation(ctx context.Context, channel string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if channel == "" {
		channel = bumpChannel
	}
	pubsub := c.client.Subscribe(ctx, channel)
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				divisionID, ver, ok := parseBump(msg.Payload)
				if !ok {
					continue
				}
				current, err := c.client.Get(ctx, versionKey(divisionID)).Int64()
				if err == nil && current >= ver {
					continue
				}
				_ = c.client.Set(ctx, versionKey(divisionID), ver, 0).Err()
			}
		}
	}()
	return nil
}

func parseBump(payload string) (divisionID, version int64, ok bool) {
	parts := strings.SplitN(payload, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	divisionID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || divisionID <= 0 {
		return 0, 0, false
	}
	version, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil || version <= 0 {
		return 0, 0, false
	}
	return divisionID, version, true
}
