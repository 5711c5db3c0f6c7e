package cooldown

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"autoresponder/internal/common/logging"
	"autoresponder/internal/rules"
)

const redisOpTimeout = 5 * time.Second

// redisTracker shares cooldown state between instances through Redis. A
// firing is stored as a key whose TTL equals the rule's cooldown, so
// expiry itself answers the cooldown question and no clock comparison is
// needed on the read side.
type redisTracker struct {
	rdb    *redis.Client
	prefix string
	logger logging.Logger
}

// NewRedisTracker connects to Redis and returns a distributed tracker.
func NewRedisTracker(config Config) (Tracker, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddress,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = "autoresponder:cooldown"
	}

	return &redisTracker{
		rdb:    rdb,
		prefix: prefix,
		logger: logging.GetGlobalLogger(),
	}, nil
}

func (t *redisTracker) IsOnCooldown(rule *rules.Rule, now time.Time) bool {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	exists, err := t.rdb.Exists(ctx, t.key(rule)).Result()
	if err != nil {
		// Fail open: a Redis outage must not silence the responder.
		t.logger.Warn("Cooldown lookup failed", logging.Err(err))
		return false
	}
	return exists > 0
}

func (t *redisTracker) MarkFired(rule *rules.Rule, now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	cooldown := rule.Cooldown()
	if cooldown <= 0 {
		t.rdb.Del(ctx, t.key(rule))
		return
	}

	if err := t.rdb.Set(ctx, t.key(rule), now.UnixMilli(), cooldown).Err(); err != nil {
		t.logger.Warn("Failed to record cooldown", logging.Err(err))
	}
}

func (t *redisTracker) Reset() {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	keys, err := t.rdb.Keys(ctx, t.prefix+":*").Result()
	if err != nil {
		t.logger.Warn("Failed to list cooldown keys", logging.Err(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := t.rdb.Del(ctx, keys...).Err(); err != nil {
		t.logger.Warn("Failed to clear cooldown keys", logging.Err(err))
	}
}

// key derives a Redis key from the rule identity. The trigger text is hashed
// since it may contain characters unfit for a key segment.
func (t *redisTracker) key(rule *rules.Rule) string {
	id := rule.Identity()

	h := fnv.New64a()
	h.Write([]byte(id.Trigger))

	return strings.Join([]string{t.prefix, id.Server, id.Channel, fmt.Sprintf("%x", h.Sum64())}, ":")
}
