package cache

import (
	"context"
	"errors"
	"field-route-service/internal/platform/obs"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAlertCooldown holds cooldown keys with SET NX so that replicas share suppression state.
type RedisAlertCooldown struct {
	Client *redis.Client
}

func NewRedisAlertCooldown(client *redis.Client) *RedisAlertCooldown {
	return &RedisAlertCooldown{Client: client}
}

func (c *RedisAlertCooldown) Acquire(ctx context.Context, key string, window time.Duration) (_ bool, err error) {
	defer obs.Time(ctx, "alert.cooldown.Acquire")(&err)

	if c.Client == nil {
		return false, errors.New("alert cooldown: redis client is nil")
	}
	if window <= 0 {
		return true, nil
	}

	ok, err := c.Client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), window).Result()
	if err != nil {
		return false, fmt.Errorf("alert cooldown: setnx %s: %w", key, err)
	}
	return ok, nil
}
