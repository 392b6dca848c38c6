package cache

import (
	"context"
	"encoding/json"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/obs"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const positionKeyPrefix = "gps:latest:"

// setLatestScript writes ARGV[1] unless the cached sample carries a larger
// order key. Order keys are fixed-width so string comparison follows time.
var setLatestScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
	local ok, doc = pcall(cjson.decode, cur)
	if ok and type(doc) == 'table' and doc.order and doc.order > ARGV[2] then
		return 0
	end
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ttl)
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// RedisPositionCache keeps each agent's newest GPS sample under a TTL'd key.
type RedisPositionCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisPositionCache(client *redis.Client, ttl time.Duration) *RedisPositionCache {
	return &RedisPositionCache{Client: client, TTL: ttl}
}

func positionKey(agentID string) string {
	return positionKeyPrefix + agentID
}

type cachedSample struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	RecordedAt time.Time `json:"recorded_at"`
	SpeedKmh   *float64  `json:"speed_kmh,omitempty"`
	Heading    *float64  `json:"heading,omitempty"`
	AccuracyM  *float64  `json:"accuracy_m,omitempty"`
	Order      string    `json:"order"`
}

func orderKey(t time.Time) string {
	return fmt.Sprintf("%020d", t.UnixNano())
}

// Store the sample unless the cached one is newer. The compare and write
// run as one script so concurrent writers cannot regress the position.
func (c *RedisPositionCache) SetLatest(ctx context.Context, s domain.GpsSample) (err error) {
	defer obs.Time(ctx, "position.cache.SetLatest")(&err)

	if c.Client == nil {
		return errors.New("position cache: redis client is nil")
	}
	if s.IsVirtual {
		return nil
	}

	b, err := json.Marshal(cachedSample{
		Lat:        s.Coordinates.Lat,
		Lng:        s.Coordinates.Lng,
		RecordedAt: s.RecordedAt.UTC(),
		SpeedKmh:   s.SpeedKmh,
		Heading:    s.Heading,
		AccuracyM:  s.AccuracyM,
		Order:      orderKey(s.RecordedAt),
	})
	if err != nil {
		return fmt.Errorf("position cache: encode sample for %s: %w", s.AgentID, err)
	}

	keys := []string{positionKey(s.AgentID)}
	if err := setLatestScript.Run(ctx, c.Client, keys, b, orderKey(s.RecordedAt), c.TTL.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("position cache: set %s: %w", s.AgentID, err)
	}
	return nil
}

func (c *RedisPositionCache) Latest(ctx context.Context, agentID string) (_ *domain.GpsSample, err error) {
	defer obs.Time(ctx, "position.cache.Latest")(&err)

	if c.Client == nil {
		return nil, errors.New("position cache: redis client is nil")
	}

	raw, err := c.Client.Get(ctx, positionKey(agentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("position cache: get %s: %w", agentID, err)
	}

	var cs cachedSample
	if err := json.Unmarshal(raw, &cs); err != nil {
		return nil, fmt.Errorf("position cache: decode %s: %w", agentID, err)
	}

	return &domain.GpsSample{
		AgentID:     agentID,
		Coordinates: domain.Coordinates{Lat: cs.Lat, Lng: cs.Lng},
		RecordedAt:  cs.RecordedAt,
		SpeedKmh:    cs.SpeedKmh,
		Heading:     cs.Heading,
		AccuracyM:   cs.AccuracyM,
	}, nil
}
