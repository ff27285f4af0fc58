package events

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

// Deduper remembers which (event, handler) pairs already succeeded so a
// redelivered event does not rerun them.
type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// LRUDeduper keeps markers in process memory. Markers are lost on restart
// and evicted past size; handlers stay idempotent regardless.
type LRUDeduper struct {
	cache *lru.Cache[string, struct{}]
}

func NewLRUDeduper(size int) (*LRUDeduper, error) {
	c, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, err
	}
	return &LRUDeduper{cache: c}, nil
}

func (d *LRUDeduper) Seen(_ context.Context, key string) (bool, error) {
	return d.cache.Contains(key), nil
}

func (d *LRUDeduper) Mark(_ context.Context, key string) error {
	d.cache.Add(key, struct{}{})
	return nil
}

// RedisDeduper shares markers between consumer instances.
type RedisDeduper struct {
	r   *redis.Client
	ttl time.Duration
}

func NewRedisDeduper(r *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{r: r, ttl: ttl}
}

func dedupeKey(key string) string { return "idem:event:" + key }

func (d *RedisDeduper) Seen(ctx context.Context, key string) (bool, error) {
	n, err := d.r.Exists(ctx, dedupeKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *RedisDeduper) Mark(ctx context.Context, key string) error {
	return d.r.SetNX(ctx, dedupeKey(key), "1", d.ttl).Err()
}
