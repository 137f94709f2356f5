package availability

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the key/value backend of the cache. Every key carries a
// generation that Invalidate bumps, so a refill computed before an
// invalidation cannot be written back after it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Generation(ctx context.Context, key string) (int64, error)
	// SetIfGeneration stores value only while the key's generation is still
	// gen. It reports whether the value was stored.
	SetIfGeneration(ctx context.Context, key string, gen int64, value []byte, ttl time.Duration) (bool, error)
	Invalidate(ctx context.Context, key string) error
}

// generationTTL outlives any refill by far; an expired generation reads as
// 0, which a refill holding a newer generation never matches.
const generationTTL = 24 * time.Hour

var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

type redisStore struct {
	rdb *redis.Client
}

// NewRedisStore returns nil when rdb is nil so the cache runs without a
// backend instead of dialing a dead address on every call.
func NewRedisStore(rdb *redis.Client) Store {
	if rdb == nil {
		return nil
	}
	return &redisStore{rdb: rdb}
}

func generationKey(key string) string {
	return key + ":gen"
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	bs, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return bs, true, nil
}

func (s *redisStore) Generation(ctx context.Context, key string) (int64, error) {
	gen, err := s.rdb.Get(ctx, generationKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (s *redisStore) SetIfGeneration(ctx context.Context, key string, gen int64, value []byte, ttl time.Duration) (bool, error) {
	stored, err := setIfGeneration.Run(ctx, s.rdb,
		[]string{key, generationKey(key)},
		gen, value, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

func (s *redisStore) Invalidate(ctx context.Context, key string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(key))
		pipe.Expire(ctx, generationKey(key), generationTTL)
		pipe.Del(ctx, key)
		return nil
	})
	return err
}
