package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgredis "github.com/prohmpiriya/event-booking/pkg/redis"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrMiss is returned by Get when the key is absent
	ErrMiss = errors.New("cache miss")
	// ErrDegraded wraps every store failure. Callers log it and carry on.
	ErrDegraded = errors.New("cache degraded")
)

// ScoredMember is one sorted-set entry
type ScoredMember struct {
	Member string
	Score  float64
}

// Store is the key/value, counter and sorted-set surface used by the read
// path and the ranking engine. Implementations return ErrMiss for absent
// keys and wrap every other failure in ErrDegraded.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) (int64, error)
	// Exists reports per key whether it is present
	Exists(ctx context.Context, keys ...string) ([]bool, error)

	Eval(ctx context.Context, name, script string, keys []string, args ...interface{}) (interface{}, error)

	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error)
	ZRevRangeByScoreWithScores(ctx context.Context, key, min, max string) ([]ScoredMember, error)
	ZMembers(ctx context.Context, key string) ([]string, error)
	ZRem(ctx context.Context, key string, members ...string) error
}

// RedisStore implements Store on pkg/redis with a per-command timeout
type RedisStore struct {
	client  *pkgredis.Client
	timeout time.Duration
}

// NewRedisStore wraps client. timeout <= 0 means 500ms.
func NewRedisStore(client *pkgredis.Client, timeout time.Duration) *RedisStore {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &RedisStore{client: client, timeout: timeout}
}

func (s *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func degraded(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrDegraded, op, err)
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, degraded("get "+key, err)
	}
	return b, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return degraded("set "+key, err)
	}
	return nil
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return degraded("del", err)
	}
	return nil
}

func (s *RedisStore) DeletePattern(ctx context.Context, pattern string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.client.DeletePattern(ctx, pattern)
	if err != nil {
		return n, degraded("delete pattern "+pattern, err)
	}
	return n, nil
}

func (s *RedisStore) Exists(ctx context.Context, keys ...string) ([]bool, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	pipe := s.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.Exists(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, degraded("exists", err)
	}

	out := make([]bool, len(keys))
	for i, cmd := range cmds {
		out[i] = cmd.Val() > 0
	}
	return out, nil
}

func (s *RedisStore) Eval(ctx context.Context, name, script string, keys []string, args ...interface{}) (interface{}, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	v, err := s.client.EvalWithFallback(ctx, name, script, keys, args...).Result()
	if err != nil {
		return nil, degraded("eval "+name, err)
	}
	return v, nil
}

func (s *RedisStore) ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	zs, err := s.client.ZRevRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		return nil, degraded("zrevrange "+key, err)
	}
	return toScored(zs), nil
}

func (s *RedisStore) ZRevRangeByScoreWithScores(ctx context.Context, key, min, max string) ([]ScoredMember, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	zs, err := s.client.ZRevRangeByScoreWithScores(ctx, key, min, max).Result()
	if err != nil {
		return nil, degraded("zrevrangebyscore "+key, err)
	}
	return toScored(zs), nil
}

func (s *RedisStore) ZMembers(ctx context.Context, key string) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	members, err := s.client.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, degraded("zrange "+key, err)
	}
	return members, nil
}

func (s *RedisStore) ZRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := s.client.ZRem(ctx, key, args...).Err(); err != nil {
		return degraded("zrem "+key, err)
	}
	return nil
}

func toScored(zs []redis.Z) []ScoredMember {
	out := make([]ScoredMember, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, ScoredMember{Member: member, Score: z.Score})
	}
	return out
}

// NoopStore is used when Redis is unavailable: every read misses and every
// write is dropped
type NoopStore struct{}

func (NoopStore) Get(context.Context, string) ([]byte, error)              { return nil, ErrMiss }
func (NoopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NoopStore) Del(context.Context, ...string) error                     { return nil }
func (NoopStore) DeletePattern(context.Context, string) (int64, error)     { return 0, nil }
func (NoopStore) Exists(_ context.Context, keys ...string) ([]bool, error) {
	return make([]bool, len(keys)), nil
}
func (NoopStore) ZMembers(context.Context, string) ([]string, error) { return nil, nil }
func (NoopStore) ZRem(context.Context, string, ...string) error      { return nil }
func (NoopStore) Eval(context.Context, string, string, []string, ...interface{}) (interface{}, error) {
	return nil, degraded("eval", errors.New("no cache store configured"))
}
func (NoopStore) ZRevRangeWithScores(context.Context, string, int64, int64) ([]ScoredMember, error) {
	return nil, nil
}
func (NoopStore) ZRevRangeByScoreWithScores(context.Context, string, string, string) ([]ScoredMember, error) {
	return nil, nil
}
