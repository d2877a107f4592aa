package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mgurran/servicebay/internal/lockstore"
)

// Lua script for an all-or-nothing create-only multi-key write. Concurrent
// callers racing for the same slot resolve to exactly one winner because the
// script runs atomically on the server.
// KEYS[...] = keys to write
// ARGV[1]   = ttl_ms
// ARGV[2..] = values, one per key
const luaPutNX = `
for i = 1, #KEYS do
  if redis.call('EXISTS', KEYS[i]) == 1 then
    return 0
  end
end
for i = 1, #KEYS do
  redis.call('SET', KEYS[i], ARGV[i + 1], 'PX', ARGV[1])
end
return 1
`

// LockStore implements lockstore.Store on Redis. Expiry is owned entirely by
// Redis TTL eviction; there is no application-side sweep.
type LockStore struct {
	rdb    *redis.Client
	script *redis.Script
}

func NewLockStore(rdb *redis.Client) *LockStore {
	return &LockStore{
		rdb:    rdb,
		script: redis.NewScript(luaPutNX),
	}
}

func (s *LockStore) PutNX(ctx context.Context, ttl time.Duration, entries ...lockstore.Entry) (bool, error) {
	const op = "redis.LockStore.PutNX"

	if len(entries) == 0 {
		return true, nil
	}

	keys := make([]string, 0, len(entries))
	args := make([]any, 0, len(entries)+1)
	args = append(args, ttl.Milliseconds())
	for _, e := range entries {
		keys = append(keys, e.Key)
		args = append(args, e.Value)
	}

	res, err := s.script.Run(ctx, s.rdb, keys, args...).Int64()
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}

	return res == 1, nil
}

func (s *LockStore) Get(ctx context.Context, key string) (string, bool, error) {
	const op = "redis.LockStore.Get"

	v, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s:%w", op, err)
	}

	return v, true, nil
}

func (s *LockStore) Delete(ctx context.Context, keys ...string) error {
	const op = "redis.LockStore.Delete"

	if len(keys) == 0 {
		return nil
	}

	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *LockStore) ScanPrefix(ctx context.Context, prefix string) (map[string]string, error) {
	const op = "redis.LockStore.ScanPrefix"

	out := make(map[string]string)
	match := prefix + "*"

	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}

		for _, k := range keys {
			if !strings.HasPrefix(k, prefix) {
				continue
			}
			v, err := s.rdb.Get(ctx, k).Result()
			if err == redis.Nil {
				// expired between SCAN and GET
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("%s:%w", op, err)
			}
			out[k] = v
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return out, nil
}
