package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var errNilRedis = errors.New("redis client is nil")

// RedisConfig controls redis client behavior. Zero values take the defaults
// in options().
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	PoolSize        int
	MinIdleConns    int
	PoolTimeout     time.Duration
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration

	PingTimeout time.Duration
}

func orDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func (c RedisConfig) options() *redis.Options {
	poolSize := c.PoolSize
	if poolSize <= 0 {
		poolSize = 20
	}
	return &redis.Options{
		Addr:            c.Addr,
		Password:        c.Password,
		DB:              c.DB,
		DialTimeout:     orDuration(c.DialTimeout, 3*time.Second),
		ReadTimeout:     orDuration(c.ReadTimeout, 2*time.Second),
		WriteTimeout:    orDuration(c.WriteTimeout, 2*time.Second),
		PoolSize:        poolSize,
		MinIdleConns:    max(c.MinIdleConns, 0),
		PoolTimeout:     orDuration(c.PoolTimeout, 4*time.Second),
		ConnMaxIdleTime: orDuration(c.ConnMaxIdleTime, 5*time.Minute),
		ConnMaxLifetime: orDuration(c.ConnMaxLifetime, 30*time.Minute),
	}
}

// OpenRedis builds a client and fails fast if the server does not answer PING.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	rdb := redis.NewClient(cfg.options())

	pingCtx, cancel := context.WithTimeout(ctx, orDuration(cfg.PingTimeout, 2*time.Second))
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// KEYS[1] counter, ARGV[1] limit, ARGV[2] ttl ms. Returns 1 when a slot was taken.
var slotAcquireScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 or redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
if n > tonumber(ARGV[1]) then
  redis.call('DECR', KEYS[1])
  return 0
end
return 1
`)

// KEYS[1] counter, KEYS[2] release marker or "", ARGV[1] marker ttl ms.
// A marker makes the release idempotent: the second release with the same
// marker returns 0 and leaves the counter alone.
var slotReleaseScript = redis.NewScript(`
if KEYS[2] ~= '' then
  if not redis.call('SET', KEYS[2], 1, 'NX', 'PX', ARGV[1]) then
    return 0
  end
end
if redis.call('DECR', KEYS[1]) <= 0 then
  redis.call('DEL', KEYS[1])
end
return 1
`)

// AcquireSlot takes one of limit slots under key. The counter expires after
// ttl so a holder that never releases cannot pin the key forever.
func AcquireSlot(ctx context.Context, rdb redis.Scripter, key string, limit int, ttl time.Duration) (bool, error) {
	switch {
	case rdb == nil:
		return false, errNilRedis
	case key == "":
		return false, errors.New("key is required")
	case limit <= 0:
		return false, errors.New("limit must be > 0")
	case ttl <= 0:
		return false, errors.New("ttl must be > 0")
	}
	n, err := slotAcquireScript.Run(ctx, rdb, []string{key}, limit, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseSlot returns a slot taken by AcquireSlot. With a non-empty token
// the release happens at most once per token within ttl; it reports false
// when the token was already used.
func ReleaseSlot(ctx context.Context, rdb redis.Scripter, key, token string, ttl time.Duration) (bool, error) {
	if rdb == nil {
		return false, errNilRedis
	}
	if key == "" {
		return false, errors.New("key is required")
	}
	marker := ""
	if token != "" {
		marker = key + ":released:" + token
	}
	n, err := slotReleaseScript.Run(ctx, rdb, []string{key, marker}, orDuration(ttl, time.Hour).Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ClaimOnce sets key if absent. It returns true for the first claimant only
// until ttl expires.
func ClaimOnce(ctx context.Context, rdb redis.Cmdable, key string, ttl time.Duration) (bool, error) {
	if rdb == nil {
		return false, errNilRedis
	}
	if key == "" {
		return false, errors.New("key is required")
	}
	return rdb.SetNX(ctx, key, 1, ttl).Result()
}
