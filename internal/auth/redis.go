package auth

import (
	"context"
	"time"

	"callpower/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisReplayGuard remembers spent refresh tokens until they expire.
type RedisReplayGuard struct {
	rdb redis.Cmdable
	now func() time.Time
}

func NewRedisReplayGuard(rdb redis.Cmdable) *RedisReplayGuard {
	return &RedisReplayGuard{rdb: rdb, now: time.Now}
}

func (g *RedisReplayGuard) FirstUse(ctx context.Context, jti string, until time.Time) (bool, error) {
	ttl := until.Sub(g.now())
	if ttl <= 0 {
		// Already past expiry; Verify would have rejected it.
		return false, nil
	}
	return utils.ClaimOnce(ctx, g.rdb, "auth:refresh:"+jti, ttl)
}
