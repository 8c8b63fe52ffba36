package callflow

import (
	"context"
	"fmt"
	"time"

	"callpower/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisLegGuard claims each (CallSid, call_index) once so a re-delivered
// /call_complete does not write a second record.
type RedisLegGuard struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisLegGuard(rdb redis.Cmdable, ttl time.Duration) *RedisLegGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisLegGuard{rdb: rdb, ttl: ttl}
}

func (g *RedisLegGuard) FirstDelivery(ctx context.Context, callSid string, callIndex int) (bool, error) {
	return utils.ClaimOnce(ctx, g.rdb, legKey(callSid, callIndex), g.ttl)
}

func legKey(callSid string, callIndex int) string {
	return fmt.Sprintf("callflow:leg:%s:%d", callSid, callIndex)
}

// RedisCallerLimiter caps concurrent originated calls per caller phone.
// Slots are released by the status callback, once per CallSid; the TTL
// reclaims slots whose callback never arrives.
type RedisCallerLimiter struct {
	rdb   redis.Scripter
	limit int
	ttl   time.Duration
}

func NewRedisCallerLimiter(rdb redis.Scripter, limit int, ttl time.Duration) *RedisCallerLimiter {
	if limit <= 0 {
		limit = 1
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisCallerLimiter{rdb: rdb, limit: limit, ttl: ttl}
}

func (l *RedisCallerLimiter) Acquire(ctx context.Context, phone string) (bool, error) {
	return utils.AcquireSlot(ctx, l.rdb, callerKey(phone), l.limit, l.ttl)
}

func (l *RedisCallerLimiter) Release(ctx context.Context, phone, callSid string) error {
	_, err := utils.ReleaseSlot(ctx, l.rdb, callerKey(phone), callSid, l.ttl)
	return err
}

func callerKey(phone string) string { return "callflow:caller:" + phone }
