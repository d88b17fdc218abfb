package call

import (
	"context"
	"log/slog"
	"time"

	"github.com/dpchavali1/SyncFlow-VPS-sub008/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter caps concurrently open call attempts per caller account using
// the shared Redis counter. The TTL covers sessions whose terminal transition
// never arrives (process crash, client gone): the slot frees itself.
type RedisLimiter struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
	log   *slog.Logger
}

const (
	defaultSessionLimit = 8
	defaultSlotTTL      = 2 * time.Hour
)

func NewRedisLimiter(rdb *redis.Client, log *slog.Logger) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: defaultSessionLimit, ttl: defaultSlotTTL, log: log}
}

func capKey(accountID string) string { return "syncflow.callcap." + accountID }

func (l *RedisLimiter) Acquire(ctx context.Context, accountID string) (bool, error) {
	return utils.AcquireConcurrencyCap(ctx, l.rdb, capKey(accountID), l.limit, l.ttl)
}

func (l *RedisLimiter) Release(ctx context.Context, accountID string) {
	if err := utils.ReleaseConcurrencyCap(ctx, l.rdb, capKey(accountID)); err != nil {
		l.log.Warn("call cap release failed", "account_id", accountID, "err", err)
	}
}
