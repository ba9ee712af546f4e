package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

// releaseScript deletes the key only while it still carries the caller's
// token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker shares claim locks across API replicas through SET NX PX.
type RedisLocker struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisLocker(rdb goredis.UniversalClient, prefix string, ttl time.Duration, baseLog *logger.Logger) (*RedisLocker, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if prefix == "" {
		prefix = "lock:"
	}
	return &RedisLocker{
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
		log:    baseLog.With("service", "RedisLocker"),
	}, nil
}

func (l *RedisLocker) TryAcquire(ctx context.Context, key string) (*Handle, bool, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.prefix+key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Handle{Key: key, Token: token}, true, nil
}

func (l *RedisLocker) Release(ctx context.Context, h *Handle) error {
	if h == nil {
		return nil
	}
	n, err := releaseScript.Run(ctx, l.rdb, []string{l.prefix + h.Key}, h.Token).Int()
	if err != nil {
		return fmt.Errorf("redis unlock %s: %w", h.Key, err)
	}
	if n == 0 {
		l.log.Warn("Lock lease expired before release", "key", h.Key)
	}
	return nil
}
