package locks

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis lock tests")
	}
	ctx := context.Background()
	rdb := goredis.NewClient(&goredis.Options{Addr: addr, DialTimeout: 5 * time.Second})
	t.Cleanup(func() { _ = rdb.Close() })

	l, err := NewRedisLocker(rdb, "test-lock:", 5*time.Second, logger.Nop())
	if err != nil {
		t.Fatalf("NewRedisLocker: %v", err)
	}
	key := uuid.NewString()

	h, ok, err := l.TryAcquire(ctx, key)
	if err != nil || !ok {
		t.Fatalf("TryAcquire: ok=%v err=%v", ok, err)
	}
	if _, ok, err := l.TryAcquire(ctx, key); err != nil || ok {
		t.Fatalf("second acquire: ok=%v err=%v", ok, err)
	}
	if err := l.Release(ctx, &Handle{Key: key, Token: "someone-else"}); err != nil {
		t.Fatalf("foreign release: %v", err)
	}
	if _, ok, _ := l.TryAcquire(ctx, key); ok {
		t.Fatalf("foreign token must not release the lease")
	}
	if err := l.Release(ctx, h); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, ok, _ := l.TryAcquire(ctx, key); !ok {
		t.Fatalf("acquire after release must succeed")
	}
}
