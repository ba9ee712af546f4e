package locks

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/enrichment-backend/internal/domain"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"

	DefaultTTL = 30 * time.Second
)

// Locker grants short named mutual-exclusion leases. TryAcquire never
// blocks: a held key yields ok=false.
type Locker interface {
	TryAcquire(ctx context.Context, key string) (*Handle, bool, error)
	Release(ctx context.Context, h *Handle) error
}

// Handle identifies one granted lease. Token lets the backend refuse a
// release from a holder whose lease already expired.
type Handle struct {
	Key   string
	Token string

	release func(ctx context.Context) error
}

// LockKey names the claim lock of one enrichment for one stage.
func LockKey(enrichmentID uuid.UUID, stage types.Stage) string {
	return fmt.Sprintf("enrichment:%s:%s", enrichmentID, stage)
}

// advisoryKey folds a lock name into the int64 space of Postgres advisory
// locks.
func advisoryKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("claim"))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(strings.TrimSpace(key)))
	return int64(h.Sum64())
}
