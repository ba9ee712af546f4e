package locks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryLease struct {
	token   string
	expires time.Time
}

// MemoryLocker serves single-process deployments and tests.
type MemoryLocker struct {
	mu     sync.Mutex
	ttl    time.Duration
	leases map[string]memoryLease
	now    func() time.Time
}

func NewMemoryLocker(ttl time.Duration) *MemoryLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryLocker{
		ttl:    ttl,
		leases: map[string]memoryLease{},
		now:    time.Now,
	}
}

func (l *MemoryLocker) TryAcquire(ctx context.Context, key string) (*Handle, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, ok := l.leases[key]; ok && now.Before(cur.expires) {
		return nil, false, nil
	}
	token := uuid.NewString()
	l.leases[key] = memoryLease{token: token, expires: now.Add(l.ttl)}
	return &Handle{Key: key, Token: token}, true, nil
}

func (l *MemoryLocker) Release(ctx context.Context, h *Handle) error {
	if h == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.leases[h.Key]; ok && cur.token == h.Token {
		delete(l.leases, h.Key)
	}
	return nil
}
