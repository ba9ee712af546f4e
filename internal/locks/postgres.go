package locks

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

// PostgresLocker holds session advisory locks. Each lease pins one pooled
// connection until release, since the lock belongs to the session.
type PostgresLocker struct {
	db  *sql.DB
	log *logger.Logger
}

func NewPostgresLocker(db *gorm.DB, baseLog *logger.Logger) (*PostgresLocker, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	return &PostgresLocker{db: sqlDB, log: baseLog.With("service", "PostgresLocker")}, nil
}

func (l *PostgresLocker) TryAcquire(ctx context.Context, key string) (*Handle, bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("advisory lock conn: %w", err)
	}
	lockID := advisoryKey(key)
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&acquired); err != nil {
		_ = conn.Close()
		return nil, false, fmt.Errorf("advisory lock %s: %w", key, err)
	}
	if !acquired {
		_ = conn.Close()
		return nil, false, nil
	}
	h := &Handle{Key: key}
	h.release = func(ctx context.Context) error {
		defer conn.Close()
		_, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", lockID)
		return err
	}
	return h, true, nil
}

func (l *PostgresLocker) Release(ctx context.Context, h *Handle) error {
	if h == nil || h.release == nil {
		return nil
	}
	release := h.release
	h.release = nil
	if err := release(ctx); err != nil {
		l.log.Warn("Advisory unlock failed", "key", h.Key, "error", err)
		return fmt.Errorf("advisory unlock %s: %w", h.Key, err)
	}
	return nil
}
