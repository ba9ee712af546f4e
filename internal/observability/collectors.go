package observability

import (
	"context"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/platform/dbctx"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

// StatusCounter reports how many enrichments sit in each status.
type StatusCounter interface {
	CountByStatus(dbc dbctx.Context) (map[string]int64, error)
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go m.tick(ctx, func() {
		sqlDB, err := db.DB()
		if err != nil {
			if log != nil {
				log.Warn("metrics: db stats unavailable", "error", err)
			}
			return
		}
		stats := sqlDB.Stats()
		m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
		m.pgStats.Set(float64(stats.InUse), "in_use")
		m.pgStats.Set(float64(stats.Idle), "idle")
		m.pgStats.Set(float64(stats.WaitCount), "wait_count")
		m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
		m.pgStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
	})
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb goredis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	go m.tick(ctx, func() {
		start := time.Now()
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			m.redisUp.Set(0)
			if log != nil {
				log.Warn("metrics: redis ping failed", "error", err)
			}
			return
		}
		m.redisUp.Set(1)
		m.redisPing.Set(time.Since(start).Seconds())
	})
}

// StartQueueCollector publishes the per-status enrichment counts.
func (m *Metrics) StartQueueCollector(ctx context.Context, log *logger.Logger, counter StatusCounter) {
	if m == nil || counter == nil {
		return
	}
	go m.tick(ctx, func() { m.collectQueueDepth(ctx, log, counter) })
}

func (m *Metrics) collectQueueDepth(ctx context.Context, log *logger.Logger, counter StatusCounter) {
	counts, err := counter.CountByStatus(dbctx.Context{Ctx: ctx})
	if err != nil {
		if log != nil {
			log.Warn("metrics: queue depth query failed", "error", err)
		}
		return
	}
	for _, s := range types.AllStatuses() {
		m.queueDepth.Set(float64(counts[s]), s)
	}
	for status, n := range counts {
		status = strings.TrimSpace(status)
		if status == "" {
			status = "unknown"
		}
		m.queueDepth.Set(float64(n), status)
	}
}

func (m *Metrics) tick(ctx context.Context, collect func()) {
	ticker := time.NewTicker(scrapeInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			collect()
		}
	}
}
