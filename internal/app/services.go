package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/enrichment-backend/internal/clients/kafka"
	"github.com/yungbote/enrichment-backend/internal/data/aggregates"
	"github.com/yungbote/enrichment-backend/internal/data/db"
	"github.com/yungbote/enrichment-backend/internal/jobs/notify"
	"github.com/yungbote/enrichment-backend/internal/jobs/params"
	"github.com/yungbote/enrichment-backend/internal/jobs/queue"
	"github.com/yungbote/enrichment-backend/internal/jobs/reconcile"
	"github.com/yungbote/enrichment-backend/internal/locks"
	"github.com/yungbote/enrichment-backend/internal/observability"
	"github.com/yungbote/enrichment-backend/internal/platform/blob"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
	"github.com/yungbote/enrichment-backend/internal/services"
)

type Services struct {
	Params     *params.Loader
	Locker     locks.Locker
	Signer     blob.Signer
	Notifier   notify.Notifier
	Queue      *queue.Service
	Reconciler *reconcile.Reconciler
	Auth       services.AuthService
	Enrichment services.EnrichmentService
}

func wireServices(
	ctx context.Context,
	log *logger.Logger,
	cfg Config,
	theDB *gorm.DB,
	reposet Repos,
	rdb goredis.UniversalClient,
	publisher kafka.Publisher,
	metrics *observability.Metrics,
) (Services, error) {
	log.Info("Wiring services...")

	loader := params.NewLoader(reposet.Parameter, log)
	if err := loader.Seed(ctx, cfg.Pipeline.ParametersFile); err != nil {
		return Services{}, fmt.Errorf("seed parameters: %w", err)
	}

	locker, err := wireLocker(log, cfg, theDB, rdb)
	if err != nil {
		return Services{}, err
	}

	signer, err := blob.New(ctx, log, cfg.BlobSigner())
	if err != nil {
		return Services{}, fmt.Errorf("init blob signer: %w", err)
	}

	notifier := notify.NewWebhookNotifier(
		log,
		reposet.Enrichment,
		reposet.Version,
		publisher,
		metrics,
		seconds(cfg.Pipeline.NotifyTimeoutSeconds, notify.DefaultTimeout),
	)

	tx := aggregates.NewGormTxRunner(theDB)
	queueService := queue.NewService(log, queue.Deps{
		Tx:          tx,
		Enrichments: reposet.Enrichment,
		Versions:    reposet.Version,
		Workers:     reposet.Worker,
		Params:      loader,
		Locker:      locker,
		Signer:      signer,
		Notifier:    notifier,
		Metrics:     metrics,
	}, cfg.Pipeline.ClaimAttempts)

	reconciler := reconcile.NewReconciler(log, reconcile.Deps{
		Enrichments: reposet.Enrichment,
		Params:      loader,
		Notifier:    notifier,
		Metrics:     metrics,
	}, cfg.Pipeline.ReconcileBatchSize)

	return Services{
		Params:     loader,
		Locker:     locker,
		Signer:     signer,
		Notifier:   notifier,
		Queue:      queueService,
		Reconciler: reconciler,
		Auth: services.NewAuthService(
			log,
			reposet.Worker,
			cfg.Auth.JWTSecretKey,
			seconds(cfg.Auth.AccessTokenTTLSeconds, time.Hour),
		),
		Enrichment: services.NewEnrichmentService(log, tx, reposet.Enrichment, reposet.Version, signer),
	}, nil
}

// wireLocker picks the named-lock backend. Advisory locks need Postgres, so
// a sqlite store falls back to the in-process locker.
func wireLocker(log *logger.Logger, cfg Config, theDB *gorm.DB, rdb goredis.UniversalClient) (locks.Locker, error) {
	ttl := seconds(cfg.Lock.TTLSeconds, locks.DefaultTTL)
	switch cfg.Lock.Backend {
	case LockBackendRedis:
		l, err := locks.NewRedisLocker(rdb, "enrichment:lock:", ttl, log)
		if err != nil {
			return nil, fmt.Errorf("init redis locker: %w", err)
		}
		return l, nil
	case LockBackendPostgres:
		if cfg.DB().Driver == db.DriverSQLite {
			log.Warn("LOCK_BACKEND=postgres is unavailable on sqlite; using in-process locks")
			return locks.NewMemoryLocker(ttl), nil
		}
		l, err := locks.NewPostgresLocker(theDB, log)
		if err != nil {
			return nil, fmt.Errorf("init postgres locker: %w", err)
		}
		return l, nil
	default:
		return locks.NewMemoryLocker(ttl), nil
	}
}
