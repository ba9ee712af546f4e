package queue

import (
	"time"

	"github.com/yungbote/enrichment-backend/internal/data/aggregates"
	"github.com/yungbote/enrichment-backend/internal/data/repos"
	"github.com/yungbote/enrichment-backend/internal/jobs/notify"
	"github.com/yungbote/enrichment-backend/internal/jobs/params"
	"github.com/yungbote/enrichment-backend/internal/locks"
	"github.com/yungbote/enrichment-backend/internal/observability"
	"github.com/yungbote/enrichment-backend/internal/platform/blob"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

const DefaultClaimAttempts = 2

// Service runs the worker side of the pipeline: selecting and claiming
// stage work and applying stage completions.
type Service struct {
	log         *logger.Logger
	tx          aggregates.TxRunner
	enrichments repos.EnrichmentRepo
	versions    repos.VersionRepo
	workers     repos.WorkerRepo
	params      *params.Loader
	locker      locks.Locker
	signer      blob.Signer
	notifier    notify.Notifier
	metrics     *observability.Metrics

	claimAttempts int
	now           func() time.Time
}

type Deps struct {
	Tx          aggregates.TxRunner
	Enrichments repos.EnrichmentRepo
	Versions    repos.VersionRepo
	Workers     repos.WorkerRepo
	Params      *params.Loader
	Locker      locks.Locker
	Signer      blob.Signer
	Notifier    notify.Notifier
	Metrics     *observability.Metrics
}

func NewService(baseLog *logger.Logger, deps Deps, claimAttempts int) *Service {
	if claimAttempts <= 0 {
		claimAttempts = DefaultClaimAttempts
	}
	return &Service{
		log:           baseLog.With("service", "QueueService"),
		tx:            deps.Tx,
		enrichments:   deps.Enrichments,
		versions:      deps.Versions,
		workers:       deps.Workers,
		params:        deps.Params,
		locker:        deps.Locker,
		signer:        deps.Signer,
		notifier:      deps.Notifier,
		metrics:       deps.Metrics,
		claimAttempts: claimAttempts,
		now:           func() time.Time { return time.Now().UTC() },
	}
}
