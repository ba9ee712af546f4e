package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/enrichment-backend/internal/data/aggregates"
	"github.com/yungbote/enrichment-backend/internal/data/repos"
	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/jobs/notify"
	"github.com/yungbote/enrichment-backend/internal/jobs/params"
	"github.com/yungbote/enrichment-backend/internal/observability"
	"github.com/yungbote/enrichment-backend/internal/platform/dbctx"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

const (
	ReasonRetryExhausted = "retry_exhausted"
	ReasonIntakeTimeout  = "intake_timeout"

	IntakeTimeoutCause = "intake exceeded time budget"

	defaultBatchSize = 500
)

// Result counts the jobs a sweep moved to failure.
type Result struct {
	RetryExhausted int `json:"retry_exhausted"`
	IntakeTimedOut int `json:"intake_timed_out"`
}

func (r Result) Total() int { return r.RetryExhausted + r.IntakeTimedOut }

// Reconciler fails jobs that ran out of retries or never finished intake.
// It only ever moves non-terminal jobs to failure, guarded by the state it
// read, so it can run alongside claims and completions.
type Reconciler struct {
	log         *logger.Logger
	enrichments repos.EnrichmentRepo
	params      *params.Loader
	notifier    notify.Notifier
	metrics     *observability.Metrics
	batchSize   int
	now         func() time.Time
}

type Deps struct {
	Enrichments repos.EnrichmentRepo
	Params      *params.Loader
	Notifier    notify.Notifier
	Metrics     *observability.Metrics
}

func NewReconciler(baseLog *logger.Logger, deps Deps, batchSize int) *Reconciler {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Reconciler{
		log:         baseLog.With("service", "Reconciler"),
		enrichments: deps.Enrichments,
		params:      deps.Params,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		batchSize:   batchSize,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Sweep runs the retry-exhaustion and stuck-intake sweeps against one
// parameter snapshot.
func (r *Reconciler) Sweep(ctx context.Context) (res Result, err error) {
	ctx, span := observability.StartSpan(ctx, "reconcile.sweep")
	defer func() {
		span.SetAttributes(
			attribute.Int("retry_exhausted", res.RetryExhausted),
			attribute.Int("intake_timed_out", res.IntakeTimedOut),
		)
		observability.EndSpan(span, err)
	}()

	snap, err := r.params.Snapshot(ctx)
	if err != nil {
		return Result{}, err
	}
	if err := snap.Validate(); err != nil {
		return Result{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := r.sweepRetries(gctx, snap)
		res.RetryExhausted = n
		return err
	})
	g.Go(func() error {
		n, err := r.sweepIntake(gctx, snap)
		res.IntakeTimedOut = n
		return err
	})
	err = g.Wait()
	if res.Total() > 0 {
		r.log.Info("Reconciler sweep failed jobs",
			"retry_exhausted", res.RetryExhausted,
			"intake_timed_out", res.IntakeTimedOut,
		)
	}
	return res, err
}

func (r *Reconciler) sweepRetries(ctx context.Context, snap params.Snapshot) (int, error) {
	failed := 0
	for _, stage := range types.Stages() {
		d := types.MustDescribe(stage)
		max, err := snap.MaxRetries(stage)
		if err != nil {
			return failed, err
		}
		rows, err := r.enrichments.ListRetryExhausted(dbctx.Context{Ctx: ctx}, stage, max, r.batchSize)
		if err != nil {
			return failed, aggregates.MapError("reconcile.retries", err)
		}
		for _, e := range rows {
			retries := e.State(stage).Retries
			cause := fmt.Sprintf("%s reached %d (max %d)", d.Column("retries"), retries, max)
			ok, err := r.fail(ctx, e, aggregates.Guard{
				Statuses: []string{e.Status},
				Equals:   map[string]any{d.Column("retries"): retries},
			}, cause, ReasonRetryExhausted)
			if err != nil {
				return failed, err
			}
			if ok {
				failed++
			}
		}
	}
	return failed, nil
}

func (r *Reconciler) sweepIntake(ctx context.Context, snap params.Snapshot) (int, error) {
	budget, err := snap.Minutes(params.IntakeTimeoutMinutes)
	if err != nil {
		return 0, err
	}
	rows, err := r.enrichments.ListStuckIntake(dbctx.Context{Ctx: ctx}, r.now().Add(-budget), r.batchSize)
	if err != nil {
		return 0, aggregates.MapError("reconcile.intake", err)
	}
	failed := 0
	for _, e := range rows {
		ok, err := r.fail(ctx, e, aggregates.Guard{
			Statuses: []string{types.StatusUploadingMedia},
		}, IntakeTimeoutCause, ReasonIntakeTimeout)
		if err != nil {
			return failed, err
		}
		if ok {
			failed++
		}
	}
	return failed, nil
}

// fail moves e to failure when guard still holds and notifies only when
// this call made the transition.
func (r *Reconciler) fail(ctx context.Context, e *types.Enrichment, guard aggregates.Guard, cause, reason string) (bool, error) {
	ok, err := r.enrichments.UpdateGuarded(dbctx.Context{Ctx: ctx}, e.ID, guard, map[string]interface{}{
		"status":        types.StatusFailure,
		"failure_cause": cause,
		"waiting_since": nil,
	})
	if err != nil {
		return false, aggregates.MapError("reconcile.fail", err)
	}
	if !ok {
		r.log.Debug("Reconciler skipped job changed since scan", "enrichment_id", e.ID, "reason", reason)
		return false, nil
	}
	r.metrics.IncReconcilerFailure(reason)
	r.log.Warn("Reconciler failed job", "enrichment_id", e.ID, "from_status", e.Status, "reason", reason, "cause", cause)

	e.Status = types.StatusFailure
	e.FailureCause = &cause
	e.WaitingSince = nil
	if r.notifier != nil {
		r.notifier.Notify(context.WithoutCancel(ctx), e)
	}
	return true, nil
}
