package queue

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/enrichment-backend/internal/data/aggregates"
	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/locks"
	"github.com/yungbote/enrichment-backend/internal/observability"
	"github.com/yungbote/enrichment-backend/internal/platform/dbctx"
)

type ClaimRequest struct {
	Stage    types.Stage
	WorkerID uuid.UUID
	// TaskID is the worker's own task reference; a fresh one is minted
	// when empty.
	TaskID string
	Filter types.WorkerFilter
}

// ClaimedJob is what a worker receives for a successful claim.
type ClaimedJob struct {
	EnrichmentID   uuid.UUID                `json:"enrichmentId"`
	Stage          types.Stage              `json:"stage"`
	TaskID         string                   `json:"taskId"`
	Priority       int                      `json:"priority"`
	Retries        int                      `json:"retries"`
	MediaURL       string                   `json:"mediaUrl,omitempty"`
	MediaType      string                   `json:"mediaType,omitempty"`
	Language       string                   `json:"language,omitempty"`
	Disciplines    []string                 `json:"disciplines"`
	MediaTypes     []string                 `json:"mediaTypes"`
	TranslateTo    *string                  `json:"translateTo,omitempty"`
	AIModel        *string                  `json:"aiModel,omitempty"`
	Infrastructure *string                  `json:"infrastructure,omitempty"`
	AIEvaluator    *string                  `json:"aiEvaluator,omitempty"`
	StartedAt      time.Time                `json:"startedAt"`
	Version        *types.EnrichmentVersion `json:"version,omitempty"`

	mediaKey string
}

// Claim hands the oldest eligible job of the stage to the worker. It
// returns nil, nil when no job is available.
func (s *Service) Claim(ctx context.Context, req ClaimRequest) (job *ClaimedJob, err error) {
	d, ok := types.Describe(req.Stage)
	if !ok {
		return nil, types.NewError(types.CodeValidation, "queue.claim", "unknown stage", nil)
	}
	if req.WorkerID == uuid.Nil {
		return nil, types.NewError(types.CodeForbidden, "queue.claim", "missing worker identity", nil)
	}
	started := time.Now()
	ctx, span := observability.StartSpan(ctx, "queue.claim", attribute.String("stage", string(req.Stage)))
	result := observability.ClaimEmpty
	defer func() {
		if err != nil {
			result = observability.ClaimError
		}
		s.metrics.ObserveClaim(string(req.Stage), result, time.Since(started))
		observability.EndSpan(span, err)
	}()

	snap, err := s.params.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	timeout, err := snap.StageTimeout(req.Stage)
	if err != nil {
		return nil, err
	}
	token := strings.TrimSpace(req.TaskID)
	if token == "" {
		token = uuid.NewString()
	}

	for attempt := 0; attempt < s.claimAttempts; attempt++ {
		now := s.now()
		cand, err := s.enrichments.FindOldestEligible(dbctx.Context{Ctx: ctx}, req.Stage, req.Filter, now.Add(-timeout))
		if err != nil {
			return nil, aggregates.MapError("queue.claim.select", err)
		}
		if cand == nil {
			return nil, nil
		}

		h, acquired, err := s.locker.TryAcquire(ctx, locks.LockKey(cand.ID, req.Stage))
		if err != nil {
			s.metrics.IncLockError("acquire")
			return nil, types.Wrap(types.CodeRetryable, "queue.claim.lock", err)
		}
		if !acquired {
			result = observability.ClaimContended
			s.log.Debug("claim lock busy", "enrichment_id", cand.ID, "stage", req.Stage, "attempt", attempt)
			continue
		}

		claimed, err := s.claimLocked(ctx, d, cand.ID, req, token, timeout)
		if relErr := s.locker.Release(context.WithoutCancel(ctx), h); relErr != nil {
			s.metrics.IncLockError("release")
			s.log.Warn("claim lock release failed", "enrichment_id", cand.ID, "stage", req.Stage, "error", relErr)
		}
		if err != nil {
			return nil, err
		}
		if claimed == nil {
			result = observability.ClaimContended
			continue
		}
		if err := s.attachMediaURL(ctx, claimed); err != nil {
			s.log.Warn("media url signing failed", "enrichment_id", claimed.EnrichmentID, "error", err)
		}
		result = observability.ClaimClaimed
		s.log.Info("job claimed",
			"enrichment_id", claimed.EnrichmentID,
			"stage", req.Stage,
			"worker_id", req.WorkerID,
			"retries", claimed.Retries,
		)
		return claimed, nil
	}
	return nil, nil
}

// claimLocked re-reads the candidate under a row lock and, when it is
// still eligible, moves it to in-progress for the caller. A nil job means
// the candidate was taken or changed since selection.
func (s *Service) claimLocked(ctx context.Context, d types.StageDescriptor, id uuid.UUID, req ClaimRequest, token string, timeout time.Duration) (*ClaimedJob, error) {
	var job *ClaimedJob
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		e, err := s.enrichments.GetForUpdate(dbc, id)
		if err != nil {
			return err
		}
		now := s.now()
		if e == nil || !d.Eligible(e, now, timeout) || !d.MatchesFilter(e, req.Filter) {
			return nil
		}
		st := e.State(d.Stage)
		retries := st.Retries
		if e.Status == d.InProgress {
			retries++
		}
		workerID := req.WorkerID
		updates := map[string]interface{}{
			"status":               d.InProgress,
			d.Column("started_at"): now,
			d.Column("worker_id"):  workerID,
			d.Column("task_id"):    token,
			d.Column("retries"):    retries,
			d.Column("ended_at"):   nil,
		}
		ok, err := s.enrichments.UpdateGuarded(dbc, e.ID, aggregates.Guard{
			Statuses: []string{e.Status},
			Equals:   map[string]any{d.Column("task_id"): st.TaskID},
		}, updates)
		if err != nil || !ok {
			return err
		}

		e.Status = d.InProgress
		st.StartedAt = &now
		st.EndedAt = nil
		st.WorkerID = &workerID
		st.TaskID = token
		st.Retries = retries

		var version *types.EnrichmentVersion
		if d.Stage != types.StageTranscription {
			if version, err = s.versions.Latest(dbc, e.ID); err != nil {
				return err
			}
		}
		job = newClaimedJob(e, d.Stage, version)
		return nil
	})
	if err != nil {
		return nil, aggregates.MapError("queue.claim.update", err)
	}
	return job, nil
}

func newClaimedJob(e *types.Enrichment, stage types.Stage, version *types.EnrichmentVersion) *ClaimedJob {
	st := e.State(stage)
	job := &ClaimedJob{
		EnrichmentID:   e.ID,
		Stage:          stage,
		TaskID:         st.TaskID,
		Priority:       e.Priority,
		Retries:        st.Retries,
		MediaType:      e.MediaType,
		Language:       e.Language,
		Disciplines:    append([]string{}, e.Disciplines...),
		MediaTypes:     append([]string{}, e.MediaTypes...),
		TranslateTo:    e.TranslateTo,
		AIModel:        e.AIModel,
		Infrastructure: e.Infrastructure,
		AIEvaluator:    e.AIEvaluator,
		Version:        version,
		mediaKey:       e.MediaKey,
	}
	if st.StartedAt != nil {
		job.StartedAt = *st.StartedAt
	}
	return job
}

func (s *Service) attachMediaURL(ctx context.Context, job *ClaimedJob) error {
	if job.Stage != types.StageTranscription || s.signer == nil || job.mediaKey == "" {
		return nil
	}
	u, err := s.signer.PresignGet(ctx, job.mediaKey)
	if err != nil {
		return err
	}
	job.MediaURL = u
	return nil
}
