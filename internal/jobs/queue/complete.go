package queue

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/enrichment-backend/internal/data/aggregates"
	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/observability"
	"github.com/yungbote/enrichment-backend/internal/platform/dbctx"
)

const defaultFailureCause = "worker reported failure"

type CompleteRequest struct {
	Stage        types.Stage
	EnrichmentID uuid.UUID
	// VersionID, when set, must name the latest version of the enrichment.
	VersionID    *uuid.UUID
	WorkerID     uuid.UUID
	TaskID       string
	Outcome      string
	FailureCause string
	Payload      *StagePayload
}

// Complete records the result of a claimed stage. Only the worker and task
// holding the claim may complete it; anything else is rejected without
// touching the enrichment.
func (s *Service) Complete(ctx context.Context, req CompleteRequest) (out *types.Enrichment, err error) {
	d, ok := types.Describe(req.Stage)
	if !ok {
		return nil, types.NewError(types.CodeValidation, "queue.complete", "unknown stage", nil)
	}
	outcome := strings.ToUpper(strings.TrimSpace(req.Outcome))
	ctx, span := observability.StartSpan(ctx, "queue.complete",
		attribute.String("stage", string(req.Stage)),
		attribute.String("enrichment_id", req.EnrichmentID.String()),
		attribute.String("outcome", outcome),
	)
	result := "ok"
	defer func() {
		if err != nil {
			result = string(types.CodeOf(err))
			if result == "" {
				result = string(types.CodeInternal)
			}
		}
		s.metrics.IncCompletion(string(req.Stage), outcome, result)
		observability.EndSpan(span, err)
	}()

	snap, err := s.params.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	lim, err := limitsFrom(snap)
	if err != nil {
		return nil, err
	}

	err = s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		e, err := s.enrichments.GetForUpdate(dbc, req.EnrichmentID)
		if err != nil {
			return err
		}
		if e == nil {
			return types.NewError(types.CodeNotFound, "queue.complete", "enrichment not found", nil)
		}
		st := e.State(d.Stage)
		if st.WorkerID == nil || *st.WorkerID != req.WorkerID || st.TaskID == "" || st.TaskID != strings.TrimSpace(req.TaskID) {
			return types.NewError(types.CodeOwnershipMismatch, "queue.complete", "job is not claimed by this worker and task", nil)
		}
		if e.Status != d.InProgress {
			return types.NewError(types.CodeOwnershipMismatch, "queue.complete", "job is not in progress for this stage", nil)
		}

		latest, err := s.versions.Latest(dbc, e.ID)
		if err != nil {
			return err
		}
		if req.VersionID != nil {
			if err := s.checkVersion(dbc, e.ID, *req.VersionID, latest); err != nil {
				return err
			}
		}

		now := s.now()
		guard := aggregates.Guard{
			Statuses: []string{d.InProgress},
			Equals: map[string]any{
				d.Column("task_id"):   st.TaskID,
				d.Column("worker_id"): req.WorkerID,
			},
		}

		switch outcome {
		case types.OutcomeKO:
			cause := strings.TrimSpace(req.FailureCause)
			if cause == "" {
				cause = defaultFailureCause
			}
			ok, err := s.enrichments.UpdateGuarded(dbc, e.ID, guard, map[string]interface{}{
				"status":        types.StatusFailure,
				"failure_cause": cause,
				"waiting_since": nil,
			})
			if err != nil {
				return err
			}
			if err := aggregates.RequireCASSuccess(ok, types.CodeOwnershipMismatch, "queue.complete", "claim changed concurrently"); err != nil {
				return err
			}
			if latest != nil {
				if err := s.versions.UpdateFields(dbc, latest.ID, map[string]interface{}{"failure_cause": cause}); err != nil {
					return err
				}
			}
			e.Status = types.StatusFailure
			e.FailureCause = &cause
			e.WaitingSince = nil
			if err := s.workers.StampOutcome(dbc, req.WorkerID, false, now); err != nil {
				return err
			}
		case types.OutcomeOK:
			if causes := validatePayload(d.Stage, e, latest, req.Payload, lim); len(causes) > 0 {
				return types.ValidationFailed("queue.complete", causes...)
			}
			st.EndedAt = &now
			next := e.NextStatus(d.Stage)
			updates := map[string]interface{}{
				"status":             next,
				d.Column("ended_at"): now,
				"failure_cause":      nil,
				"waiting_since":      nil,
			}
			if _, waiting := types.StageOfStatus(next); waiting {
				updates["waiting_since"] = now
			}
			ok, err := s.enrichments.UpdateGuarded(dbc, e.ID, guard, updates)
			if err != nil {
				return err
			}
			if err := aggregates.RequireCASSuccess(ok, types.CodeOwnershipMismatch, "queue.complete", "claim changed concurrently"); err != nil {
				return err
			}
			payload := req.Payload
			if payload == nil {
				payload = &StagePayload{}
			}
			if _, err := s.applyPayload(dbc, d.Stage, e, latest, payload, now); err != nil {
				return err
			}
			e.Status = next
			e.FailureCause = nil
			if next == types.StatusSuccess || next == types.StatusFailure {
				e.WaitingSince = nil
			} else {
				e.WaitingSince = &now
			}
			if err := s.workers.StampOutcome(dbc, req.WorkerID, true, now); err != nil {
				return err
			}
		default:
			return types.ValidationFailed("queue.complete", "outcome must be OK or KO")
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, aggregates.MapError("queue.complete", err)
	}

	s.log.Info("stage completed",
		"enrichment_id", out.ID,
		"stage", req.Stage,
		"outcome", outcome,
		"status", out.Status,
	)
	if types.IsTerminal(out.Status) && s.notifier != nil {
		s.notifier.Notify(context.WithoutCancel(ctx), out)
	}
	return out, nil
}

func (s *Service) checkVersion(dbc dbctx.Context, enrichmentID, versionID uuid.UUID, latest *types.EnrichmentVersion) error {
	v, err := s.versions.GetByID(dbc, versionID)
	if err != nil {
		return err
	}
	if v == nil || v.EnrichmentID != enrichmentID {
		return types.NewError(types.CodeNotFound, "queue.complete", "version not found for enrichment", nil)
	}
	if latest == nil || latest.ID != v.ID {
		return types.ValidationFailed("queue.complete", "version is not the latest version of the enrichment")
	}
	return nil
}
