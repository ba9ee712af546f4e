package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/enrichment-backend/internal/data/aggregates"
	"github.com/yungbote/enrichment-backend/internal/data/repos/testutil"
	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/platform/dbctx"
)

func ptrString(s string) *string { return &s }

func ptrTime(t time.Time) *time.Time { return &t }

func TestEnrichmentRepoFindOldestEligible(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewEnrichmentRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	older := testutil.SeedEnrichment(t, ctx, db, types.StatusWaitingForTranscription, func(e *types.Enrichment) {
		e.LatestEnrichmentRequestedAt = now.Add(-2 * time.Minute)
	})
	testutil.SeedEnrichment(t, ctx, db, types.StatusWaitingForTranscription, func(e *types.Enrichment) {
		e.LatestEnrichmentRequestedAt = now.Add(-1 * time.Minute)
	})
	urgent := testutil.SeedEnrichment(t, ctx, db, types.StatusWaitingForEnrichment, func(e *types.Enrichment) {
		e.Priority = 1
	})
	testutil.SeedEnrichment(t, ctx, db, types.StatusWaitingForEnrichment, func(e *types.Enrichment) {
		e.LatestEnrichmentRequestedAt = now.Add(-time.Hour)
	})

	got, err := repo.FindOldestEligible(dbc, types.StageTranscription, types.WorkerFilter{}, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("FindOldestEligible: %v", err)
	}
	if got == nil || got.ID != older.ID {
		t.Fatalf("FindOldestEligible: expected oldest request %s, got %+v", older.ID, got)
	}

	got, err = repo.FindOldestEligible(dbc, types.StageAIEnrichment, types.WorkerFilter{}, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("FindOldestEligible enrichment: %v", err)
	}
	if got == nil || got.ID != urgent.ID {
		t.Fatalf("FindOldestEligible: expected priority job %s, got %+v", urgent.ID, got)
	}

	if got, err := repo.FindOldestEligible(dbc, types.StageTranslation, types.WorkerFilter{}, now); err != nil || got != nil {
		t.Fatalf("FindOldestEligible translation: expected none, got %+v err=%v", got, err)
	}
}

func TestEnrichmentRepoStalledClaims(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewEnrichmentRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	fresh := testutil.SeedEnrichment(t, ctx, db, types.StatusTranscribing, func(e *types.Enrichment) {
		e.Transcription.StartedAt = ptrTime(now.Add(-time.Minute))
	})
	stalled := testutil.SeedEnrichment(t, ctx, db, types.StatusTranscribing, func(e *types.Enrichment) {
		e.Transcription.StartedAt = ptrTime(now.Add(-2 * time.Hour))
	})

	got, err := repo.FindOldestEligible(dbc, types.StageTranscription, types.WorkerFilter{}, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("FindOldestEligible: %v", err)
	}
	if got == nil || got.ID != stalled.ID {
		t.Fatalf("expected stalled claim %s, got %+v", stalled.ID, got)
	}
	if got.ID == fresh.ID {
		t.Fatalf("fresh claim must not be eligible")
	}
}

func TestEnrichmentRepoRoutingFilter(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewEnrichmentRepo(db, testutil.Logger(t))
	now := time.Now().UTC()

	pinned := testutil.SeedEnrichment(t, ctx, db, types.StatusWaitingForEnrichment, func(e *types.Enrichment) {
		e.AIModel = ptrString("gpt")
		e.LatestEnrichmentRequestedAt = now.Add(-time.Hour)
	})
	open := testutil.SeedEnrichment(t, ctx, db, types.StatusWaitingForEnrichment, nil)

	cases := []struct {
		name   string
		filter types.WorkerFilter
		want   *types.Enrichment
	}{
		{name: "no pin sees unpinned", filter: types.WorkerFilter{}, want: open},
		{name: "pin sees pinned", filter: types.WorkerFilter{Model: "gpt"}, want: pinned},
		{name: "other pin sees nothing", filter: types.WorkerFilter{Model: "llama"}, want: nil},
		{name: "catch-all pin sees both", filter: types.WorkerFilter{Model: "gpt", Unspecified: true}, want: pinned},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repo.FindOldestEligible(dbc, types.StageAIEnrichment, tc.filter, now)
			if err != nil {
				t.Fatalf("FindOldestEligible: %v", err)
			}
			switch {
			case tc.want == nil && got != nil:
				t.Fatalf("expected none, got %s", got.ID)
			case tc.want != nil && (got == nil || got.ID != tc.want.ID):
				t.Fatalf("expected %s, got %+v", tc.want.ID, got)
			}
		})
	}
}

func TestEnrichmentRepoUpdateGuarded(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewEnrichmentRepo(db, testutil.Logger(t))

	e := testutil.SeedEnrichment(t, ctx, db, types.StatusTranscribing, func(e *types.Enrichment) {
		e.Transcription.TaskID = "task-1"
	})

	ok, err := repo.UpdateGuarded(dbc, e.ID, aggregates.Guard{
		Statuses: []string{types.StatusTranscribing},
		Equals:   map[string]any{"transcription_task_id": "stale"},
	}, map[string]interface{}{"status": types.StatusFailure})
	if err != nil || ok {
		t.Fatalf("stale guard: ok=%v err=%v", ok, err)
	}

	ok, err = repo.UpdateGuarded(dbc, e.ID, aggregates.Guard{
		Statuses: []string{types.StatusTranscribing},
		Equals:   map[string]any{"transcription_task_id": "task-1"},
	}, map[string]interface{}{"status": types.StatusWaitingForEnrichment})
	if err != nil || !ok {
		t.Fatalf("matching guard: ok=%v err=%v", ok, err)
	}

	got, err := repo.GetByID(dbc, e.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != types.StatusWaitingForEnrichment {
		t.Fatalf("expected status %s, got %s", types.StatusWaitingForEnrichment, got.Status)
	}
}

func TestEnrichmentRepoSweeps(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewEnrichmentRepo(db, testutil.Logger(t))
	now := time.Now().UTC()

	exhausted := testutil.SeedEnrichment(t, ctx, db, types.StatusTranscribing, func(e *types.Enrichment) {
		e.Transcription.Retries = 3
	})
	testutil.SeedEnrichment(t, ctx, db, types.StatusFailure, func(e *types.Enrichment) {
		e.Transcription.Retries = 9
	})
	stuck := testutil.SeedEnrichment(t, ctx, db, types.StatusUploadingMedia, func(e *types.Enrichment) {
		e.CreatedAt = now.Add(-3 * time.Hour)
	})
	testutil.SeedEnrichment(t, ctx, db, types.StatusUploadingMedia, nil)

	rows, err := repo.ListRetryExhausted(dbc, types.StageTranscription, 2, 0)
	if err != nil {
		t.Fatalf("ListRetryExhausted: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != exhausted.ID {
		t.Fatalf("ListRetryExhausted: expected only %s, got %d rows", exhausted.ID, len(rows))
	}

	rows, err = repo.ListStuckIntake(dbc, now.Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("ListStuckIntake: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != stuck.ID {
		t.Fatalf("ListStuckIntake: expected only %s, got %d rows", stuck.ID, len(rows))
	}

	counts, err := repo.CountByStatus(dbc)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[types.StatusUploadingMedia] != 2 || counts[types.StatusFailure] != 1 {
		t.Fatalf("CountByStatus: unexpected %v", counts)
	}
}

func TestEnrichmentRepoRecordNotification(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewEnrichmentRepo(db, testutil.Logger(t))

	e := testutil.SeedEnrichment(t, ctx, db, types.StatusSuccess, nil)
	if err := repo.RecordNotification(dbc, e.ID, 500, nil); err != nil {
		t.Fatalf("RecordNotification: %v", err)
	}
	got, _ := repo.GetByID(dbc, e.ID)
	if got.NotificationStatus == nil || *got.NotificationStatus != 500 || got.NotifiedAt != nil {
		t.Fatalf("expected status 500 and no notified_at, got %+v", got)
	}

	at := time.Now().UTC()
	if err := repo.RecordNotification(dbc, e.ID, 200, &at); err != nil {
		t.Fatalf("RecordNotification: %v", err)
	}
	got, _ = repo.GetByID(dbc, e.ID)
	if got.NotificationStatus == nil || *got.NotificationStatus != 200 || got.NotifiedAt == nil {
		t.Fatalf("expected status 200 with notified_at, got %+v", got)
	}
}
