package params

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yungbote/enrichment-backend/internal/data/repos"
	"github.com/yungbote/enrichment-backend/internal/data/repos/testutil"
	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/platform/dbctx"
)

func TestSnapshotMissingMandatory(t *testing.T) {
	snap := NewSnapshot(map[string]float64{"transcription_max_retries": 2})
	if n, err := snap.MaxRetries(types.StageTranscription); err != nil || n != 2 {
		t.Fatalf("MaxRetries: n=%d err=%v", n, err)
	}
	_, err := snap.StageTimeout(types.StageTranscription)
	if !types.IsCode(err, types.CodeInternal) {
		t.Fatalf("expected internal error for missing timeout, got %v", err)
	}
	if err := snap.Validate(); !types.IsCode(err, types.CodeInternal) {
		t.Fatalf("Validate: expected internal error, got %v", err)
	}
}

func TestSnapshotMinutes(t *testing.T) {
	snap := NewSnapshot(map[string]float64{"translation_timeout_minutes": 1.5})
	d, err := snap.StageTimeout(types.StageTranslation)
	if err != nil || d != 90*time.Second {
		t.Fatalf("StageTimeout: d=%v err=%v", d, err)
	}
}

func TestDefaultsCoverMandatory(t *testing.T) {
	values := map[string]float64{}
	for _, p := range Defaults() {
		values[p.Name] = p.Value
	}
	if err := NewSnapshot(values).Validate(); err != nil {
		t.Fatalf("defaults incomplete: %v", err)
	}
}

func TestMergeSeed(t *testing.T) {
	raw := []byte(`
parameters:
  transcription_max_retries:
    value: 7
  custom_knob:
    value: 1
    description: extra
`)
	out, err := mergeSeed(Defaults(), raw)
	if err != nil {
		t.Fatalf("mergeSeed: %v", err)
	}
	got := map[string]float64{}
	for _, p := range out {
		got[p.Name] = p.Value
	}
	if got["transcription_max_retries"] != 7 || got["custom_knob"] != 1 {
		t.Fatalf("unexpected merge result %v", got)
	}
	if _, err := mergeSeed(Defaults(), []byte("parameters:\n  x:\n    value: -1\n")); err == nil {
		t.Fatalf("expected negative value to be rejected")
	}
}

func TestLoaderSeedKeepsExistingValues(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := repos.NewParameterRepo(db, testutil.Logger(t))
	if err := repo.Upsert(dbctx.Context{Ctx: ctx}, &types.Parameter{Name: MaxTextLength, Value: 42}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	path := filepath.Join(t.TempDir(), "params.yaml")
	if err := os.WriteFile(path, []byte("parameters:\n  ai_evaluation_max_retries:\n    value: 5\n"), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	l := NewLoader(repo, testutil.Logger(t))
	if err := l.Seed(ctx, path); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	snap, err := l.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if v, _ := snap.Lookup(MaxTextLength); v != 42 {
		t.Fatalf("existing value overwritten: %v", v)
	}
	if n, _ := snap.MaxRetries(types.StageAIEvaluation); n != 5 {
		t.Fatalf("seed file value not applied: %d", n)
	}
}
