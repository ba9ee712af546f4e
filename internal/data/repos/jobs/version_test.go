package jobs

import (
	"context"
	"testing"

	"gorm.io/datatypes"

	"github.com/yungbote/enrichment-backend/internal/data/repos/testutil"
	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/platform/dbctx"
)

func TestVersionRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewVersionRepo(db, testutil.Logger(t))

	e := testutil.SeedEnrichment(t, ctx, db, types.StatusWaitingForEnrichment, nil)

	if v, err := repo.Latest(dbc, e.ID); err != nil || v != nil {
		t.Fatalf("Latest on empty: v=%v err=%v", v, err)
	}
	seq, err := repo.NextSeq(dbc, e.ID)
	if err != nil || seq != 1 {
		t.Fatalf("NextSeq on empty: seq=%d err=%v", seq, err)
	}

	first := &types.EnrichmentVersion{
		EnrichmentID: e.ID,
		Seq:          1,
		Language:     "en",
		Questions: []*types.MultipleChoiceQuestion{
			{Text: "q1", Choices: []*types.Choice{{Text: "a", Correct: true}, {Text: "b"}}},
			{Text: "q2", Choices: []*types.Choice{{Text: "c"}, {Text: "d", Correct: true}}},
		},
	}
	if err := repo.Create(dbc, first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	second := testutil.SeedVersion(t, ctx, db, e.ID, 2, 1)

	latest, err := repo.Latest(dbc, e.ID)
	if err != nil || latest == nil || latest.ID != second.ID {
		t.Fatalf("Latest: expected %s, got %+v err=%v", second.ID, latest, err)
	}
	initial, err := repo.Initial(dbc, e.ID)
	if err != nil || initial == nil || initial.ID != first.ID {
		t.Fatalf("Initial: expected %s, got %+v err=%v", first.ID, initial, err)
	}
	if len(initial.Questions) != 2 || initial.Questions[1].Text != "q2" {
		t.Fatalf("Initial questions: %+v", initial.Questions)
	}
	if len(initial.Questions[0].Choices) != 2 || !initial.Questions[0].Choices[0].Correct {
		t.Fatalf("Initial choices: %+v", initial.Questions[0].Choices)
	}
	if id, err := repo.LatestID(dbc, e.ID); err != nil || id == nil || *id != second.ID {
		t.Fatalf("LatestID: %v err=%v", id, err)
	}
	if seq, err := repo.NextSeq(dbc, e.ID); err != nil || seq != 3 {
		t.Fatalf("NextSeq: seq=%d err=%v", seq, err)
	}

	if err := repo.ReplaceQuestions(dbc, first.ID, []*types.MultipleChoiceQuestion{
		{Text: "only", Choices: []*types.Choice{{Text: "x", Correct: true}, {Text: "y"}}},
	}); err != nil {
		t.Fatalf("ReplaceQuestions: %v", err)
	}
	reloaded, _ := repo.GetByID(dbc, first.ID)
	if len(reloaded.Questions) != 1 || reloaded.Questions[0].Text != "only" {
		t.Fatalf("ReplaceQuestions: %+v", reloaded.Questions)
	}

	qid := reloaded.Questions[0].ID
	if err := repo.SetEvaluation(dbc, qid, datatypes.JSON([]byte(`{"score":0.8}`))); err != nil {
		t.Fatalf("SetEvaluation: %v", err)
	}
	reloaded, _ = repo.GetByID(dbc, first.ID)
	if len(reloaded.Questions[0].Evaluation) == 0 {
		t.Fatalf("SetEvaluation: evaluation not stored")
	}

	if err := repo.Delete(dbc, second.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if v, _ := repo.GetByID(dbc, second.ID); v != nil {
		t.Fatalf("Delete: version still present")
	}
	var choices int64
	db.Model(&types.Choice{}).Count(&choices)
	if choices != 2 {
		t.Fatalf("Delete: expected 2 remaining choices, got %d", choices)
	}
}
