package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/enrichment-backend/internal/domain"
)

// SeedEnrichment inserts an enrichment in the given status. mutate may
// adjust the row before insert.
func SeedEnrichment(tb testing.TB, ctx context.Context, db *gorm.DB, status string, mutate func(e *types.Enrichment)) *types.Enrichment {
	tb.Helper()
	now := time.Now().UTC()
	e := &types.Enrichment{
		ID:                          uuid.New(),
		CreatedBy:                   uuid.New(),
		Status:                      status,
		Priority:                    100,
		MediaKey:                    "media/" + uuid.NewString() + ".mp4",
		MediaType:                   "video/mp4",
		Disciplines:                 datatypes.JSONSlice[string]{},
		MediaTypes:                  datatypes.JSONSlice[string]{},
		LatestEnrichmentRequestedAt: now,
	}
	if mutate != nil {
		mutate(e)
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed enrichment: %v", err)
	}
	return e
}

// SeedVersion inserts a version with the given number of two-choice
// questions.
func SeedVersion(tb testing.TB, ctx context.Context, db *gorm.DB, enrichmentID uuid.UUID, seq int, questions int) *types.EnrichmentVersion {
	tb.Helper()
	transcript := "transcript"
	v := &types.EnrichmentVersion{
		EnrichmentID: enrichmentID,
		Seq:          seq,
		Language:     "en",
		Transcript:   &transcript,
	}
	if err := db.WithContext(ctx).Create(v).Error; err != nil {
		tb.Fatalf("seed version: %v", err)
	}
	for i := 0; i < questions; i++ {
		q := &types.MultipleChoiceQuestion{VersionID: v.ID, Position: i, Text: "question"}
		if err := db.WithContext(ctx).Create(q).Error; err != nil {
			tb.Fatalf("seed question: %v", err)
		}
		choices := []*types.Choice{
			{QuestionID: q.ID, Position: 0, Text: "yes", Correct: true},
			{QuestionID: q.ID, Position: 1, Text: "no"},
		}
		if err := db.WithContext(ctx).Create(&choices).Error; err != nil {
			tb.Fatalf("seed choices: %v", err)
		}
		q.Choices = choices
		v.Questions = append(v.Questions, q)
	}
	return v
}

// SeedWorker inserts an API client holding the given scopes.
func SeedWorker(tb testing.TB, ctx context.Context, db *gorm.DB, scopes ...string) *types.Worker {
	tb.Helper()
	w := &types.Worker{
		ID:         uuid.New(),
		Name:       "worker",
		ClientID:   "client-" + uuid.NewString(),
		SecretHash: "x",
		Scopes:     datatypes.JSONSlice[string](scopes),
	}
	if err := db.WithContext(ctx).Create(w).Error; err != nil {
		tb.Fatalf("seed worker: %v", err)
	}
	return w
}
