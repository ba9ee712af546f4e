package settings

import (
	"context"
	"testing"

	"github.com/yungbote/enrichment-backend/internal/data/repos/testutil"
	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/platform/dbctx"
)

func TestParameterRepo(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewParameterRepo(db, testutil.Logger(t))

	n, err := repo.InsertMissing(dbc, []*types.Parameter{
		{Name: "transcription_max_retries", Value: 3},
		{Name: "max_text_length", Value: 1000},
	})
	if err != nil || n != 2 {
		t.Fatalf("InsertMissing: n=%d err=%v", n, err)
	}

	if err := repo.Upsert(dbc, &types.Parameter{Name: "transcription_max_retries", Value: 5}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	n, err = repo.InsertMissing(dbc, []*types.Parameter{
		{Name: "transcription_max_retries", Value: 3},
		{Name: "translation_max_retries", Value: 3},
	})
	if err != nil {
		t.Fatalf("InsertMissing: %v", err)
	}
	if n != 1 {
		t.Fatalf("InsertMissing: expected 1 new row, got %d", n)
	}

	p, err := repo.Get(dbc, "transcription_max_retries")
	if err != nil || p == nil || p.Value != 5 {
		t.Fatalf("Get: existing value must survive seeding, got %+v err=%v", p, err)
	}
	if p, err := repo.Get(dbc, "missing"); err != nil || p != nil {
		t.Fatalf("Get missing: %+v err=%v", p, err)
	}

	all, err := repo.List(dbc)
	if err != nil || len(all) != 3 {
		t.Fatalf("List: len=%d err=%v", len(all), err)
	}
}
