package params

import (
	"context"

	"github.com/yungbote/enrichment-backend/internal/data/aggregates"
	"github.com/yungbote/enrichment-backend/internal/data/repos"
	"github.com/yungbote/enrichment-backend/internal/platform/dbctx"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

// Loader reads parameter snapshots from the store.
type Loader struct {
	repo repos.ParameterRepo
	log  *logger.Logger
}

func NewLoader(repo repos.ParameterRepo, baseLog *logger.Logger) *Loader {
	return &Loader{repo: repo, log: baseLog.With("service", "ParameterLoader")}
}

func (l *Loader) Snapshot(ctx context.Context) (Snapshot, error) {
	rows, err := l.repo.List(dbctx.Context{Ctx: ctx})
	if err != nil {
		return Snapshot{}, aggregates.MapError("params.snapshot", err)
	}
	values := make(map[string]float64, len(rows))
	for _, p := range rows {
		values[p.Name] = p.Value
	}
	return NewSnapshot(values), nil
}

// Seed inserts every seed parameter that does not exist yet and then
// checks that the mandatory set resolves.
func (l *Loader) Seed(ctx context.Context, path string) error {
	seed, err := LoadSeed(path)
	if err != nil {
		return err
	}
	n, err := l.repo.InsertMissing(dbctx.Context{Ctx: ctx}, seed)
	if err != nil {
		return aggregates.MapError("params.seed", err)
	}
	if n > 0 {
		l.log.Info("Seeded pipeline parameters", "inserted", n)
	}
	snap, err := l.Snapshot(ctx)
	if err != nil {
		return err
	}
	return snap.Validate()
}
