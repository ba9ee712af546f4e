package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/enrichment-backend/internal/data/repos"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

type Repos struct {
	Worker     repos.WorkerRepo
	Enrichment repos.EnrichmentRepo
	Version    repos.VersionRepo
	Parameter  repos.ParameterRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Worker:     repos.NewWorkerRepo(db, log),
		Enrichment: repos.NewEnrichmentRepo(db, log),
		Version:    repos.NewVersionRepo(db, log),
		Parameter:  repos.NewParameterRepo(db, log),
	}
}
