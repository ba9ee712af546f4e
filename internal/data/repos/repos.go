package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/enrichment-backend/internal/data/repos/auth"
	"github.com/yungbote/enrichment-backend/internal/data/repos/jobs"
	"github.com/yungbote/enrichment-backend/internal/data/repos/settings"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

type WorkerRepo = auth.WorkerRepo

type EnrichmentRepo = jobs.EnrichmentRepo
type VersionRepo = jobs.VersionRepo

type ParameterRepo = settings.ParameterRepo

func NewWorkerRepo(db *gorm.DB, baseLog *logger.Logger) WorkerRepo {
	return auth.NewWorkerRepo(db, baseLog)
}

func NewEnrichmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrichmentRepo {
	return jobs.NewEnrichmentRepo(db, baseLog)
}

func NewVersionRepo(db *gorm.DB, baseLog *logger.Logger) VersionRepo {
	return jobs.NewVersionRepo(db, baseLog)
}

func NewParameterRepo(db *gorm.DB, baseLog *logger.Logger) ParameterRepo {
	return settings.NewParameterRepo(db, baseLog)
}
