package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/platform/dbctx"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

type WorkerRepo interface {
	Create(dbc dbctx.Context, w *types.Worker) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Worker, error)
	GetByClientID(dbc dbctx.Context, clientID string) (*types.Worker, error)
	StampOutcome(dbc dbctx.Context, id uuid.UUID, success bool, at time.Time) error
}

type workerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkerRepo(db *gorm.DB, baseLog *logger.Logger) WorkerRepo {
	return &workerRepo{db: db, log: baseLog.With("repo", "WorkerRepo")}
}

func (r *workerRepo) Create(dbc dbctx.Context, w *types.Worker) error {
	if w == nil {
		return nil
	}
	return dbc.DB(r.db).Create(w).Error
}

func (r *workerRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Worker, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var w types.Worker
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&w).Error; err != nil {
		return nil, err
	}
	if w.ID == uuid.Nil {
		return nil, nil
	}
	return &w, nil
}

func (r *workerRepo) GetByClientID(dbc dbctx.Context, clientID string) (*types.Worker, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, nil
	}
	var w types.Worker
	if err := dbc.DB(r.db).Where("client_id = ?", clientID).Limit(1).Find(&w).Error; err != nil {
		return nil, err
	}
	if w.ID == uuid.Nil {
		return nil, nil
	}
	return &w, nil
}

// StampOutcome records the time of the worker's latest successful or
// failed completion.
func (r *workerRepo) StampOutcome(dbc dbctx.Context, id uuid.UUID, success bool, at time.Time) error {
	if id == uuid.Nil {
		return nil
	}
	col := "last_failure_at"
	if success {
		col = "last_success_at"
	}
	return dbc.DB(r.db).
		Model(&types.Worker{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			col:          at.UTC(),
			"updated_at": time.Now().UTC(),
		}).Error
}
