package jobs

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/enrichment-backend/internal/data/aggregates"
	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/platform/dbctx"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

type EnrichmentRepo interface {
	Create(dbc dbctx.Context, e *types.Enrichment) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Enrichment, error)
	GetForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Enrichment, error)
	FindOldestEligible(dbc dbctx.Context, stage types.Stage, filter types.WorkerFilter, stalledBefore time.Time) (*types.Enrichment, error)
	UpdateGuarded(dbc dbctx.Context, id uuid.UUID, guard aggregates.Guard, updates map[string]interface{}) (bool, error)
	ListRetryExhausted(dbc dbctx.Context, stage types.Stage, maxRetries int, limit int) ([]*types.Enrichment, error)
	ListStuckIntake(dbc dbctx.Context, createdBefore time.Time, limit int) ([]*types.Enrichment, error)
	CountByStatus(dbc dbctx.Context) (map[string]int64, error)
	RecordNotification(dbc dbctx.Context, id uuid.UUID, status int, notifiedAt *time.Time) error
}

type enrichmentRepo struct {
	db  *gorm.DB
	cas aggregates.CASGuard
	log *logger.Logger
}

func NewEnrichmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrichmentRepo {
	return &enrichmentRepo{
		db:  db,
		cas: aggregates.NewCASGuard(db),
		log: baseLog.With("repo", "EnrichmentRepo"),
	}
}

func (r *enrichmentRepo) Create(dbc dbctx.Context, e *types.Enrichment) error {
	if e == nil {
		return nil
	}
	return dbc.DB(r.db).Create(e).Error
}

func (r *enrichmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Enrichment, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var e types.Enrichment
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&e).Error; err != nil {
		return nil, err
	}
	if e.ID == uuid.Nil {
		return nil, nil
	}
	return &e, nil
}

// GetForUpdate re-reads the row under a row lock. It must run inside a
// transaction; drivers without row locks ignore the clause.
func (r *enrichmentRepo) GetForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Enrichment, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var e types.Enrichment
	err := dbc.DB(r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&e).Error
	if err != nil {
		return nil, err
	}
	if e.ID == uuid.Nil {
		return nil, nil
	}
	return &e, nil
}

// FindOldestEligible returns the best candidate for the stage without
// mutating anything: waiting jobs, or in-progress jobs whose claim started
// before stalledBefore, filtered by the worker's routing constraints and
// ordered by priority then the stage's FIFO timestamp.
func (r *enrichmentRepo) FindOldestEligible(dbc dbctx.Context, stage types.Stage, filter types.WorkerFilter, stalledBefore time.Time) (*types.Enrichment, error) {
	d, ok := types.Describe(stage)
	if !ok {
		return nil, types.NewError(types.CodeValidation, "enrichment.find_oldest", "unknown stage", nil)
	}
	started := d.Column("started_at")
	q := dbc.DB(r.db).
		Model(&types.Enrichment{}).
		Where(`
      (
        status = ?
        OR (
          status = ?
          AND (`+started+` IS NULL OR `+started+` < ?)
        )
      )
    `, d.Waiting, d.InProgress, stalledBefore)
	for _, req := range d.Requirements {
		cond, args := requirementClause(req.Column, req.Want(filter), filter.Unspecified)
		q = q.Where(cond, args...)
	}
	var e types.Enrichment
	err := q.
		Order("priority ASC").
		Order(d.OrderColumn + " ASC").
		Order("id ASC").
		Limit(1).
		Find(&e).Error
	if err != nil {
		return nil, err
	}
	if e.ID == uuid.Nil {
		return nil, nil
	}
	return &e, nil
}

// requirementClause mirrors types.RequirementMatches in SQL.
func requirementClause(column, want string, unspecified bool) (string, []interface{}) {
	want = strings.TrimSpace(want)
	unset := "(" + column + " IS NULL OR " + column + " = '')"
	switch {
	case want == "":
		return unset, nil
	case unspecified:
		return "(" + column + " = ? OR " + unset + ")", []interface{}{want}
	default:
		return column + " = ?", []interface{}{want}
	}
}

func (r *enrichmentRepo) UpdateGuarded(dbc dbctx.Context, id uuid.UUID, guard aggregates.Guard, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.cas.Update(dbc, types.Enrichment{}.TableName(), id, guard, updates)
}

func (r *enrichmentRepo) ListRetryExhausted(dbc dbctx.Context, stage types.Stage, maxRetries int, limit int) ([]*types.Enrichment, error) {
	d, ok := types.Describe(stage)
	if !ok {
		return nil, types.NewError(types.CodeValidation, "enrichment.list_retry_exhausted", "unknown stage", nil)
	}
	var out []*types.Enrichment
	q := dbc.DB(r.db).
		Where("status IN ?", types.NonTerminalStatuses()).
		Where(d.Column("retries")+" >= ?", maxRetries).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *enrichmentRepo) ListStuckIntake(dbc dbctx.Context, createdBefore time.Time, limit int) ([]*types.Enrichment, error) {
	var out []*types.Enrichment
	q := dbc.DB(r.db).
		Where("status = ? AND created_at < ?", types.StatusUploadingMedia, createdBefore).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *enrichmentRepo) CountByStatus(dbc dbctx.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := dbc.DB(r.db).
		Model(&types.Enrichment{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *enrichmentRepo) RecordNotification(dbc dbctx.Context, id uuid.UUID, status int, notifiedAt *time.Time) error {
	if id == uuid.Nil {
		return nil
	}
	updates := map[string]interface{}{
		"notification_status": status,
		"updated_at":          time.Now().UTC(),
	}
	if notifiedAt != nil {
		updates["notified_at"] = notifiedAt.UTC()
	}
	return dbc.DB(r.db).
		Model(&types.Enrichment{}).
		Where("id = ?", id).
		Updates(updates).Error
}
