package settings

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/platform/dbctx"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

type ParameterRepo interface {
	List(dbc dbctx.Context) ([]*types.Parameter, error)
	Get(dbc dbctx.Context, name string) (*types.Parameter, error)
	InsertMissing(dbc dbctx.Context, params []*types.Parameter) (int64, error)
	Upsert(dbc dbctx.Context, p *types.Parameter) error
}

type parameterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewParameterRepo(db *gorm.DB, baseLog *logger.Logger) ParameterRepo {
	return &parameterRepo{db: db, log: baseLog.With("repo", "ParameterRepo")}
}

func (r *parameterRepo) List(dbc dbctx.Context) ([]*types.Parameter, error) {
	var out []*types.Parameter
	if err := dbc.DB(r.db).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *parameterRepo) Get(dbc dbctx.Context, name string) (*types.Parameter, error) {
	var p types.Parameter
	if err := dbc.DB(r.db).Where("name = ?", name).Limit(1).Find(&p).Error; err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, nil
	}
	return &p, nil
}

// InsertMissing adds parameters that do not exist yet and leaves existing
// values untouched. It returns the number of rows inserted.
func (r *parameterRepo) InsertMissing(dbc dbctx.Context, params []*types.Parameter) (int64, error) {
	if len(params) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&params)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *parameterRepo) Upsert(dbc dbctx.Context, p *types.Parameter) error {
	if p == nil {
		return nil
	}
	p.UpdatedAt = time.Now().UTC()
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "description", "updated_at"}),
		}).
		Create(p).Error
}
