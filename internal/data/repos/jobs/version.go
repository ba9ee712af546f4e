package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/platform/dbctx"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

// VersionRepo persists enrichment versions together with their questions
// and choices. Initial and last versions are derived from Seq on read.
type VersionRepo interface {
	Create(dbc dbctx.Context, v *types.EnrichmentVersion) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.EnrichmentVersion, error)
	Initial(dbc dbctx.Context, enrichmentID uuid.UUID) (*types.EnrichmentVersion, error)
	Latest(dbc dbctx.Context, enrichmentID uuid.UUID) (*types.EnrichmentVersion, error)
	LatestID(dbc dbctx.Context, enrichmentID uuid.UUID) (*uuid.UUID, error)
	NextSeq(dbc dbctx.Context, enrichmentID uuid.UUID) (int, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	ReplaceQuestions(dbc dbctx.Context, versionID uuid.UUID, questions []*types.MultipleChoiceQuestion) error
	SetEvaluation(dbc dbctx.Context, questionID uuid.UUID, evaluation datatypes.JSON) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type versionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVersionRepo(db *gorm.DB, baseLog *logger.Logger) VersionRepo {
	return &versionRepo{
		db:  db,
		log: baseLog.With("repo", "VersionRepo"),
	}
}

func (r *versionRepo) Create(dbc dbctx.Context, v *types.EnrichmentVersion) error {
	if v == nil {
		return nil
	}
	if err := dbc.DB(r.db).Create(v).Error; err != nil {
		return err
	}
	if len(v.Questions) == 0 {
		return nil
	}
	return r.insertQuestions(dbc, v.ID, v.Questions)
}

func (r *versionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.EnrichmentVersion, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc, dbc.DB(r.db).Where("id = ?", id))
}

func (r *versionRepo) Initial(dbc dbctx.Context, enrichmentID uuid.UUID) (*types.EnrichmentVersion, error) {
	if enrichmentID == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc, dbc.DB(r.db).Where("enrichment_id = ?", enrichmentID).Order("seq ASC"))
}

func (r *versionRepo) Latest(dbc dbctx.Context, enrichmentID uuid.UUID) (*types.EnrichmentVersion, error) {
	if enrichmentID == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc, dbc.DB(r.db).Where("enrichment_id = ?", enrichmentID).Order("seq DESC"))
}

func (r *versionRepo) LatestID(dbc dbctx.Context, enrichmentID uuid.UUID) (*uuid.UUID, error) {
	var ids []uuid.UUID
	if err := dbc.DB(r.db).
		Model(&types.EnrichmentVersion{}).
		Where("enrichment_id = ?", enrichmentID).
		Order("seq DESC").
		Limit(1).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return &ids[0], nil
}

func (r *versionRepo) NextSeq(dbc dbctx.Context, enrichmentID uuid.UUID) (int, error) {
	var maxSeq *int
	if err := dbc.DB(r.db).
		Model(&types.EnrichmentVersion{}).
		Where("enrichment_id = ?", enrichmentID).
		Select("MAX(seq)").
		Scan(&maxSeq).Error; err != nil {
		return 0, err
	}
	if maxSeq == nil {
		return 1, nil
	}
	return *maxSeq + 1, nil
}

func (r *versionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.DB(r.db).
		Model(&types.EnrichmentVersion{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *versionRepo) ReplaceQuestions(dbc dbctx.Context, versionID uuid.UUID, questions []*types.MultipleChoiceQuestion) error {
	if err := r.deleteQuestions(dbc, []uuid.UUID{versionID}); err != nil {
		return err
	}
	return r.insertQuestions(dbc, versionID, questions)
}

func (r *versionRepo) SetEvaluation(dbc dbctx.Context, questionID uuid.UUID, evaluation datatypes.JSON) error {
	return dbc.DB(r.db).
		Model(&types.MultipleChoiceQuestion{}).
		Where("id = ?", questionID).
		Updates(map[string]interface{}{
			"evaluation": evaluation,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *versionRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	if err := r.deleteQuestions(dbc, []uuid.UUID{id}); err != nil {
		return err
	}
	return dbc.DB(r.db).Where("id = ?", id).Delete(&types.EnrichmentVersion{}).Error
}

func (r *versionRepo) first(dbc dbctx.Context, q *gorm.DB) (*types.EnrichmentVersion, error) {
	var v types.EnrichmentVersion
	if err := q.Limit(1).Find(&v).Error; err != nil {
		return nil, err
	}
	if v.ID == uuid.Nil {
		return nil, nil
	}
	questions, err := r.loadQuestions(dbc, v.ID)
	if err != nil {
		return nil, err
	}
	v.Questions = questions
	return &v, nil
}

func (r *versionRepo) loadQuestions(dbc dbctx.Context, versionID uuid.UUID) ([]*types.MultipleChoiceQuestion, error) {
	var questions []*types.MultipleChoiceQuestion
	if err := dbc.DB(r.db).
		Where("version_id = ?", versionID).
		Order("position ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return questions, nil
	}
	ids := make([]uuid.UUID, 0, len(questions))
	byID := make(map[uuid.UUID]*types.MultipleChoiceQuestion, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
		byID[q.ID] = q
	}
	var choices []*types.Choice
	if err := dbc.DB(r.db).
		Where("question_id IN ?", ids).
		Order("position ASC").
		Find(&choices).Error; err != nil {
		return nil, err
	}
	for _, c := range choices {
		if q := byID[c.QuestionID]; q != nil {
			q.Choices = append(q.Choices, c)
		}
	}
	return questions, nil
}

func (r *versionRepo) insertQuestions(dbc dbctx.Context, versionID uuid.UUID, questions []*types.MultipleChoiceQuestion) error {
	for i, q := range questions {
		if q == nil {
			continue
		}
		q.VersionID = versionID
		q.Position = i
		if err := dbc.DB(r.db).Create(q).Error; err != nil {
			return err
		}
		for j, c := range q.Choices {
			c.QuestionID = q.ID
			c.Position = j
		}
		if len(q.Choices) > 0 {
			if err := dbc.DB(r.db).Create(&q.Choices).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *versionRepo) deleteQuestions(dbc dbctx.Context, versionIDs []uuid.UUID) error {
	var questionIDs []uuid.UUID
	if err := dbc.DB(r.db).
		Model(&types.MultipleChoiceQuestion{}).
		Where("version_id IN ?", versionIDs).
		Pluck("id", &questionIDs).Error; err != nil {
		return err
	}
	if len(questionIDs) == 0 {
		return nil
	}
	if err := dbc.DB(r.db).Where("question_id IN ?", questionIDs).Delete(&types.Choice{}).Error; err != nil {
		return err
	}
	return dbc.DB(r.db).Where("id IN ?", questionIDs).Delete(&types.MultipleChoiceQuestion{}).Error
}
