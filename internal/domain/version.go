package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EnrichmentVersion is one produced rendition of an enrichment. The initial
// version is the one with the lowest Seq; the last version the highest.
type EnrichmentVersion struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EnrichmentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_version_enrichment_seq" json:"enrichment_id"`
	Seq          int       `gorm:"column:seq;not null;uniqueIndex:idx_version_enrichment_seq" json:"seq"`
	Language     string    `gorm:"column:language" json:"language,omitempty"`

	Transcript           *string  `gorm:"column:transcript" json:"transcript,omitempty"`
	MediaDurationSeconds *float64 `gorm:"column:media_duration_seconds" json:"media_duration_seconds,omitempty"`

	Title       *string                     `gorm:"column:title" json:"title,omitempty"`
	Description *string                     `gorm:"column:description" json:"description,omitempty"`
	Topics      datatypes.JSONSlice[string] `gorm:"column:topics" json:"topics,omitempty"`

	TranscriptionEndedAt *time.Time `gorm:"column:transcription_ended_at" json:"transcription_ended_at,omitempty"`
	AIEnrichmentEndedAt  *time.Time `gorm:"column:ai_enrichment_ended_at" json:"ai_enrichment_ended_at,omitempty"`
	AIEvaluationEndedAt  *time.Time `gorm:"column:ai_evaluation_ended_at" json:"ai_evaluation_ended_at,omitempty"`
	TranslationEndedAt   *time.Time `gorm:"column:translation_ended_at" json:"translation_ended_at,omitempty"`

	FailureCause *string `gorm:"column:failure_cause" json:"failure_cause,omitempty"`

	Questions []*MultipleChoiceQuestion `gorm:"-" json:"questions,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (EnrichmentVersion) TableName() string { return "enrichment_version" }

func (v *EnrichmentVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// MirrorStageEnd copies a stage end timestamp onto the version.
func (v *EnrichmentVersion) MirrorStageEnd(s Stage, at time.Time) {
	t := at
	switch s {
	case StageTranscription:
		v.TranscriptionEndedAt = &t
	case StageAIEnrichment:
		v.AIEnrichmentEndedAt = &t
	case StageAIEvaluation:
		v.AIEvaluationEndedAt = &t
	case StageTranslation:
		v.TranslationEndedAt = &t
	}
}

type MultipleChoiceQuestion struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	VersionID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"version_id"`
	Position   int            `gorm:"column:position;not null" json:"position"`
	Text       string         `gorm:"column:text;not null" json:"text"`
	Evaluation datatypes.JSON `gorm:"column:evaluation" json:"evaluation,omitempty"`
	Choices    []*Choice      `gorm:"-" json:"choices"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
}

func (MultipleChoiceQuestion) TableName() string { return "multiple_choice_question" }

func (q *MultipleChoiceQuestion) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

type Choice struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	QuestionID uuid.UUID `gorm:"type:uuid;not null;index" json:"question_id"`
	Position   int       `gorm:"column:position;not null" json:"position"`
	Text       string    `gorm:"column:text;not null" json:"text"`
	Correct    bool      `gorm:"column:correct;not null;default:false" json:"correct"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (Choice) TableName() string { return "choice" }

func (c *Choice) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
