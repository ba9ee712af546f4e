package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StageState is the claim and accounting state of one stage of one
// enrichment. A live claim is WorkerID + TaskID while the stage is in
// progress and StartedAt is within the stage timeout.
type StageState struct {
	StartedAt *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	EndedAt   *time.Time `gorm:"column:ended_at" json:"ended_at,omitempty"`
	WorkerID  *uuid.UUID `gorm:"type:uuid;column:worker_id" json:"worker_id,omitempty"`
	TaskID    string     `gorm:"column:task_id;not null;default:''" json:"-"`
	Retries   int        `gorm:"column:retries;not null;default:0" json:"retries"`
}

type Enrichment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null;index" json:"created_by"`
	Status    string    `gorm:"column:status;not null;index" json:"status"`
	Priority  int       `gorm:"column:priority;not null;default:100;index" json:"priority"`
	MediaKey  string    `gorm:"column:media_key;not null" json:"media_key"`
	MediaType string    `gorm:"column:media_type" json:"media_type,omitempty"`
	Language  string    `gorm:"column:language" json:"language,omitempty"`

	Disciplines datatypes.JSONSlice[string] `gorm:"column:disciplines" json:"disciplines"`
	MediaTypes  datatypes.JSONSlice[string] `gorm:"column:media_types" json:"media_types"`

	AIEvaluationRequested bool    `gorm:"column:ai_evaluation_requested;not null;default:false" json:"ai_evaluation_requested"`
	TranslateTo           *string `gorm:"column:translate_to" json:"translate_to,omitempty"`
	AIModel               *string `gorm:"column:ai_model;index" json:"ai_model,omitempty"`
	Infrastructure        *string `gorm:"column:infrastructure;index" json:"infrastructure,omitempty"`
	AIEvaluator           *string `gorm:"column:ai_evaluator;index" json:"ai_evaluator,omitempty"`

	Transcription StageState `gorm:"embedded;embeddedPrefix:transcription_" json:"transcription"`
	AIEnrichment  StageState `gorm:"embedded;embeddedPrefix:ai_enrichment_" json:"ai_enrichment"`
	AIEvaluation  StageState `gorm:"embedded;embeddedPrefix:ai_evaluation_" json:"ai_evaluation"`
	Translation   StageState `gorm:"embedded;embeddedPrefix:translation_" json:"translation"`

	LatestEnrichmentRequestedAt time.Time  `gorm:"column:latest_enrichment_requested_at;not null;index" json:"latest_enrichment_requested_at"`
	WaitingSince                *time.Time `gorm:"column:waiting_since;index" json:"waiting_since,omitempty"`

	FailureCause           *string    `gorm:"column:failure_cause" json:"failure_cause,omitempty"`
	NotificationWebhookURL string     `gorm:"column:notification_webhook_url" json:"notification_webhook_url,omitempty"`
	NotificationStatus     *int       `gorm:"column:notification_status" json:"notification_status,omitempty"`
	NotifiedAt             *time.Time `gorm:"column:notified_at" json:"notified_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Enrichment) TableName() string { return "enrichment" }

func (e *Enrichment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// State returns the mutable state of the given stage.
func (e *Enrichment) State(s Stage) *StageState {
	if e == nil {
		return nil
	}
	switch s {
	case StageTranscription:
		return &e.Transcription
	case StageAIEnrichment:
		return &e.AIEnrichment
	case StageAIEvaluation:
		return &e.AIEvaluation
	case StageTranslation:
		return &e.Translation
	default:
		return nil
	}
}

func (e *Enrichment) TranslationRequested() bool {
	return e != nil && e.TranslateTo != nil && *e.TranslateTo != ""
}

// endedForCurrentRequest reports whether the stage finished after the most
// recent enrichment request.
func (e *Enrichment) endedForCurrentRequest(s Stage) bool {
	st := e.State(s)
	if st == nil || st.EndedAt == nil {
		return false
	}
	return !st.EndedAt.Before(e.LatestEnrichmentRequestedAt)
}

// evaluationCurrent reports whether evaluation ended after the AI enrichment
// whose questions it scored. A translate-only request keeps it current.
func (e *Enrichment) evaluationCurrent() bool {
	ev := e.AIEvaluation.EndedAt
	if ev == nil {
		return false
	}
	en := e.AIEnrichment.EndedAt
	return en == nil || !ev.Before(*en)
}

// NextStatus computes the status after a successful completion of stage.
// Stages run in the order enrichment, evaluation, translation. Evaluation
// runs when requested and the current questions were never scored;
// translation runs when requested and not yet done for the current request.
// The completed stage's EndedAt must already be stamped.
func (e *Enrichment) NextStatus(completed Stage) string {
	if completed == StageTranscription {
		return StatusWaitingForEnrichment
	}
	if e.AIEvaluationRequested && !e.evaluationCurrent() {
		return StatusWaitingForAIEvaluation
	}
	if e.TranslationRequested() && !e.endedForCurrentRequest(StageTranslation) {
		return StatusWaitingForTranslation
	}
	return StatusSuccess
}
