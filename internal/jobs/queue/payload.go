package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/jobs/params"
	"github.com/yungbote/enrichment-backend/internal/platform/dbctx"
)

// StagePayload carries the results a worker reports for a stage. Each
// stage reads only its own fields.
type StagePayload struct {
	// transcription, translation
	Language             string   `json:"language,omitempty"`
	Transcript           *string  `json:"transcript,omitempty"`
	MediaDurationSeconds *float64 `json:"mediaDurationSeconds,omitempty"`

	// ai-enrichment, translation
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Topics      []string        `json:"topics,omitempty"`
	Questions   []QuestionInput `json:"questions,omitempty"`

	// ai-evaluation
	Evaluations []EvaluationInput `json:"evaluations,omitempty"`
}

type QuestionInput struct {
	ID      *uuid.UUID    `json:"id,omitempty"`
	Text    string        `json:"text"`
	Choices []ChoiceInput `json:"choices"`
}

type ChoiceInput struct {
	ID      *uuid.UUID `json:"id,omitempty"`
	Text    string     `json:"text"`
	Correct bool       `json:"correct"`
}

type EvaluationInput struct {
	QuestionID uuid.UUID       `json:"questionId"`
	Evaluation json.RawMessage `json:"evaluation"`
}

type limits struct {
	maxText     int
	maxDuration float64
}

func limitsFrom(snap params.Snapshot) (limits, error) {
	maxText, err := snap.Int(params.MaxTextLength)
	if err != nil {
		return limits{}, err
	}
	maxDuration, err := snap.Float(params.MaxMediaDurationSeconds)
	if err != nil {
		return limits{}, err
	}
	return limits{maxText: maxText, maxDuration: maxDuration}, nil
}

func (l limits) text(causes []string, field string, v string) []string {
	if utf8.RuneCountInString(v) > l.maxText {
		causes = append(causes, fmt.Sprintf("%s exceeds %d characters", field, l.maxText))
	}
	return causes
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// validatePayload returns every reason the payload cannot be applied to
// the enrichment whose latest version is latest.
func validatePayload(stage types.Stage, e *types.Enrichment, latest *types.EnrichmentVersion, p *StagePayload, l limits) []string {
	if p == nil {
		p = &StagePayload{}
	}
	switch stage {
	case types.StageTranscription:
		return validateTranscription(p, l)
	case types.StageAIEnrichment:
		return validateEnrichment(latest, p, l)
	case types.StageAIEvaluation:
		return validateEvaluation(latest, p)
	case types.StageTranslation:
		return validateTranslation(e, latest, p, l)
	default:
		return []string{"unknown stage"}
	}
}

func validateTranscription(p *StagePayload, l limits) []string {
	var causes []string
	if blank(p.Transcript) {
		causes = append(causes, "transcript is required")
	} else {
		causes = l.text(causes, "transcript", *p.Transcript)
	}
	if d := p.MediaDurationSeconds; d != nil {
		switch {
		case *d < 0:
			causes = append(causes, "mediaDurationSeconds must not be negative")
		case *d > l.maxDuration:
			causes = append(causes, fmt.Sprintf("mediaDurationSeconds exceeds %g", l.maxDuration))
		}
	}
	return causes
}

func validateQuestions(causes []string, qs []QuestionInput, l limits) []string {
	for i, q := range qs {
		label := fmt.Sprintf("questions[%d]", i)
		if strings.TrimSpace(q.Text) == "" {
			causes = append(causes, label+": text is required")
		}
		causes = l.text(causes, label+".text", q.Text)
		if len(q.Choices) < 2 {
			causes = append(causes, label+": at least 2 choices are required")
		}
		correct := 0
		for j, c := range q.Choices {
			if strings.TrimSpace(c.Text) == "" {
				causes = append(causes, fmt.Sprintf("%s.choices[%d]: text is required", label, j))
			}
			causes = l.text(causes, fmt.Sprintf("%s.choices[%d].text", label, j), c.Text)
			if c.Correct {
				correct++
			}
		}
		if len(q.Choices) > 0 && correct == 0 {
			causes = append(causes, label+": at least one choice must be correct")
		}
	}
	return causes
}

func validateEnrichment(latest *types.EnrichmentVersion, p *StagePayload, l limits) []string {
	var causes []string
	if latest == nil {
		causes = append(causes, "enrichment has no transcribed version")
	}
	if blank(p.Title) {
		causes = append(causes, "title is required")
	} else {
		causes = l.text(causes, "title", *p.Title)
	}
	if p.Description != nil {
		causes = l.text(causes, "description", *p.Description)
	}
	for i, t := range p.Topics {
		if strings.TrimSpace(t) == "" {
			causes = append(causes, fmt.Sprintf("topics[%d]: must not be empty", i))
		}
	}
	return validateQuestions(causes, p.Questions, l)
}

func validateEvaluation(latest *types.EnrichmentVersion, p *StagePayload) []string {
	if latest == nil {
		return []string{"enrichment has no version to evaluate"}
	}
	var causes []string
	known := make(map[uuid.UUID]bool, len(latest.Questions))
	for _, q := range latest.Questions {
		known[q.ID] = false
	}
	for i, ev := range p.Evaluations {
		seen, ok := known[ev.QuestionID]
		switch {
		case !ok:
			causes = append(causes, fmt.Sprintf("evaluations[%d]: unknown question %s", i, ev.QuestionID))
		case seen:
			causes = append(causes, fmt.Sprintf("evaluations[%d]: duplicate question %s", i, ev.QuestionID))
		default:
			known[ev.QuestionID] = true
		}
		if len(ev.Evaluation) == 0 || !json.Valid(ev.Evaluation) {
			causes = append(causes, fmt.Sprintf("evaluations[%d]: evaluation must be valid JSON", i))
		}
	}
	for _, q := range latest.Questions {
		if !known[q.ID] {
			causes = append(causes, fmt.Sprintf("missing evaluation for question %s", q.ID))
		}
	}
	return causes
}

func validateTranslation(e *types.Enrichment, latest *types.EnrichmentVersion, p *StagePayload, l limits) []string {
	if latest == nil {
		return []string{"enrichment has no version to translate"}
	}
	var causes []string
	lang := strings.TrimSpace(p.Language)
	switch {
	case lang == "":
		causes = append(causes, "language is required")
	case e.TranslateTo != nil && !strings.EqualFold(lang, strings.TrimSpace(*e.TranslateTo)):
		causes = append(causes, fmt.Sprintf("language %q does not match requested %q", lang, *e.TranslateTo))
	}
	pairs := []struct {
		field string
		src   *string
		dst   *string
	}{
		{"transcript", latest.Transcript, p.Transcript},
		{"title", latest.Title, p.Title},
		{"description", latest.Description, p.Description},
	}
	for _, f := range pairs {
		if !blank(f.src) && blank(f.dst) {
			causes = append(causes, "translated "+f.field+" is required")
		}
		if f.dst != nil {
			causes = l.text(causes, f.field, *f.dst)
		}
	}
	if len(p.Topics) != len(latest.Topics) {
		causes = append(causes, fmt.Sprintf("expected %d translated topics, got %d", len(latest.Topics), len(p.Topics)))
	}

	byID := make(map[uuid.UUID]QuestionInput, len(p.Questions))
	for i, q := range p.Questions {
		if q.ID == nil {
			causes = append(causes, fmt.Sprintf("questions[%d]: id is required", i))
			continue
		}
		byID[*q.ID] = q
		causes = l.text(causes, fmt.Sprintf("questions[%d].text", i), q.Text)
	}
	if len(p.Questions) != len(latest.Questions) {
		causes = append(causes, fmt.Sprintf("expected %d translated questions, got %d", len(latest.Questions), len(p.Questions)))
	}
	for _, q := range latest.Questions {
		tq, ok := byID[q.ID]
		if !ok {
			causes = append(causes, fmt.Sprintf("missing translation for question %s", q.ID))
			continue
		}
		if strings.TrimSpace(tq.Text) == "" {
			causes = append(causes, fmt.Sprintf("question %s: translated text is required", q.ID))
		}
		choices := make(map[uuid.UUID]string, len(tq.Choices))
		for _, c := range tq.Choices {
			if c.ID != nil {
				choices[*c.ID] = c.Text
			}
		}
		if len(tq.Choices) != len(q.Choices) {
			causes = append(causes, fmt.Sprintf("question %s: expected %d translated choices, got %d", q.ID, len(q.Choices), len(tq.Choices)))
		}
		for _, c := range q.Choices {
			text, ok := choices[c.ID]
			if !ok || strings.TrimSpace(text) == "" {
				causes = append(causes, fmt.Sprintf("question %s: missing translation for choice %s", q.ID, c.ID))
			}
		}
	}
	return causes
}

// applyPayload writes a validated payload and returns the version it
// produced or mutated.
func (s *Service) applyPayload(dbc dbctx.Context, stage types.Stage, e *types.Enrichment, latest *types.EnrichmentVersion, p *StagePayload, now time.Time) (*types.EnrichmentVersion, error) {
	d := types.MustDescribe(stage)
	switch stage {
	case types.StageTranscription:
		return s.applyTranscription(dbc, e, latest, p, now)
	case types.StageAIEnrichment:
		updates := map[string]interface{}{
			"title":              p.Title,
			"description":        p.Description,
			"topics":             datatypes.JSONSlice[string](nonNil(p.Topics)),
			d.Column("ended_at"): now,
			"failure_cause":      nil,
		}
		if err := s.versions.UpdateFields(dbc, latest.ID, updates); err != nil {
			return nil, err
		}
		if err := s.versions.ReplaceQuestions(dbc, latest.ID, toQuestions(p.Questions)); err != nil {
			return nil, err
		}
		return latest, nil
	case types.StageAIEvaluation:
		for _, ev := range p.Evaluations {
			if err := s.versions.SetEvaluation(dbc, ev.QuestionID, datatypes.JSON(ev.Evaluation)); err != nil {
				return nil, err
			}
		}
		if err := s.versions.UpdateFields(dbc, latest.ID, map[string]interface{}{d.Column("ended_at"): now}); err != nil {
			return nil, err
		}
		return latest, nil
	case types.StageTranslation:
		return s.applyTranslation(dbc, latest, p, now)
	default:
		return nil, types.NewError(types.CodeInternal, "queue.apply", "unknown stage", nil)
	}
}

func (s *Service) applyTranscription(dbc dbctx.Context, e *types.Enrichment, latest *types.EnrichmentVersion, p *StagePayload, now time.Time) (*types.EnrichmentVersion, error) {
	lang := strings.TrimSpace(p.Language)
	if lang == "" {
		lang = e.Language
	}
	if latest != nil {
		err := s.versions.UpdateFields(dbc, latest.ID, map[string]interface{}{
			"transcript":             p.Transcript,
			"language":               lang,
			"media_duration_seconds": p.MediaDurationSeconds,
			"transcription_ended_at": now,
		})
		return latest, err
	}
	v := &types.EnrichmentVersion{
		EnrichmentID:         e.ID,
		Seq:                  1,
		Language:             lang,
		Transcript:           p.Transcript,
		MediaDurationSeconds: p.MediaDurationSeconds,
		Topics:               datatypes.JSONSlice[string]{},
	}
	v.MirrorStageEnd(types.StageTranscription, now)
	if err := s.versions.Create(dbc, v); err != nil {
		return nil, err
	}
	return v, nil
}

// applyTranslation creates the next version as a translated copy of
// latest. Correct flags and evaluations carry over by question and choice
// id.
func (s *Service) applyTranslation(dbc dbctx.Context, latest *types.EnrichmentVersion, p *StagePayload, now time.Time) (*types.EnrichmentVersion, error) {
	seq, err := s.versions.NextSeq(dbc, latest.EnrichmentID)
	if err != nil {
		return nil, err
	}
	v := &types.EnrichmentVersion{
		EnrichmentID:         latest.EnrichmentID,
		Seq:                  seq,
		Language:             strings.TrimSpace(p.Language),
		Transcript:           p.Transcript,
		MediaDurationSeconds: latest.MediaDurationSeconds,
		Title:                p.Title,
		Description:          p.Description,
		Topics:               datatypes.JSONSlice[string](nonNil(p.Topics)),
		TranscriptionEndedAt: latest.TranscriptionEndedAt,
		AIEnrichmentEndedAt:  latest.AIEnrichmentEndedAt,
		AIEvaluationEndedAt:  latest.AIEvaluationEndedAt,
	}
	v.MirrorStageEnd(types.StageTranslation, now)

	translated := make(map[uuid.UUID]QuestionInput, len(p.Questions))
	for _, q := range p.Questions {
		if q.ID != nil {
			translated[*q.ID] = q
		}
	}
	for _, q := range latest.Questions {
		tq := translated[q.ID]
		choiceText := make(map[uuid.UUID]string, len(tq.Choices))
		for _, c := range tq.Choices {
			if c.ID != nil {
				choiceText[*c.ID] = c.Text
			}
		}
		nq := &types.MultipleChoiceQuestion{Text: strings.TrimSpace(tq.Text), Evaluation: q.Evaluation}
		for _, c := range q.Choices {
			nq.Choices = append(nq.Choices, &types.Choice{Text: strings.TrimSpace(choiceText[c.ID]), Correct: c.Correct})
		}
		v.Questions = append(v.Questions, nq)
	}
	if err := s.versions.Create(dbc, v); err != nil {
		return nil, err
	}
	return v, nil
}

func toQuestions(in []QuestionInput) []*types.MultipleChoiceQuestion {
	out := make([]*types.MultipleChoiceQuestion, 0, len(in))
	for _, q := range in {
		mq := &types.MultipleChoiceQuestion{Text: strings.TrimSpace(q.Text)}
		for _, c := range q.Choices {
			mq.Choices = append(mq.Choices, &types.Choice{Text: strings.TrimSpace(c.Text), Correct: c.Correct})
		}
		out = append(out, mq)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
