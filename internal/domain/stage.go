package domain

import (
	"fmt"
	"strings"
	"time"
)

type Stage string

const (
	StageTranscription Stage = "transcription"
	StageAIEnrichment  Stage = "ai-enrichment"
	StageAIEvaluation  Stage = "ai-evaluation"
	StageTranslation   Stage = "translation"
)

// WorkerFilter carries the routing constraints a polling worker declares.
// Unspecified marks the worker as a catch-all for jobs with no requirement.
type WorkerFilter struct {
	Model          string
	Infrastructure string
	Evaluator      string
	Unspecified    bool
}

// Requirement binds one routing column on the enrichment to the worker
// filter value it must equal.
type Requirement struct {
	Column string
	Want   func(f WorkerFilter) string
	Have   func(e *Enrichment) *string
}

// StageDescriptor is the per-stage table driving eligibility, ordering,
// authorization and state access.
type StageDescriptor struct {
	Stage        Stage
	Waiting      string
	InProgress   string
	Prefix       string
	OrderColumn  string
	Capability   string
	Requirements []Requirement
}

func (d StageDescriptor) Column(field string) string {
	return d.Prefix + "_" + field
}

func (d StageDescriptor) ParamMaxRetries() string {
	return d.Prefix + "_max_retries"
}

func (d StageDescriptor) ParamTimeoutMinutes() string {
	return d.Prefix + "_timeout_minutes"
}

var stageOrder = []Stage{StageTranscription, StageAIEnrichment, StageAIEvaluation, StageTranslation}

var stageTable = map[Stage]StageDescriptor{
	StageTranscription: {
		Stage:       StageTranscription,
		Waiting:     StatusWaitingForTranscription,
		InProgress:  StatusTranscribing,
		Prefix:      "transcription",
		OrderColumn: "latest_enrichment_requested_at",
		Capability:  "jobs:transcription",
	},
	StageAIEnrichment: {
		Stage:       StageAIEnrichment,
		Waiting:     StatusWaitingForEnrichment,
		InProgress:  StatusEnriching,
		Prefix:      "ai_enrichment",
		OrderColumn: "latest_enrichment_requested_at",
		Capability:  "jobs:ai-enrichment",
		Requirements: []Requirement{
			{
				Column: "ai_model",
				Want:   func(f WorkerFilter) string { return f.Model },
				Have:   func(e *Enrichment) *string { return e.AIModel },
			},
			{
				Column: "infrastructure",
				Want:   func(f WorkerFilter) string { return f.Infrastructure },
				Have:   func(e *Enrichment) *string { return e.Infrastructure },
			},
		},
	},
	StageAIEvaluation: {
		Stage:       StageAIEvaluation,
		Waiting:     StatusWaitingForAIEvaluation,
		InProgress:  StatusAIEvaluating,
		Prefix:      "ai_evaluation",
		OrderColumn: "waiting_since",
		Capability:  "jobs:ai-evaluation",
		Requirements: []Requirement{
			{
				Column: "ai_evaluator",
				Want:   func(f WorkerFilter) string { return f.Evaluator },
				Have:   func(e *Enrichment) *string { return e.AIEvaluator },
			},
		},
	},
	StageTranslation: {
		Stage:       StageTranslation,
		Waiting:     StatusWaitingForTranslation,
		InProgress:  StatusTranslating,
		Prefix:      "translation",
		OrderColumn: "waiting_since",
		Capability:  "jobs:translation",
	},
}

// Stages returns the stages in pipeline order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

func ParseStage(raw string) (Stage, error) {
	s := Stage(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := stageTable[s]; !ok {
		return "", NewError(CodeValidation, "stage.parse", fmt.Sprintf("unknown stage %q", raw), nil)
	}
	return s, nil
}

func Describe(s Stage) (StageDescriptor, bool) {
	d, ok := stageTable[s]
	return d, ok
}

// MustDescribe is for stages already validated by ParseStage.
func MustDescribe(s Stage) StageDescriptor {
	d, ok := stageTable[s]
	if !ok {
		panic(fmt.Sprintf("domain: undescribed stage %q", s))
	}
	return d
}

// StageOfStatus maps a waiting or in-progress status back to its stage.
func StageOfStatus(status string) (Stage, bool) {
	for _, s := range stageOrder {
		d := stageTable[s]
		if d.Waiting == status || d.InProgress == status {
			return s, true
		}
	}
	return "", false
}

// RequirementMatches reports whether a job requirement is visible to a worker
// that wants the given value. Pinned jobs only match equal pins; unpinned jobs
// match workers without a pin or catch-all workers.
func RequirementMatches(have *string, want string, unspecified bool) bool {
	want = strings.TrimSpace(want)
	if have == nil || strings.TrimSpace(*have) == "" {
		return want == "" || unspecified
	}
	return want != "" && strings.TrimSpace(*have) == want
}

// MatchesFilter applies every routing requirement of the stage.
func (d StageDescriptor) MatchesFilter(e *Enrichment, f WorkerFilter) bool {
	if e == nil {
		return false
	}
	for _, r := range d.Requirements {
		if !RequirementMatches(r.Have(e), r.Want(f), f.Unspecified) {
			return false
		}
	}
	return true
}

// Eligible reports whether a job can be claimed for the stage at now: it is
// waiting, or in progress and its claim is older than timeout.
func (d StageDescriptor) Eligible(e *Enrichment, now time.Time, timeout time.Duration) bool {
	if e == nil {
		return false
	}
	switch e.Status {
	case d.Waiting:
		return true
	case d.InProgress:
		st := e.State(d.Stage)
		if st == nil || st.StartedAt == nil {
			return true
		}
		return st.StartedAt.Before(now.Add(-timeout))
	default:
		return false
	}
}
