package domain

import "strings"

// Enrichment statuses. Each stage owns a waiting and an in-progress status;
// uploading_media precedes the first stage and success/failure are terminal.
const (
	StatusUploadingMedia          = "uploading_media"
	StatusWaitingForTranscription = "waiting_for_transcription"
	StatusTranscribing            = "transcribing"
	StatusWaitingForEnrichment    = "waiting_for_enrichment"
	StatusEnriching               = "enriching"
	StatusWaitingForAIEvaluation  = "waiting_for_ai_evaluation"
	StatusAIEvaluating            = "ai_evaluating"
	StatusWaitingForTranslation   = "waiting_for_translation"
	StatusTranslating             = "translating"
	StatusSuccess                 = "success"
	StatusFailure                 = "failure"
)

const (
	OutcomeOK = "OK"
	OutcomeKO = "KO"
)

// AllStatuses lists every status in pipeline order.
func AllStatuses() []string {
	return []string{
		StatusUploadingMedia,
		StatusWaitingForTranscription,
		StatusTranscribing,
		StatusWaitingForEnrichment,
		StatusEnriching,
		StatusWaitingForAIEvaluation,
		StatusAIEvaluating,
		StatusWaitingForTranslation,
		StatusTranslating,
		StatusSuccess,
		StatusFailure,
	}
}

func IsTerminal(status string) bool {
	switch strings.TrimSpace(status) {
	case StatusSuccess, StatusFailure:
		return true
	default:
		return false
	}
}

// NonTerminalStatuses is every status the reconciler may still fail.
func NonTerminalStatuses() []string {
	out := make([]string, 0, len(AllStatuses()))
	for _, s := range AllStatuses() {
		if !IsTerminal(s) {
			out = append(out, s)
		}
	}
	return out
}
