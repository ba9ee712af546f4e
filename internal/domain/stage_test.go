package domain

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestParseStage(t *testing.T) {
	for _, raw := range []string{"transcription", "AI-Enrichment", " ai-evaluation ", "translation"} {
		if _, err := ParseStage(raw); err != nil {
			t.Fatalf("ParseStage(%q): %v", raw, err)
		}
	}
	_, err := ParseStage("ai_enrichment")
	if !IsCode(err, CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStageOfStatus(t *testing.T) {
	cases := map[string]Stage{
		StatusWaitingForTranscription: StageTranscription,
		StatusTranscribing:            StageTranscription,
		StatusEnriching:               StageAIEnrichment,
		StatusWaitingForAIEvaluation:  StageAIEvaluation,
		StatusTranslating:             StageTranslation,
	}
	for status, want := range cases {
		got, ok := StageOfStatus(status)
		if !ok || got != want {
			t.Fatalf("StageOfStatus(%s) = %s,%v want %s", status, got, ok, want)
		}
	}
	if _, ok := StageOfStatus(StatusSuccess); ok {
		t.Fatalf("terminal status must not map to a stage")
	}
}

func TestEligible(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := MustDescribe(StageAIEnrichment)

	waiting := &Enrichment{Status: StatusWaitingForEnrichment}
	if !d.Eligible(waiting, now, 10*time.Minute) {
		t.Fatalf("waiting job should be eligible")
	}

	fresh := now.Add(-5 * time.Minute)
	live := &Enrichment{Status: StatusEnriching, AIEnrichment: StageState{StartedAt: &fresh}}
	if d.Eligible(live, now, 10*time.Minute) {
		t.Fatalf("live claim should not be eligible")
	}

	old := now.Add(-11 * time.Minute)
	stalled := &Enrichment{Status: StatusEnriching, AIEnrichment: StageState{StartedAt: &old}}
	if !d.Eligible(stalled, now, 10*time.Minute) {
		t.Fatalf("stalled claim should be eligible")
	}

	other := &Enrichment{Status: StatusWaitingForTranscription}
	if d.Eligible(other, now, 10*time.Minute) {
		t.Fatalf("job waiting for another stage should not be eligible")
	}

	for _, status := range []string{StatusSuccess, StatusFailure} {
		for _, stage := range Stages() {
			e := &Enrichment{Status: status}
			e.State(stage).StartedAt = &old
			if MustDescribe(stage).Eligible(e, now, time.Minute) {
				t.Fatalf("%s job eligible for %s", status, stage)
			}
		}
	}
}

func TestMatchesFilter(t *testing.T) {
	d := MustDescribe(StageAIEnrichment)
	pinned := &Enrichment{AIModel: strPtr("gpt"), Infrastructure: strPtr("gpu")}
	open := &Enrichment{}

	cases := []struct {
		name   string
		job    *Enrichment
		filter WorkerFilter
		want   bool
	}{
		{"unpinned worker sees open job", open, WorkerFilter{}, true},
		{"unpinned worker skips pinned job", pinned, WorkerFilter{}, false},
		{"matching pin sees pinned job", pinned, WorkerFilter{Model: "gpt", Infrastructure: "gpu"}, true},
		{"partial pin skips pinned job", pinned, WorkerFilter{Model: "gpt"}, false},
		{"pinned worker skips open job", open, WorkerFilter{Model: "gpt", Infrastructure: "gpu"}, false},
		{"catch-all pinned worker sees open job", open, WorkerFilter{Model: "gpt", Infrastructure: "gpu", Unspecified: true}, true},
		{"mismatched pin", pinned, WorkerFilter{Model: "llama", Infrastructure: "gpu", Unspecified: true}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := d.MatchesFilter(tc.job, tc.filter); got != tc.want {
				t.Fatalf("MatchesFilter = %v want %v", got, tc.want)
			}
		})
	}

	if !MustDescribe(StageTranslation).MatchesFilter(pinned, WorkerFilter{}) {
		t.Fatalf("translation has no routing requirements")
	}
}

func TestNextStatus(t *testing.T) {
	requested := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ended := requested.Add(time.Hour)
	before := requested.Add(-time.Hour)
	longBefore := requested.Add(-2 * time.Hour)

	cases := []struct {
		name      string
		e         Enrichment
		completed Stage
		want      string
	}{
		{
			name:      "transcription always moves to enrichment",
			e:         Enrichment{AIEvaluationRequested: true},
			completed: StageTranscription,
			want:      StatusWaitingForEnrichment,
		},
		{
			name:      "enrichment with nothing requested succeeds",
			e:         Enrichment{AIEnrichment: StageState{EndedAt: &ended}},
			completed: StageAIEnrichment,
			want:      StatusSuccess,
		},
		{
			name:      "enrichment with evaluation requested",
			e:         Enrichment{AIEvaluationRequested: true, TranslateTo: strPtr("fr")},
			completed: StageAIEnrichment,
			want:      StatusWaitingForAIEvaluation,
		},
		{
			name:      "enrichment with translation requested",
			e:         Enrichment{TranslateTo: strPtr("fr")},
			completed: StageAIEnrichment,
			want:      StatusWaitingForTranslation,
		},
		{
			name:      "evaluation then translation",
			e:         Enrichment{AIEvaluationRequested: true, TranslateTo: strPtr("fr"), AIEvaluation: StageState{EndedAt: &ended}},
			completed: StageAIEvaluation,
			want:      StatusWaitingForTranslation,
		},
		{
			name:      "translation then pending evaluation",
			e:         Enrichment{AIEvaluationRequested: true, TranslateTo: strPtr("fr"), AIEnrichment: StageState{EndedAt: &requested}, AIEvaluation: StageState{EndedAt: &before}, Translation: StageState{EndedAt: &ended}},
			completed: StageTranslation,
			want:      StatusWaitingForAIEvaluation,
		},
		{
			name:      "re-translation keeps an earlier evaluation",
			e:         Enrichment{AIEvaluationRequested: true, TranslateTo: strPtr("fr"), AIEnrichment: StageState{EndedAt: &longBefore}, AIEvaluation: StageState{EndedAt: &before}, Translation: StageState{EndedAt: &ended}},
			completed: StageTranslation,
			want:      StatusSuccess,
		},
		{
			name:      "translation after evaluation succeeds",
			e:         Enrichment{AIEvaluationRequested: true, TranslateTo: strPtr("fr"), AIEvaluation: StageState{EndedAt: &ended}, Translation: StageState{EndedAt: &ended}},
			completed: StageTranslation,
			want:      StatusSuccess,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := tc.e
			e.LatestEnrichmentRequestedAt = requested
			if got := e.NextStatus(tc.completed); got != tc.want {
				t.Fatalf("NextStatus = %s want %s", got, tc.want)
			}
		})
	}
}
