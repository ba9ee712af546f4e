package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ObserveClaim("transcription", ClaimClaimed, time.Millisecond)
	m.IncCompletion("transcription", "OK", "ok")
	m.IncReconcilerFailure("retries")
	m.IncNotification(200)
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("WritePrometheus on nil: %v", err)
	}
}

func TestWritePrometheus(t *testing.T) {
	m := newMetrics()
	m.ObserveClaim("transcription", ClaimClaimed, 20*time.Millisecond)
	m.ObserveClaim("transcription", ClaimEmpty, time.Millisecond)
	m.IncNotification(-2)

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`enr_claims_total{stage="transcription",result="claimed"} 1`,
		`enr_claims_total{stage="transcription",result="empty"} 1`,
		`enr_notifications_total{code="-2"} 1`,
		`enr_claim_duration_seconds_bucket{stage="transcription",le="+Inf"} 2`,
		"# TYPE enr_redis_up gauge",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"a", "b"}, []string{`x"y`, ""})
	if got != `{a="x\"y",b="unknown"}` {
		t.Fatalf("labelString: %s", got)
	}
	if got := withLe("", "0.5"); got != `{le="0.5"}` {
		t.Fatalf("withLe: %s", got)
	}
}
