package logger

import "testing"

func TestSanitizeKVs(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"task_id", "abc",
		"access_token", "xyz",
		"client_id", "worker-1",
		"stage", "translation",
		"dangling",
	})
	if len(out) != 9 {
		t.Fatalf("unexpected length: %d", len(out))
	}
	if out[1] != "[REDACTED]" || out[3] != "[REDACTED]" {
		t.Fatalf("expected task and access tokens redacted, got %v", out)
	}
	if s, _ := out[5].(string); len(s) < 5 || s[:5] != "hash:" {
		t.Fatalf("expected client_id hashed, got %v", out[5])
	}
	if out[7] != "translation" {
		t.Fatalf("plain value changed: %v", out[7])
	}
	if out[8] != "dangling" {
		t.Fatalf("dangling key dropped: %v", out)
	}
}
