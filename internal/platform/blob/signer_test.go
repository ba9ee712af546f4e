package blob

import (
	"context"
	"testing"

	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

func TestStaticSigner(t *testing.T) {
	s := NewStaticSigner("http://media.local/bucket/")
	got, err := s.PresignGet(context.Background(), "/media/a b.mp4")
	if err != nil {
		t.Fatalf("PresignGet: %v", err)
	}
	if got != "http://media.local/bucket/media/a%20b.mp4" {
		t.Fatalf("unexpected url %s", got)
	}
	if _, err := s.PresignPut(context.Background(), " ", "video/mp4"); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	if _, err := New(context.Background(), logger.Nop(), Config{Provider: "ftp"}); err == nil {
		t.Fatalf("expected unsupported provider error")
	}
	if _, err := New(context.Background(), logger.Nop(), Config{Provider: ProviderMinIO}); err == nil {
		t.Fatalf("expected minio config error")
	}
}
