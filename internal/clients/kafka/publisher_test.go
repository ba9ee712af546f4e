package kafka

import (
	"testing"

	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

func TestNewPublisherDisabledWithoutBrokers(t *testing.T) {
	if p := NewPublisher(logger.Nop(), Config{Topic: "outcomes"}); p != nil {
		t.Fatalf("expected nil publisher without brokers")
	}
	if p := NewPublisher(logger.Nop(), Config{Brokers: "a:9092"}); p != nil {
		t.Fatalf("expected nil publisher without topic")
	}
}

func TestSplitBrokers(t *testing.T) {
	got := splitBrokers(" a:9092, ,b:9092 ")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("splitBrokers: %v", got)
	}
}
