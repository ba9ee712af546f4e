package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

// Publisher emits keyed JSON events to one topic.
type Publisher interface {
	Publish(ctx context.Context, key string, payload any) error
	Close() error
}

type Config struct {
	Brokers string
	Topic   string
}

type publisher struct {
	log    *logger.Logger
	writer *kafka.Writer
}

// NewPublisher returns nil when no brokers or topic are configured.
func NewPublisher(log *logger.Logger, cfg Config) Publisher {
	brokers := splitBrokers(cfg.Brokers)
	topic := strings.TrimSpace(cfg.Topic)
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
	}
	log.Info("Kafka publisher ready", "topic", topic, "brokers", len(brokers))
	return &publisher{log: log.With("service", "KafkaPublisher"), writer: w}
}

func (p *publisher) Publish(ctx context.Context, key string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: raw}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *publisher) Close() error {
	return p.writer.Close()
}

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
