package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/flashtalk/flashtalk/config"
	"github.com/flashtalk/flashtalk/services/logging"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	TopicAuth = "flashtalk.auth"
	TopicChat = "flashtalk.chat"
)

type Event struct {
	Kind      string    `json:"kind"`
	UserID    uuid.UUID `json:"userId"`
	SessionID string    `json:"sessionId,omitempty"`
	ChatID    uuid.UUID `json:"chatId,omitempty"`
	At        time.Time `json:"at"`
}

// Service publishes domain events to Kafka. When events are disabled
// the service is nil-safe and every publish is a no-op, so callers
// never need to guard.
type Service struct {
	writer  *kafka.Writer
	timeout time.Duration
	logger  *logging.Service
}

func NewService(cfg *config.Config, logger *logging.Service) *Service {
	if !cfg.Events.Enabled {
		return nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Events.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
	}
	return &Service{
		writer:  writer,
		timeout: cfg.Events.Timeout,
		logger:  logger,
	}
}

// Publish is fire and forget: broker failures are logged, never
// surfaced to the request path.
func (s *Service) Publish(ctx context.Context, topic string, event Event) {
	if s == nil || s.writer == nil {
		return
	}

	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to marshal event", zap.String("kind", event.Kind), zap.Error(err))
		}
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(event.UserID.String()),
		Value: payload,
	})
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("failed to publish event",
				zap.String("topic", topic),
				zap.String("kind", event.Kind),
				zap.Error(err))
		}
	}
}

func (s *Service) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
