package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/community-portal/pkg/logger"
)

// EventCancelledNotification asks an external delivery service to tell
// registrants that an event was cancelled
type EventCancelledNotification struct {
	EventID     string    `json:"event_id"`
	Title       string    `json:"title"`
	Reason      string    `json:"reason,omitempty"`
	UserIDs     []string  `json:"user_ids"`
	CancelledBy string    `json:"cancelled_by"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// Key partitions notifications by event
func (n EventCancelledNotification) Key() string {
	return n.EventID
}

// Notifier hands notifications to whatever delivers them
type Notifier interface {
	EventCancelled(ctx context.Context, n EventCancelledNotification) error
}

// Publisher is the subset of the Kafka producer the notifier needs
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}, headers map[string]string) error
}

// KafkaNotifier publishes notifications to a topic
type KafkaNotifier struct {
	publisher Publisher
	topic     string
}

// NewKafkaNotifier creates a notifier writing to topic
func NewKafkaNotifier(publisher Publisher, topic string) *KafkaNotifier {
	return &KafkaNotifier{publisher: publisher, topic: topic}
}

// EventCancelled publishes n
func (k *KafkaNotifier) EventCancelled(ctx context.Context, n EventCancelledNotification) error {
	headers := map[string]string{"type": "event.cancelled"}
	if err := k.publisher.Publish(ctx, k.topic, n, headers); err != nil {
		return fmt.Errorf("publish event cancelled %s: %w", n.EventID, err)
	}
	return nil
}

// LogNotifier only logs notifications. Used when Kafka is disabled.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(l *logger.Logger) *LogNotifier {
	if l == nil {
		l = logger.NewNop()
	}
	return &LogNotifier{log: l.Named("notifier")}
}

// EventCancelled logs n
func (l *LogNotifier) EventCancelled(ctx context.Context, n EventCancelledNotification) error {
	l.log.InfoContext(ctx, "event cancelled notification",
		zap.String("event_id", n.EventID),
		zap.Int("recipients", len(n.UserIDs)),
		zap.String("reason", n.Reason),
	)
	return nil
}
