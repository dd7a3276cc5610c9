package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"unimarket/internal/domain/service"
	"unimarket/pkg/logger"
)

// NatsNotifier publishes notification events to NATS for downstream
// delivery workers (push, email). Publish is async and never blocks the
// transactional path; a failed publish is logged and dropped.
type NatsNotifier struct {
	conn *nats.Conn
}

func NewNatsNotifier(url string) (*NatsNotifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("unimarket-notifier"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NatsNotifier{conn: conn}, nil
}

func (n *NatsNotifier) Emit(ctx context.Context, event service.NotificationEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal notification event: %v", err)
		return
	}

	subject := fmt.Sprintf("notifications.%s", event.RecipientID)
	if err := n.conn.Publish(subject, payload); err != nil {
		logger.Warn("Failed to publish notification %s to %s: %v", event.Type, subject, err)
	}
}

func (n *NatsNotifier) Close() {
	n.conn.Drain()
}
