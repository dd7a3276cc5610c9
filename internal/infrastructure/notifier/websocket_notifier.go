package notifier

import (
	"context"
	"encoding/json"

	"unimarket/internal/domain/service"
	"unimarket/internal/infrastructure/websocket"
	"unimarket/pkg/logger"
)

// WebSocketNotifier pushes notification events to the recipient's live
// websocket session, if any. Delivery is best effort: an offline user
// simply misses the push.
type WebSocketNotifier struct {
	manager *websocket.Manager
}

func NewWebSocketNotifier(manager *websocket.Manager) *WebSocketNotifier {
	return &WebSocketNotifier{manager: manager}
}

func (n *WebSocketNotifier) Emit(ctx context.Context, event service.NotificationEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal notification event: %v", err)
		return
	}
	n.manager.SendToUser(event.RecipientID, payload)
}
