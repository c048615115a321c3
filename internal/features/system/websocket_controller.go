package system

import (
	"go-regula/internal/features/systemlog"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

const feedBuffer = 64

// WebSocketController streams system log events to admins as they are written.
type WebSocketController struct {
	Hub    *systemlog.Hub
	Logger *zap.Logger
}

func NewWebSocketController(hub *systemlog.Hub, logger *zap.Logger) *WebSocketController {
	return &WebSocketController{Hub: hub, Logger: logger}
}

// HandleWebSocket sends each event as a JSON text frame. The optional
// workflowId query parameter narrows the feed to one workflow.
func (h *WebSocketController) HandleWebSocket(c *websocket.Conn) {
	workflowID := c.Query("workflowId")
	feed, cancel := h.Hub.Subscribe(feedBuffer)
	defer cancel()

	// the client sends nothing, reading only detects the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case e, ok := <-feed:
			if !ok {
				return
			}
			if workflowID != "" && (e.WorkflowID == nil || *e.WorkflowID != workflowID) {
				continue
			}
			if err := c.WriteJSON(e); err != nil {
				h.Logger.Debug("Event feed write failed", zap.Error(err))
				return
			}
		}
	}
}
