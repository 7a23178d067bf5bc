package notification

import (
	"github.com/gofiber/contrib/websocket"
)

// Serve registers an upgraded connection and keeps it until the peer goes away.
// The optional task_id query parameter narrows the subscription to one task.
// Inbound frames are read only to detect the close. Serve returns only after the
// client's writer is done with conn.
func (h *Hub) Serve(conn *websocket.Conn) {
	client := h.NewClient(conn, conn.Query("task_id"))
	if !h.Register(client) {
		_ = conn.Close()
		return
	}
	defer func() {
		h.Unregister(client)
		<-client.Done()
	}()

	h.logger.Info("WebSocket connected", "client_id", client.ID, "task_id", client.TaskID)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("WebSocket error", "client_id", client.ID, "error", err)
			}
			break
		}
	}
	h.logger.Info("WebSocket disconnected", "client_id", client.ID)
}
