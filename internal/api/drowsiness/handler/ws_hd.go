package drowsinessHandler

import (
	"BlinkRise/internal/entity"
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
)

const stateWriteWait = 5 * time.Second

func (h *DrowsinessHandler) handleStateWebSocket(c *websocket.Conn) {
	h.log.Info("Drowsiness WebSocket client connected")
	defer h.log.Info("Drowsiness WebSocket client disconnected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Inbound messages are ignored; a read error means the peer is gone.
	go func() {
		defer cancel()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Warnf("Drowsiness WebSocket error: %v", err)
				}
				return
			}
		}
	}()

	err := h.drowsinessService.PushState(ctx, func(st entity.DrowsinessState) error {
		if err := c.SetWriteDeadline(time.Now().Add(stateWriteWait)); err != nil {
			return err
		}
		return c.WriteJSON(st)
	})
	if err != nil {
		h.log.Errorf("Drowsiness WebSocket push failed: %v", err)
	}
}
