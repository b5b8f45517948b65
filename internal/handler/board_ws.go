package handler

import (
	"errors"
	"log"

	"github.com/gofiber/contrib/websocket"

	"taskboard-backend/internal/relay"
)

// BoardWSHandler binds one WebSocket connection to the relay hub.
type BoardWSHandler struct {
	hub *relay.Hub
}

func NewBoardWSHandler(hub *relay.Hub) *BoardWSHandler {
	return &BoardWSHandler{hub: hub}
}

// HandleWebSocket runs the read loop for one channel. The user identity was
// extracted from the handshake token by the upgrade middleware; an empty id
// means an anonymous connection with no presence tracking.
func (h *BoardWSHandler) HandleWebSocket(c *websocket.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[BoardWS] Recovered from panic: %v", r)
		}
	}()

	userID, _ := c.Locals("userId").(string)

	connID := h.hub.Register(c, userID)

	// Cleanup runs exactly once per connection; Unregister tolerates
	// duplicate closes anyway.
	defer func() {
		h.hub.Unregister(connID)
		c.Close()
	}()

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			break
		}

		env, err := relay.Inbound(msgBytes)
		if err != nil {
			// A malformed frame from one peer must not take the relay
			// down for others.
			if errors.Is(err, relay.ErrUnknownKind) || errors.Is(err, relay.ErrMissingPayload) {
				log.Printf("[BoardWS] Dropping bad frame: conn=%s, err=%v", connID, err)
			}
			continue
		}

		h.hub.Relay(connID, env)
	}
}
