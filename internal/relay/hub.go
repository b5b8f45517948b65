package relay

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"taskboard-backend/internal/presence"
)

// Conn is the write side of one client channel. *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
}

// client is one channel between a browser tab and the server. UserID is
// empty for anonymous connections, which receive events but are not tracked
// for presence.
type client struct {
	id      string
	userID  string
	conn    Conn
	writeMu sync.Mutex
}

func (c *client) send(data []byte) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		// Send-and-forget: a failing recipient must not affect others.
		log.Printf("[Hub] Send failed: conn=%s, err=%v", c.id, err)
	}
}

// Hub is the process-wide presence registry and event relay. State is
// volatile: a restart drops all presence knowledge until clients reconnect.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	mirror  *presence.Manager // optional Redis mirror, may be nil
}

// NewHub creates an empty registry. mirror may be nil to disable the Redis
// presence mirror.
func NewHub(mirror *presence.Manager) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		mirror:  mirror,
	}
}

// Register tracks a new connection and returns its server-assigned id.
// If userID is set, the distinct set of users online before this connection
// is sent to the new client only, and userOnline is broadcast to all other
// connections when this is the user's first live connection.
func (h *Hub) Register(conn Conn, userID string) string {
	c := &client{id: uuid.NewString(), userID: userID, conn: conn}

	h.mu.Lock()
	first := userID != "" && !h.userOnlineLocked(userID)
	online := h.onlineUsersLocked()
	peers := h.peersLocked(c.id)
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	log.Printf("[Hub] Connected: conn=%s, user=%q, total=%d", c.id, userID, total)

	if userID == "" {
		return c.id
	}

	if snapshot, err := Encode(KindOnlineUsers, OnlineUsersPayload{UserIDs: online}); err == nil {
		c.send(snapshot)
	}

	if first {
		if data, err := Encode(KindUserOnline, UserPayload{UserID: userID}); err == nil {
			for _, p := range peers {
				p.send(data)
			}
		}
		h.mirrorChange(userID, true)
	}

	return c.id
}

// Unregister removes a connection. Unknown ids are a no-op, so a duplicate
// close is harmless. When the user's last connection goes away, userOffline
// is broadcast to every remaining connection with no exclusion.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	c, ok := h.clients[connID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, connID)
	last := c.userID != "" && !h.userOnlineLocked(c.userID)
	peers := h.peersLocked(connID)
	total := len(h.clients)
	h.mu.Unlock()

	log.Printf("[Hub] Disconnected: conn=%s, user=%q, total=%d", connID, c.userID, total)

	if !last {
		return
	}

	if data, err := Encode(KindUserOffline, UserPayload{UserID: c.userID}); err == nil {
		for _, p := range peers {
			p.send(data)
		}
	}
	h.mirrorChange(c.userID, false)
}

// Relay fans an event out to every connection except the sender. Delivery is
// at-most-once with no acknowledgment; clients offline at broadcast time
// catch up from the store on their next read.
func (h *Hub) Relay(senderConnID string, env *Envelope) {
	data, err := Encode(env.Type, env.Payload)
	if err != nil {
		log.Printf("[Hub] Marshal failed: %v", err)
		return
	}

	h.mu.RLock()
	peers := h.peersLocked(senderConnID)
	h.mu.RUnlock()

	for _, p := range peers {
		p.send(data)
	}
}

// ConnectionCount returns the number of presence-tracked connections, not
// distinct users. Anonymous connections receive events but carry no presence,
// so they are not counted. Exposed for the status endpoint only.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, c := range h.clients {
		if c.userID != "" {
			n++
		}
	}
	return n
}

// OnlineUsers returns the distinct user ids with at least one live
// connection, sorted for stable output.
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.onlineUsersLocked()
}

func (h *Hub) userOnlineLocked(userID string) bool {
	for _, c := range h.clients {
		if c.userID == userID {
			return true
		}
	}
	return false
}

func (h *Hub) onlineUsersLocked() []string {
	seen := make(map[string]bool)
	users := make([]string, 0, len(h.clients))
	for _, c := range h.clients {
		if c.userID != "" && !seen[c.userID] {
			seen[c.userID] = true
			users = append(users, c.userID)
		}
	}
	sort.Strings(users)
	return users
}

func (h *Hub) peersLocked(exceptConnID string) []*client {
	peers := make([]*client, 0, len(h.clients))
	for id, c := range h.clients {
		if id != exceptConnID {
			peers = append(peers, c)
		}
	}
	return peers
}

// mirrorChange updates the optional Redis mirror off the hot path.
func (h *Hub) mirrorChange(userID string, online bool) {
	if h.mirror == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		var err error
		if online {
			err = h.mirror.AddOnline(ctx, userID)
		} else {
			err = h.mirror.RemoveOnline(ctx, userID)
		}
		if err != nil {
			log.Printf("[Hub] Presence mirror update failed: user=%s, err=%v", userID, err)
			return
		}
		if err := h.mirror.PublishChange(ctx, userID, online); err != nil {
			log.Printf("[Hub] Presence publish failed: user=%s, err=%v", userID, err)
		}
	}()
}
