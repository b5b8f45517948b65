package presence

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel for presence change events consumed by external monitors.
const updatesChannel = "presence_updates"

// ChangeEvent is published on every first-connection-online and
// last-connection-offline transition.
type ChangeEvent struct {
	UserID   string `json:"userId"`
	Online   bool   `json:"online"`
	ServerID string `json:"serverId"`
}

// Manager mirrors the hub's online set into Redis. The mirror is advisory:
// relay correctness never depends on it, and a nil Manager disables it.
type Manager struct {
	client   *redis.Client
	serverID string
}

// NewManager connects to Redis and verifies the connection.
func NewManager(addr, password string, db int, serverID string) (*Manager, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Printf("[Presence] Connected to %s", addr)
	return &Manager{client: rdb, serverID: serverID}, nil
}

func (m *Manager) onlineKey() string {
	return "presence:online:" + m.serverID
}

// Reset clears the mirrored set. Called at startup: presence is rebuilt from
// nothing on restart, so stale members from a previous run must not survive.
func (m *Manager) Reset(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.client.Del(ctx, m.onlineKey()).Err()
}

// AddOnline records a user's first live connection.
func (m *Manager) AddOnline(ctx context.Context, userID string) error {
	if m == nil {
		return nil
	}
	return m.client.SAdd(ctx, m.onlineKey(), userID).Err()
}

// RemoveOnline records that a user's last connection closed.
func (m *Manager) RemoveOnline(ctx context.Context, userID string) error {
	if m == nil {
		return nil
	}
	return m.client.SRem(ctx, m.onlineKey(), userID).Err()
}

// OnlineUsers returns the mirrored distinct online set.
func (m *Manager) OnlineUsers(ctx context.Context) ([]string, error) {
	if m == nil {
		return nil, nil
	}
	return m.client.SMembers(ctx, m.onlineKey()).Result()
}

// PublishChange emits a presence transition for external consumers.
func (m *Manager) PublishChange(ctx context.Context, userID string, online bool) error {
	if m == nil {
		return nil
	}
	data, err := json.Marshal(ChangeEvent{UserID: userID, Online: online, ServerID: m.serverID})
	if err != nil {
		return err
	}
	return m.client.Publish(ctx, updatesChannel, data).Err()
}

// Subscribe returns a subscription to presence change events.
func (m *Manager) Subscribe(ctx context.Context) *redis.PubSub {
	return m.client.Subscribe(ctx, updatesChannel)
}

// Ping reports mirror health for the health endpoint.
func (m *Manager) Ping(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	return m.client.Close()
}
