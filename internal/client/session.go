package client

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/fasthttp/websocket"

	"taskboard-backend/internal/model"
	"taskboard-backend/internal/relay"
)

var (
	ErrNotConnected     = errors.New("session is not connected")
	ErrAlreadyConnected = errors.New("session is already connected; disconnect before reconnecting")
	ErrNoStore          = errors.New("session has no store configured")
)

// State of the session channel. Changing identity mid-session is not
// supported: a session must pass through Disconnected before connecting
// with a different token.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Conn is the bidirectional channel the session drives.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens the channel to the relay server.
type Dialer func(url string) (Conn, error)

// DefaultDialer dials over WebSocket.
func DefaultDialer(url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Store is the durable document store the session writes to before
// publishing. The relay advertises only state that was committed first.
type Store interface {
	CreateTask(ctx context.Context, task *model.Task) error
	UpdateTask(ctx context.Context, task *model.Task) error
	DeleteTask(ctx context.Context, taskID string) error
	MoveTask(ctx context.Context, taskID string, src, dst relay.Position) error
	UpdateColumn(ctx context.Context, column *model.Column) error
}

// Handlers receive inbound relay events, once per event. They must merge
// payloads into local state idempotently; re-applying an event is a no-op.
type Handlers struct {
	TaskCreated   func(model.Task)
	TaskUpdated   func(model.Task)
	TaskDeleted   func(taskID string)
	TaskMoved     func(relay.MovePayload)
	ColumnUpdated func(model.Column)
	OnlineUsers   func(userIDs []string)
	UserOnline    func(userID string)
	UserOffline   func(userID string)
}

// Session is one client channel to the relay server.
type Session struct {
	url   string
	store Store
	dial  Dialer

	mu       sync.Mutex
	state    State
	conn     Conn
	handlers Handlers
}

// New creates a disconnected session. store may be nil when the caller only
// consumes events.
func New(url string, store Store) *Session {
	return &Session{
		url:   url,
		store: store,
		dial:  DefaultDialer,
	}
}

// SetDialer replaces the default WebSocket dialer.
func (s *Session) SetDialer(d Dialer) {
	s.mu.Lock()
	s.dial = d
	s.mu.Unlock()
}

// SetHandlers registers the inbound event handlers. Call before Connect.
func (s *Session) SetHandlers(h Handlers) {
	s.mu.Lock()
	s.handlers = h
	s.mu.Unlock()
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect opens the channel, attaching the identity token to the handshake.
// An empty token opens an anonymous connection with no presence tracking.
// Connect fails unless the session is Disconnected.
func (s *Session) Connect(token string) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.state = StateConnecting
	dial := s.dial
	s.mu.Unlock()

	url := s.url
	if token != "" {
		url += "?token=" + token
	}

	conn, err := dial(url)
	if err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.state = StateConnected
	s.mu.Unlock()

	go s.readLoop(conn)
	return nil
}

// Disconnect closes the channel. Safe to call in any state, any number of
// times.
func (s *Session) Disconnect() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// readLoop dispatches inbound events until the channel closes.
func (s *Session) readLoop(conn Conn) {
	defer s.closeIfCurrent(conn)

	for {
		_, msgBytes, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var env relay.Envelope
		if err := json.Unmarshal(msgBytes, &env); err != nil {
			continue
		}
		s.dispatch(&env)
	}
}

// dispatch decodes a frame and invokes its handler once. Frames that fail to
// decode are skipped; a misbehaving peer must not break local handling.
func (s *Session) dispatch(env *relay.Envelope) {
	s.mu.Lock()
	h := s.handlers
	s.mu.Unlock()

	switch env.Type {
	case relay.KindTaskCreated:
		var p relay.TaskPayload
		if json.Unmarshal(env.Payload, &p) == nil && p.Task.ID != "" && h.TaskCreated != nil {
			h.TaskCreated(p.Task)
		}
	case relay.KindTaskUpdated:
		var p relay.TaskPayload
		if json.Unmarshal(env.Payload, &p) == nil && p.Task.ID != "" && h.TaskUpdated != nil {
			h.TaskUpdated(p.Task)
		}
	case relay.KindTaskDeleted:
		var p relay.TaskRefPayload
		if json.Unmarshal(env.Payload, &p) == nil && p.TaskID != "" && h.TaskDeleted != nil {
			h.TaskDeleted(p.TaskID)
		}
	case relay.KindTaskMoved:
		var p relay.MovePayload
		if json.Unmarshal(env.Payload, &p) == nil && p.TaskID != "" && h.TaskMoved != nil {
			h.TaskMoved(p)
		}
	case relay.KindColumnUpdated:
		var p relay.ColumnPayload
		if json.Unmarshal(env.Payload, &p) == nil && p.Column.ID != "" && h.ColumnUpdated != nil {
			h.ColumnUpdated(p.Column)
		}
	case relay.KindOnlineUsers:
		var p relay.OnlineUsersPayload
		if json.Unmarshal(env.Payload, &p) == nil && h.OnlineUsers != nil {
			h.OnlineUsers(p.UserIDs)
		}
	case relay.KindUserOnline:
		var p relay.UserPayload
		if json.Unmarshal(env.Payload, &p) == nil && p.UserID != "" && h.UserOnline != nil {
			h.UserOnline(p.UserID)
		}
	case relay.KindUserOffline:
		var p relay.UserPayload
		if json.Unmarshal(env.Payload, &p) == nil && p.UserID != "" && h.UserOffline != nil {
			h.UserOffline(p.UserID)
		}
	default:
		log.Printf("[Session] Ignoring unknown event kind %q", env.Type)
	}
}

// closeIfCurrent tears the session down only while conn is still the active
// channel. A read loop left over from a closed connection must not touch the
// session's successor connection.
func (s *Session) closeIfCurrent(conn Conn) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	conn.Close()
}

// publish sends a fire-and-forget frame. No acknowledgment, no retry; the
// transport may drop frames to slow consumers and that is accepted.
func (s *Session) publish(kind string, payload any) error {
	s.mu.Lock()
	conn := s.conn
	state := s.state
	s.mu.Unlock()

	if state != StateConnected || conn == nil {
		return ErrNotConnected
	}

	data, err := relay.Encode(kind, payload)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// PublishTaskCreated announces a task that was already written to the store.
func (s *Session) PublishTaskCreated(task model.Task) error {
	return s.publish(relay.KindCreateTask, relay.TaskPayload{Task: task})
}

// PublishTaskUpdated announces an already-persisted task update.
func (s *Session) PublishTaskUpdated(task model.Task) error {
	return s.publish(relay.KindUpdateTask, relay.TaskPayload{Task: task})
}

// PublishTaskDeleted announces an already-persisted task deletion.
func (s *Session) PublishTaskDeleted(taskID string) error {
	return s.publish(relay.KindDeleteTask, relay.TaskRefPayload{TaskID: taskID})
}

// PublishTaskMoved announces an already-persisted task move.
func (s *Session) PublishTaskMoved(mv relay.MovePayload) error {
	return s.publish(relay.KindMoveTask, mv)
}

// PublishColumnUpdated announces an already-persisted column update.
func (s *Session) PublishColumnUpdated(column model.Column) error {
	return s.publish(relay.KindUpdateColumn, relay.ColumnPayload{Column: column})
}

// CreateTask writes to the store, then publishes. A failed write never
// reaches the relay.
func (s *Session) CreateTask(ctx context.Context, task *model.Task) error {
	if s.store == nil {
		return ErrNoStore
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return err
	}
	return s.PublishTaskCreated(*task)
}

// UpdateTask writes to the store, then publishes.
func (s *Session) UpdateTask(ctx context.Context, task *model.Task) error {
	if s.store == nil {
		return ErrNoStore
	}
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return err
	}
	return s.PublishTaskUpdated(*task)
}

// DeleteTask writes to the store, then publishes.
func (s *Session) DeleteTask(ctx context.Context, taskID string) error {
	if s.store == nil {
		return ErrNoStore
	}
	if err := s.store.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	return s.PublishTaskDeleted(taskID)
}

// MoveTask writes to the store, then publishes.
func (s *Session) MoveTask(ctx context.Context, taskID string, src, dst relay.Position) error {
	if s.store == nil {
		return ErrNoStore
	}
	if err := s.store.MoveTask(ctx, taskID, src, dst); err != nil {
		return err
	}
	return s.PublishTaskMoved(relay.MovePayload{TaskID: taskID, Source: src, Destination: dst})
}

// UpdateColumn writes to the store, then publishes.
func (s *Session) UpdateColumn(ctx context.Context, column *model.Column) error {
	if s.store == nil {
		return ErrNoStore
	}
	if err := s.store.UpdateColumn(ctx, column); err != nil {
		return err
	}
	return s.PublishColumnUpdated(*column)
}
