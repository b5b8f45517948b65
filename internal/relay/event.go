package relay

import (
	"encoding/json"
	"errors"

	"taskboard-backend/internal/model"
)

// Event kinds sent by clients after a successful store write.
const (
	KindCreateTask   = "createTask"
	KindUpdateTask   = "updateTask"
	KindDeleteTask   = "deleteTask"
	KindMoveTask     = "moveTask"
	KindUpdateColumn = "updateColumn"
)

// Event kinds emitted by the server.
const (
	KindTaskCreated   = "taskCreated"
	KindTaskUpdated   = "taskUpdated"
	KindTaskDeleted   = "taskDeleted"
	KindTaskMoved     = "taskMoved"
	KindColumnUpdated = "columnUpdated"
	KindOnlineUsers   = "onlineUsers"
	KindUserOnline    = "userOnline"
	KindUserOffline   = "userOffline"
)

var (
	ErrUnknownKind    = errors.New("unknown event kind")
	ErrMissingPayload = errors.New("event payload missing required fields")
)

// Envelope is the wire frame for every relay event. Payload shapes are
// identical in both directions; the server rebroadcasts them untouched.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Position locates a task inside a column.
type Position struct {
	ColumnID string `json:"columnId"`
	Index    int    `json:"index"`
}

// TaskPayload carries a full task record (createTask, updateTask and their
// rebroadcasts).
type TaskPayload struct {
	Task model.Task `json:"task"`
}

// TaskRefPayload carries only a task identifier (deleteTask, taskDeleted).
type TaskRefPayload struct {
	TaskID string `json:"taskId"`
}

// MovePayload carries a task move between (or within) columns.
type MovePayload struct {
	TaskID      string   `json:"taskId"`
	Source      Position `json:"source"`
	Destination Position `json:"destination"`
}

// ColumnPayload carries a full column record (updateColumn, columnUpdated).
type ColumnPayload struct {
	Column model.Column `json:"column"`
}

// UserPayload carries a user identifier (userOnline, userOffline).
type UserPayload struct {
	UserID string `json:"userId"`
}

// OnlineUsersPayload lists distinct online user identifiers.
type OnlineUsersPayload struct {
	UserIDs []string `json:"userIds"`
}

// Encode builds a wire frame for the given kind and payload.
func Encode(kind string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: kind, Payload: raw})
}

// rebroadcastKinds maps each client intent to the event its peers receive.
var rebroadcastKinds = map[string]string{
	KindCreateTask:   KindTaskCreated,
	KindUpdateTask:   KindTaskUpdated,
	KindDeleteTask:   KindTaskDeleted,
	KindMoveTask:     KindTaskMoved,
	KindUpdateColumn: KindColumnUpdated,
}

// Inbound validates a client frame and returns the envelope to rebroadcast.
// Frames with an unknown kind or missing required fields are rejected so a
// misbehaving peer cannot take the relay down for others; the payload itself
// passes through unmodified.
func Inbound(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}

	out, ok := rebroadcastKinds[env.Type]
	if !ok {
		return nil, ErrUnknownKind
	}
	if len(env.Payload) == 0 {
		return nil, ErrMissingPayload
	}

	switch env.Type {
	case KindCreateTask, KindUpdateTask:
		var p TaskPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		if p.Task.ID == "" {
			return nil, ErrMissingPayload
		}
	case KindDeleteTask:
		var p TaskRefPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		if p.TaskID == "" {
			return nil, ErrMissingPayload
		}
	case KindMoveTask:
		var p MovePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		if p.TaskID == "" || p.Source.ColumnID == "" || p.Destination.ColumnID == "" {
			return nil, ErrMissingPayload
		}
	case KindUpdateColumn:
		var p ColumnPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, err
		}
		if p.Column.ID == "" {
			return nil, ErrMissingPayload
		}
	}

	return &Envelope{Type: out, Payload: env.Payload}, nil
}
