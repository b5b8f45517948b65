package client

import (
	"sync"

	"taskboard-backend/internal/model"
	"taskboard-backend/internal/relay"
)

// BoardState is the local reactive copy of the board a session renders from.
// Inbound events overwrite entities unconditionally (last event received
// wins, matching the store's last-writer-wins policy): no timestamps, no
// version comparison. A client may transiently show stale state when events
// arrive out of causal order; the next full board fetch reconciles it.
type BoardState struct {
	mu      sync.RWMutex
	tasks   map[string]model.Task
	columns map[string]model.Column
	online  map[string]bool
}

func NewBoardState() *BoardState {
	return &BoardState{
		tasks:   make(map[string]model.Task),
		columns: make(map[string]model.Column),
		online:  make(map[string]bool),
	}
}

// Bind wires the state's apply methods as the session's event handlers.
func (b *BoardState) Bind(s *Session) {
	s.SetHandlers(Handlers{
		TaskCreated:   b.ApplyTask,
		TaskUpdated:   b.ApplyTask,
		TaskDeleted:   b.ApplyTaskDeleted,
		TaskMoved:     b.ApplyTaskMoved,
		ColumnUpdated: b.ApplyColumn,
		OnlineUsers:   b.SetOnlineUsers,
		UserOnline:    b.ApplyUserOnline,
		UserOffline:   b.ApplyUserOffline,
	})
}

// Load replaces the whole state from an authoritative board fetch.
func (b *BoardState) Load(board *model.Board) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tasks = make(map[string]model.Task, len(board.Tasks))
	for _, t := range board.Tasks {
		b.tasks[t.ID] = t
	}
	b.columns = make(map[string]model.Column, len(board.Columns))
	for _, c := range board.Columns {
		b.columns[c.ID] = c
	}
}

// ApplyTask overwrites a task record. Applying the same payload twice
// leaves the state unchanged.
func (b *BoardState) ApplyTask(task model.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks[task.ID] = task
}

// ApplyTaskDeleted removes a task. Unknown ids are a no-op.
func (b *BoardState) ApplyTaskDeleted(taskID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tasks, taskID)
	for id, col := range b.columns {
		col.TaskOrder = removeID(col.TaskOrder, taskID)
		b.columns[id] = col
	}
}

// ApplyTaskMoved splices the task between the local column orders and
// repoints its status. The id is removed from both columns before the
// insert, so re-applying the same move is a no-op.
func (b *BoardState) ApplyTaskMoved(mv relay.MovePayload) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if src, ok := b.columns[mv.Source.ColumnID]; ok {
		src.TaskOrder = removeID(src.TaskOrder, mv.TaskID)
		b.columns[mv.Source.ColumnID] = src
	}
	if dst, ok := b.columns[mv.Destination.ColumnID]; ok {
		dst.TaskOrder = insertAt(removeID(dst.TaskOrder, mv.TaskID), mv.TaskID, mv.Destination.Index)
		b.columns[mv.Destination.ColumnID] = dst
	}
	if task, ok := b.tasks[mv.TaskID]; ok {
		task.Status = mv.Destination.ColumnID
		b.tasks[mv.TaskID] = task
	}
}

// ApplyColumn overwrites a column record.
func (b *BoardState) ApplyColumn(column model.Column) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.columns[column.ID] = column
}

// SetOnlineUsers replaces the online set from the connect-time snapshot.
func (b *BoardState) SetOnlineUsers(userIDs []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.online = make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		b.online[id] = true
	}
}

// ApplyUserOnline marks a user online.
func (b *BoardState) ApplyUserOnline(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.online[userID] = true
}

// ApplyUserOffline marks a user offline.
func (b *BoardState) ApplyUserOffline(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.online, userID)
}

// Task returns a task by id.
func (b *BoardState) Task(taskID string) (model.Task, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tasks[taskID]
	return t, ok
}

// Column returns a column by id.
func (b *BoardState) Column(columnID string) (model.Column, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.columns[columnID]
	return c, ok
}

// IsOnline reports whether a user has at least one live connection.
func (b *BoardState) IsOnline(userID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.online[userID]
}

// OnlineCount returns the number of distinct online users.
func (b *BoardState) OnlineCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.online)
}

// removeID returns ids without every occurrence of id.
func removeID(ids model.StringList, id string) model.StringList {
	out := make(model.StringList, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// insertAt inserts id at index, clamping out-of-range indexes.
func insertAt(ids model.StringList, id string, index int) model.StringList {
	if index < 0 {
		index = 0
	}
	if index > len(ids) {
		index = len(ids)
	}
	out := make(model.StringList, 0, len(ids)+1)
	out = append(out, ids[:index]...)
	out = append(out, id)
	out = append(out, ids[index:]...)
	return out
}
