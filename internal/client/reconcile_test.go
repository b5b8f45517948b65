package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard-backend/internal/model"
	"taskboard-backend/internal/relay"
)

func loadedState() *BoardState {
	b := NewBoardState()
	b.Load(&model.Board{
		Columns: []model.Column{
			{ID: "todo", Title: "To Do", TaskOrder: model.StringList{"t1", "t2"}},
			{ID: "done", Title: "Done", TaskOrder: model.StringList{"t3"}},
		},
		Tasks: []model.Task{
			{ID: "t1", Title: "one", Status: "todo"},
			{ID: "t2", Title: "two", Status: "todo"},
			{ID: "t3", Title: "three", Status: "done"},
		},
	})
	return b
}

func TestApplyTaskUpdatedIsIdempotent(t *testing.T) {
	b := loadedState()

	updated := model.Task{ID: "t1", Title: "renamed", Status: "todo"}
	b.ApplyTask(updated)
	first, ok := b.Task("t1")
	require.True(t, ok)

	// A redelivered duplicate leaves the state untouched.
	b.ApplyTask(updated)
	second, ok := b.Task("t1")
	require.True(t, ok)
	assert.Equal(t, first, second)
	assert.Equal(t, "renamed", second.Title)
}

func TestApplyTaskMovedIsIdempotent(t *testing.T) {
	b := loadedState()

	mv := relay.MovePayload{
		TaskID:      "t1",
		Source:      relay.Position{ColumnID: "todo", Index: 0},
		Destination: relay.Position{ColumnID: "done", Index: 1},
	}
	b.ApplyTaskMoved(mv)
	b.ApplyTaskMoved(mv)

	todo, ok := b.Column("todo")
	require.True(t, ok)
	assert.Equal(t, model.StringList{"t2"}, todo.TaskOrder)

	done, ok := b.Column("done")
	require.True(t, ok)
	assert.Equal(t, model.StringList{"t3", "t1"}, done.TaskOrder, "no duplicate entry after redelivery")

	task, ok := b.Task("t1")
	require.True(t, ok)
	assert.Equal(t, "done", task.Status)
}

func TestApplyTaskMovedClampsIndex(t *testing.T) {
	b := loadedState()

	b.ApplyTaskMoved(relay.MovePayload{
		TaskID:      "t2",
		Source:      relay.Position{ColumnID: "todo", Index: 1},
		Destination: relay.Position{ColumnID: "done", Index: 99},
	})

	done, ok := b.Column("done")
	require.True(t, ok)
	assert.Equal(t, model.StringList{"t3", "t2"}, done.TaskOrder)
}

func TestApplyTaskDeletedUnknownIsNoop(t *testing.T) {
	b := loadedState()

	b.ApplyTaskDeleted("never-existed")
	b.ApplyTaskDeleted("never-existed")

	todo, ok := b.Column("todo")
	require.True(t, ok)
	assert.Equal(t, model.StringList{"t1", "t2"}, todo.TaskOrder)
	_, ok = b.Task("t1")
	assert.True(t, ok)
}

func TestApplyTaskDeletedRemovesFromOrder(t *testing.T) {
	b := loadedState()

	b.ApplyTaskDeleted("t2")

	_, ok := b.Task("t2")
	assert.False(t, ok)
	todo, ok := b.Column("todo")
	require.True(t, ok)
	assert.Equal(t, model.StringList{"t1"}, todo.TaskOrder)
}

func TestOnlineSetTracksPresenceEvents(t *testing.T) {
	b := NewBoardState()

	b.SetOnlineUsers([]string{"u1", "u2"})
	assert.True(t, b.IsOnline("u1"))
	assert.Equal(t, 2, b.OnlineCount())

	b.ApplyUserOnline("u3")
	b.ApplyUserOnline("u3") // duplicate delivery
	assert.Equal(t, 3, b.OnlineCount())

	b.ApplyUserOffline("u1")
	b.ApplyUserOffline("u1")
	assert.False(t, b.IsOnline("u1"))
	assert.Equal(t, 2, b.OnlineCount())
}

func TestBindRoutesEventsIntoState(t *testing.T) {
	b := loadedState()
	s := New("ws://relay/ws/board", nil)
	b.Bind(s)

	conn := newFakeConn()
	s.SetDialer(func(url string) (Conn, error) { return conn, nil })
	require.NoError(t, s.Connect("token"))
	defer s.Disconnect()

	frame, err := relay.Encode(relay.KindTaskDeleted, relay.TaskRefPayload{TaskID: "t3"})
	require.NoError(t, err)
	conn.in <- frame

	assert.Eventually(t, func() bool {
		_, ok := b.Task("t3")
		return !ok
	}, time.Second, 10*time.Millisecond)
}
