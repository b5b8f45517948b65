package presence

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	m, err := NewManager(mr.Addr(), "", 0, "srv-1")
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m, mr
}

func TestMirrorTracksOnlineSet(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	require.NoError(t, m.AddOnline(ctx, "u1"))
	require.NoError(t, m.AddOnline(ctx, "u2"))
	require.NoError(t, m.AddOnline(ctx, "u1")) // set semantics, no duplicate

	users, err := m.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, users)

	require.NoError(t, m.RemoveOnline(ctx, "u1"))
	users, err = m.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, users)
}

func TestResetClearsMirror(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	require.NoError(t, m.AddOnline(ctx, "u1"))
	require.NoError(t, m.Reset(ctx))

	users, err := m.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestMirrorsAreScopedPerServer(t *testing.T) {
	mr := miniredis.RunT(t)
	a, err := NewManager(mr.Addr(), "", 0, "srv-a")
	require.NoError(t, err)
	defer a.Close()
	b, err := NewManager(mr.Addr(), "", 0, "srv-b")
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, a.AddOnline(ctx, "u1"))

	users, err := b.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users, "each relay instance owns its own key")
}

func TestPublishChangePayload(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	sub := m.Subscribe(ctx)
	defer sub.Close()
	_, err := sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	require.NoError(t, m.PublishChange(ctx, "u1", true))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var ev ChangeEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
	assert.Equal(t, ChangeEvent{UserID: "u1", Online: true, ServerID: "srv-1"}, ev)
}

func TestNilManagerIsDisabled(t *testing.T) {
	var m *Manager
	ctx := context.Background()

	assert.NoError(t, m.AddOnline(ctx, "u1"))
	assert.NoError(t, m.RemoveOnline(ctx, "u1"))
	assert.NoError(t, m.Reset(ctx))
	assert.NoError(t, m.PublishChange(ctx, "u1", false))
	assert.NoError(t, m.Ping(ctx))
	assert.NoError(t, m.Close())

	users, err := m.OnlineUsers(ctx)
	assert.NoError(t, err)
	assert.Nil(t, users)
}

func TestNewManagerFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewManager(addr, "", 0, "srv-1")
	assert.Error(t, err)
}
