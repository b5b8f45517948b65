package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboundMapsClientKindsToBroadcastKinds(t *testing.T) {
	cases := []struct {
		frame string
		want  string
	}{
		{`{"type":"createTask","payload":{"task":{"id":"t1","title":"a"}}}`, KindTaskCreated},
		{`{"type":"updateTask","payload":{"task":{"id":"t1","title":"b"}}}`, KindTaskUpdated},
		{`{"type":"deleteTask","payload":{"taskId":"t1"}}`, KindTaskDeleted},
		{`{"type":"moveTask","payload":{"taskId":"t1","source":{"columnId":"c1","index":0},"destination":{"columnId":"c2","index":1}}}`, KindTaskMoved},
		{`{"type":"updateColumn","payload":{"column":{"id":"c1","title":"Done"}}}`, KindColumnUpdated},
	}

	for _, tc := range cases {
		env, err := Inbound([]byte(tc.frame))
		require.NoError(t, err, tc.frame)
		assert.Equal(t, tc.want, env.Type)
	}
}

func TestInboundRejectsUnknownKind(t *testing.T) {
	_, err := Inbound([]byte(`{"type":"dropTables","payload":{}}`))
	assert.ErrorIs(t, err, ErrUnknownKind)

	// Server-to-client kinds are not valid inbound.
	_, err = Inbound([]byte(`{"type":"taskCreated","payload":{"task":{"id":"t1"}}}`))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestInboundRejectsMalformedFrames(t *testing.T) {
	_, err := Inbound([]byte(`not json`))
	assert.Error(t, err)

	_, err = Inbound([]byte(`{"type":"updateTask"}`))
	assert.ErrorIs(t, err, ErrMissingPayload)

	_, err = Inbound([]byte(`{"type":"updateTask","payload":{"task":{"title":"no id"}}}`))
	assert.ErrorIs(t, err, ErrMissingPayload)

	_, err = Inbound([]byte(`{"type":"deleteTask","payload":{"taskId":""}}`))
	assert.ErrorIs(t, err, ErrMissingPayload)

	_, err = Inbound([]byte(`{"type":"moveTask","payload":{"taskId":"t1","source":{"columnId":"c1","index":0},"destination":{"index":1}}}`))
	assert.ErrorIs(t, err, ErrMissingPayload)

	_, err = Inbound([]byte(`{"type":"updateColumn","payload":{"column":{"title":"no id"}}}`))
	assert.ErrorIs(t, err, ErrMissingPayload)
}

func TestInboundPreservesPayloadBytes(t *testing.T) {
	payload := `{"task":{"id":"t1","title":"exact","unknownField":42}}`
	env, err := Inbound([]byte(`{"type":"createTask","payload":` + payload + `}`))
	require.NoError(t, err)

	// The relay never rewrites payloads, unknown fields included.
	assert.JSONEq(t, payload, string(env.Payload))
}

func TestEncodeRoundTrip(t *testing.T) {
	data, err := Encode(KindUserOnline, UserPayload{UserID: "u1"})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, KindUserOnline, env.Type)

	var p UserPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "u1", p.UserID)
}
