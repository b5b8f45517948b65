package handler

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard-backend/internal/relay"
)

type nopConn struct{}

func (nopConn) WriteMessage(messageType int, data []byte) error { return nil }

func TestStatusReportsConnectionCount(t *testing.T) {
	hub := relay.NewHub(nil)
	hub.Register(nopConn{}, "u1")
	hub.Register(nopConn{}, "u1")
	hub.Register(nopConn{}, "u2")
	hub.Register(nopConn{}, "") // anonymous, not presence-tracked

	app := fiber.New()
	app.Get("/api/status", NewStatusHandler(hub, nil, nil).Status)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/status", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Status string `json:"status"`
		Users  int    `json:"users"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "online", body.Status)
	assert.Equal(t, 3, body.Users, "counts connections, not distinct users")
}

func TestStatusOnEmptyHub(t *testing.T) {
	app := fiber.New()
	app.Get("/api/status", NewStatusHandler(relay.NewHub(nil), nil, nil).Status)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/status", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Status string `json:"status"`
		Users  int    `json:"users"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "online", body.Status)
	assert.Zero(t, body.Users)
}
