package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taskboard-backend/internal/presence"
	"taskboard-backend/internal/relay"
)

// StatusHandler serves the public status query and the health check.
type StatusHandler struct {
	hub    *relay.Hub
	db     *gorm.DB
	mirror *presence.Manager
}

func NewStatusHandler(hub *relay.Hub, db *gorm.DB, mirror *presence.Manager) *StatusHandler {
	return &StatusHandler{hub: hub, db: db, mirror: mirror}
}

// Status reports the live connection count (not distinct users). No auth,
// no side effects; meant for external monitoring only.
func (h *StatusHandler) Status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "online",
		"users":  h.hub.ConnectionCount(),
	})
}

// ComponentCheck per-component health state.
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse health check response.
type HealthResponse struct {
	Status    string                    `json:"status"`
	Timestamp string                    `json:"timestamp"`
	Checks    map[string]ComponentCheck `json:"checks"`
}

// Health checks the database and, when configured, the presence mirror.
func (h *StatusHandler) Health(c *fiber.Ctx) error {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    make(map[string]ComponentCheck),
	}

	dbStart := time.Now()
	sqlDB, err := h.db.DB()
	if err != nil {
		response.Status = "unhealthy"
		response.Checks["database"] = ComponentCheck{
			Status: "unhealthy",
			Error:  "failed to get database connection",
		}
	} else if err := sqlDB.Ping(); err != nil {
		response.Status = "unhealthy"
		response.Checks["database"] = ComponentCheck{
			Status: "unhealthy",
			Error:  "database ping failed",
		}
	} else {
		response.Checks["database"] = ComponentCheck{
			Status:  "healthy",
			Latency: time.Since(dbStart).String(),
		}
	}

	if h.mirror != nil {
		redisStart := time.Now()
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		if err := h.mirror.Ping(ctx); err != nil {
			// Mirror loss degrades monitoring, not the relay itself.
			response.Checks["presence_mirror"] = ComponentCheck{
				Status: "degraded",
				Error:  "presence mirror unreachable",
			}
		} else {
			response.Checks["presence_mirror"] = ComponentCheck{
				Status:  "healthy",
				Latency: time.Since(redisStart).String(),
			}
		}
	}

	status := fiber.StatusOK
	if response.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(response)
}
