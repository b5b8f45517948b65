package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"taskboard-backend/internal/model"
	"taskboard-backend/internal/relay"
	"taskboard-backend/internal/store"
)

// BoardHandler serves the persisted board layout. Clients write here first
// and only publish a relay event once the write succeeded.
type BoardHandler struct {
	store store.BoardStore
}

func NewBoardHandler(s store.BoardStore) *BoardHandler {
	return &BoardHandler{store: s}
}

// CreateBoardRequest create board request body.
type CreateBoardRequest struct {
	Name string `json:"name"`
}

// CreateBoard creates a board with the default columns.
func (h *BoardHandler) CreateBoard(c *fiber.Ctx) error {
	var req CreateBoardRequest
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name is required",
		})
	}

	uid, _ := c.Locals("uid").(string)
	board, err := h.store.CreateBoard(c.Context(), req.Name, uid)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create board",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(board)
}

// GetBoard returns a board with its columns and tasks. This is also the
// catch-up path for clients that missed relay events while offline.
func (h *BoardHandler) GetBoard(c *fiber.Ctx) error {
	board, err := h.store.GetBoard(c.Context(), c.Params("boardId"))
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "board not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load board",
		})
	}

	return c.JSON(board)
}

// CreateTask persists a new task in its column.
func (h *BoardHandler) CreateTask(c *fiber.Ctx) error {
	var task model.Task
	if err := c.BodyParser(&task); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	task.BoardID = c.Params("boardId")
	if task.Title == "" || task.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "title and status are required",
		})
	}

	uid, _ := c.Locals("uid").(string)
	task.CreatedBy = uid

	if err := h.store.CreateTask(c.Context(), &task); err != nil {
		return storeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(task)
}

// UpdateTask overwrites a task's mutable fields.
func (h *BoardHandler) UpdateTask(c *fiber.Ctx) error {
	var task model.Task
	if err := c.BodyParser(&task); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	task.ID = c.Params("taskId")

	if err := h.store.UpdateTask(c.Context(), &task); err != nil {
		return storeError(c, err)
	}

	return c.JSON(task)
}

// DeleteTask removes a task.
func (h *BoardHandler) DeleteTask(c *fiber.Ctx) error {
	if err := h.store.DeleteTask(c.Context(), c.Params("taskId")); err != nil {
		return storeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MoveTaskRequest move request body.
type MoveTaskRequest struct {
	Source      relay.Position `json:"source"`
	Destination relay.Position `json:"destination"`
}

// MoveTask splices a task between column orders.
func (h *BoardHandler) MoveTask(c *fiber.Ctx) error {
	var req MoveTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Source.ColumnID == "" || req.Destination.ColumnID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "source and destination columns are required",
		})
	}

	if err := h.store.MoveTask(c.Context(), c.Params("taskId"), req.Source, req.Destination); err != nil {
		return storeError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// UpdateColumn overwrites a column's title and task order.
func (h *BoardHandler) UpdateColumn(c *fiber.Ctx) error {
	var column model.Column
	if err := c.BodyParser(&column); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	column.ID = c.Params("columnId")

	if err := h.store.UpdateColumn(c.Context(), &column); err != nil {
		return storeError(c, err)
	}

	return c.JSON(column)
}

func storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not found",
		})
	case errors.Is(err, store.ErrInvalidPriority):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid priority",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "store write failed",
		})
	}
}
