package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard-backend/internal/model"
	"taskboard-backend/internal/relay"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrInvalidPriority = errors.New("invalid task priority")
)

// BoardStore is the document store the relay trusts but never owns. Writers
// race under last-writer-wins; the store keeps no versions and does no
// merging.
type BoardStore interface {
	CreateBoard(ctx context.Context, name, ownerID string) (*model.Board, error)
	GetBoard(ctx context.Context, boardID string) (*model.Board, error)
	CreateTask(ctx context.Context, task *model.Task) error
	UpdateTask(ctx context.Context, task *model.Task) error
	DeleteTask(ctx context.Context, taskID string) error
	MoveTask(ctx context.Context, taskID string, src, dst relay.Position) error
	UpdateColumn(ctx context.Context, column *model.Column) error
}

// Store is the GORM-backed BoardStore.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CreateBoard creates a board with the default column set.
func (s *Store) CreateBoard(ctx context.Context, name, ownerID string) (*model.Board, error) {
	board := &model.Board{
		ID:      uuid.NewString(),
		Name:    name,
		OwnerID: ownerID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(board).Error; err != nil {
			return err
		}
		for i, title := range model.DefaultColumnTitles {
			col := model.Column{
				ID:        uuid.NewString(),
				BoardID:   board.ID,
				Title:     title,
				Position:  i,
				TaskOrder: model.StringList{},
			}
			if err := tx.Create(&col).Error; err != nil {
				return err
			}
			board.Columns = append(board.Columns, col)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return board, nil
}

// GetBoard loads a board with its columns (in position order) and tasks.
func (s *Store) GetBoard(ctx context.Context, boardID string) (*model.Board, error) {
	var board model.Board
	err := s.db.WithContext(ctx).
		Preload("Columns", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Tasks").
		First(&board, "id = ?", boardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &board, nil
}

// CreateTask inserts the task and appends its id to the owning column's
// order. The owning column is the task's Status.
func (s *Store) CreateTask(ctx context.Context, task *model.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}
	if !task.Priority.Valid() {
		return ErrInvalidPriority
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var col model.Column
		if err := tx.First(&col, "id = ?", task.Status).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("column %s: %w", task.Status, ErrNotFound)
			}
			return err
		}
		if err := tx.Create(task).Error; err != nil {
			return err
		}
		col.TaskOrder = insertAt(removeID(col.TaskOrder, task.ID), task.ID, len(col.TaskOrder))
		return tx.Model(&col).Update("task_order", col.TaskOrder).Error
	})
}

// UpdateTask overwrites the task record unconditionally.
func (s *Store) UpdateTask(ctx context.Context, task *model.Task) error {
	if !task.Priority.Valid() {
		return ErrInvalidPriority
	}
	res := s.db.WithContext(ctx).Model(&model.Task{ID: task.ID}).
		Select("title", "description", "priority", "assignee", "due_date").
		Updates(task)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTask removes the task and drops its id from the owning column.
func (s *Store) DeleteTask(ctx context.Context, taskID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task model.Task
		if err := tx.First(&task, "id = ?", taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Delete(&model.Task{ID: taskID}).Error; err != nil {
			return err
		}
		var col model.Column
		if err := tx.First(&col, "id = ?", task.Status).Error; err != nil {
			// Order list may already be out of sync; the task row is gone,
			// which is what matters under last-writer-wins.
			return nil
		}
		return tx.Model(&col).Update("task_order", removeID(col.TaskOrder, taskID)).Error
	})
}

// MoveTask splices the task id out of the source order and into the
// destination order, and repoints the task's status at the destination
// column. Same-column moves reorder in place.
func (s *Store) MoveTask(ctx context.Context, taskID string, src, dst relay.Position) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var source model.Column
		if err := tx.First(&source, "id = ?", src.ColumnID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if src.ColumnID == dst.ColumnID {
			order := insertAt(removeID(source.TaskOrder, taskID), taskID, dst.Index)
			return tx.Model(&source).Update("task_order", order).Error
		}

		var dest model.Column
		if err := tx.First(&dest, "id = ?", dst.ColumnID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := tx.Model(&source).
			Update("task_order", removeID(source.TaskOrder, taskID)).Error; err != nil {
			return err
		}
		if err := tx.Model(&dest).
			Update("task_order", insertAt(removeID(dest.TaskOrder, taskID), taskID, dst.Index)).Error; err != nil {
			return err
		}
		return tx.Model(&model.Task{ID: taskID}).Update("status", dst.ColumnID).Error
	})
}

// UpdateColumn overwrites the column's title and task order.
func (s *Store) UpdateColumn(ctx context.Context, column *model.Column) error {
	res := s.db.WithContext(ctx).Model(&model.Column{ID: column.ID}).
		Select("title", "task_order").
		Updates(map[string]interface{}{"title": column.Title, "task_order": column.TaskOrder})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
