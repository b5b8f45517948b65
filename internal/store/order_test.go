package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taskboard-backend/internal/model"
)

func TestRemoveID(t *testing.T) {
	ids := model.StringList{"a", "b", "c"}

	assert.Equal(t, model.StringList{"a", "c"}, removeID(ids, "b"))
	assert.Equal(t, model.StringList{"a", "b", "c"}, removeID(ids, "missing"))
	assert.Equal(t, model.StringList{}, removeID(model.StringList{}, "a"))

	// Every occurrence goes, so a duplicated entry cannot survive a move.
	assert.Equal(t, model.StringList{"b"}, removeID(model.StringList{"a", "b", "a"}, "a"))
}

func TestInsertAt(t *testing.T) {
	ids := model.StringList{"a", "b"}

	assert.Equal(t, model.StringList{"x", "a", "b"}, insertAt(ids, "x", 0))
	assert.Equal(t, model.StringList{"a", "x", "b"}, insertAt(ids, "x", 1))
	assert.Equal(t, model.StringList{"a", "b", "x"}, insertAt(ids, "x", 2))
}

func TestInsertAtClampsOutOfRange(t *testing.T) {
	ids := model.StringList{"a", "b"}

	assert.Equal(t, model.StringList{"x", "a", "b"}, insertAt(ids, "x", -5))
	assert.Equal(t, model.StringList{"a", "b", "x"}, insertAt(ids, "x", 99))
	assert.Equal(t, model.StringList{"x"}, insertAt(model.StringList{}, "x", 3))
}

func TestRemoveThenInsertReordersWithinColumn(t *testing.T) {
	order := model.StringList{"t1", "t2", "t3"}

	order = insertAt(removeID(order, "t3"), "t3", 0)
	assert.Equal(t, model.StringList{"t3", "t1", "t2"}, order)

	// Re-applying the same splice is a no-op.
	order = insertAt(removeID(order, "t3"), "t3", 0)
	assert.Equal(t, model.StringList{"t3", "t1", "t2"}, order)
}
