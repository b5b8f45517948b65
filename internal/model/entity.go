package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StringList is an ordered list of identifiers stored as a jsonb column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *StringList) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*l = StringList{}
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}
	return errors.New("unsupported type for StringList")
}

// User identity as issued by the auth provider.
type User struct {
	UID       string    `gorm:"primaryKey;type:varchar(128)" json:"uid"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name      string    `gorm:"type:varchar(100);not null" json:"displayName"`
	AvatarURL *string   `gorm:"type:text" json:"photoURL,omitempty"`
	Provider  *string   `gorm:"type:varchar(50)" json:"provider,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (User) TableName() string {
	return "users"
}

// Board owns an ordered set of columns and a set of tasks.
type Board struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	OwnerID   string    `gorm:"type:varchar(128);not null" json:"ownerId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`

	// Relations
	Columns []Column `gorm:"foreignKey:BoardID" json:"columns,omitempty"`
	Tasks   []Task   `gorm:"foreignKey:BoardID" json:"tasks,omitempty"`
}

func (Board) TableName() string {
	return "boards"
}

// Column - TaskOrder defines the on-screen position of each task.
type Column struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	BoardID   string     `gorm:"type:varchar(36);index;not null" json:"boardId"`
	Title     string     `gorm:"type:varchar(100);not null" json:"title"`
	Position  int        `gorm:"not null;default:0" json:"position"`
	TaskOrder StringList `gorm:"type:jsonb" json:"taskIds"`
}

func (Column) TableName() string {
	return "columns"
}

// Task - Status mirrors the identifier of the owning column.
type Task struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	BoardID     string     `gorm:"type:varchar(36);index;not null" json:"boardId"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Description *string    `gorm:"type:text" json:"description,omitempty"`
	Priority    Priority   `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	Status      string     `gorm:"type:varchar(36);index;not null" json:"status"`
	Assignee    *string    `gorm:"type:varchar(128)" json:"assignee,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedBy   string     `gorm:"type:varchar(128);not null" json:"createdBy"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Task) TableName() string {
	return "tasks"
}
