package task

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the position of a task on the board.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Statuses lists every status in board order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

// Priority represents how urgent a task is.
type Priority string

const (
	PriorityLow  Priority = "LOW"
	PriorityMed  Priority = "MED"
	PriorityHigh Priority = "HIGH"
)

// Priorities lists every priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMed, PriorityHigh}

// ParseStatus converts user input into a Status.
// Matching ignores case and surrounding whitespace; "TO_DO" is accepted as an alias of TODO.
func ParseStatus(s string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TODO", "TO_DO":
		return StatusTodo, nil
	case "IN_PROGRESS":
		return StatusInProgress, nil
	case "DONE":
		return StatusDone, nil
	}
	return "", fmt.Errorf("invalid task status %q: allowed values are TODO, IN_PROGRESS, DONE", s)
}

// ParsePriority converts user input into a Priority.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return PriorityLow, nil
	case "MED":
		return PriorityMed, nil
	case "HIGH":
		return PriorityHigh, nil
	}
	return "", fmt.Errorf("invalid task priority %q: allowed values are LOW, MED, HIGH", s)
}

// Rank orders statuses along the board (TODO first).
func (s Status) Rank() int {
	for i, v := range Statuses {
		if v == s {
			return i
		}
	}
	return len(Statuses)
}

// Rank orders priorities from LOW to HIGH.
func (p Priority) Rank() int {
	for i, v := range Priorities {
		if v == p {
			return i
		}
	}
	return len(Priorities)
}

// Task is the core domain entity: a mutable unit of work on the board.
type Task struct {
	ID          string    `json:"id" gorm:"primaryKey;type:text"`
	Title       string    `json:"title" gorm:"not null;size:100"`
	Description string    `json:"description,omitempty" gorm:"size:1000"`
	Status      Status    `json:"status" gorm:"not null;type:text;index"`
	Priority    Priority  `json:"priority" gorm:"not null;type:text;index"`
	CreatedBy   string    `json:"createdBy" gorm:"not null;type:text;index"`
	AssignedTo  *string   `json:"assignedTo" gorm:"type:text;index"`
	CreatedAt   time.Time `json:"createdAt" gorm:"not null;autoCreateTime:false"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime:false"`
	Version     int64     `json:"version" gorm:"not null;default:0"`
}

// TableName returns the table name for the Task entity.
func (Task) TableName() string {
	return "tasks"
}

// Clone returns a deep copy so a mutation never aliases stored state.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.AssignedTo != nil {
		a := *t.AssignedTo
		c.AssignedTo = &a
	}
	return &c
}

// IsAssigned reports whether the task currently has an assignee.
func (t *Task) IsAssigned() bool {
	return t.AssignedTo != nil && *t.AssignedTo != ""
}

// Assignee returns the assignee ID or an empty string.
func (t *Task) Assignee() string {
	if t.AssignedTo == nil {
		return ""
	}
	return *t.AssignedTo
}
