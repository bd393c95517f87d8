package model

import (
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Statuses lists every accepted status in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	DueDate     time.Time `json:"dueDate"`
	OwnerID     *string   `json:"ownerId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewTask is a validated create payload with defaults applied.
type NewTask struct {
	Title       string
	Description string
	Status      Status
	DueDate     time.Time
}

// TaskPatch is a validated partial update. Nil fields are left untouched.
// There is no owner field: ownership is fixed at creation.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *Status
	DueDate     *time.Time
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.DueDate == nil
}

// Apply copies the patch onto t. UpdatedAt is left to the caller.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
}
