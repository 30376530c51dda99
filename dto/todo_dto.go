package dto

import "time"

type CreateTodoDTO struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high"`
	Category    string     `json:"category"`
	AssigneeID  string     `json:"assigneeId"` // hex id, optional
	DueDate     *time.Time `json:"dueDate"`
}

// UpdateTodoDTO — all fields are optional pointers; a present-but-empty
// assigneeId clears the assignment.
type UpdateTodoDTO struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status" binding:"omitempty,oneof=pending inProgress completed"`
	Priority    *string    `json:"priority" binding:"omitempty,oneof=low medium high"`
	Category    *string    `json:"category"`
	AssigneeID  *string    `json:"assigneeId"`
	DueDate     *time.Time `json:"dueDate"`
}
