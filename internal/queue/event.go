// Package queue publishes task events to the message broker.
package queue

import "time"

// Task event actions.
const (
	ActionCreated          = "task.created"
	ActionUpdated          = "task.updated"
	ActionToggled          = "task.toggled"
	ActionDeleted          = "task.deleted"
	ActionCompletedCleared = "task.completed_cleared"
)

// TaskEvent is published after a task write commits.  TaskID is empty for
// bulk actions, where Count holds the number of affected tasks.
type TaskEvent struct {
	Action     string    `json:"action"`
	UserID     string    `json:"user_id"`
	TaskID     string    `json:"task_id,omitempty"`
	Completed  *bool     `json:"completed,omitempty"`
	Count      int64     `json:"count,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
