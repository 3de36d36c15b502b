package model

import "time"

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// DefaultCategory is assigned when a task is created without one.
const DefaultCategory = "general"

// IsPriority reports whether p is one of the known priorities.
func IsPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task mirrors the `tasks` table.  UserID is fixed at creation.
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user"`
	Text        string     `json:"text"`
	Completed   bool       `json:"completed"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	Category    string     `json:"category"`
	Order       int        `json:"order"`
	CompletedAt *time.Time `json:"completedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	IsOverdue   bool       `json:"isOverdue"`
}

// ApplyCompletion keeps CompletedAt consistent with Completed after a
// mutation.  wasCompleted is the flag before the mutation; the timestamp is
// only reset when the flag actually changes.
func ApplyCompletion(t *Task, wasCompleted bool, now time.Time) {
	switch {
	case t.Completed && (!wasCompleted || t.CompletedAt == nil):
		ts := now
		t.CompletedAt = &ts
	case !t.Completed:
		t.CompletedAt = nil
	}
}

// Touch records a mutation at now.  A zero CreatedAt is filled as well.
func Touch(t *Task, now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}

// Overdue reports whether t is pending with a due date before now.
func Overdue(t *Task, now time.Time) bool {
	return t.DueDate != nil && !t.Completed && t.DueDate.Before(now)
}

// TaskFilter selects a page of a user's tasks.
type TaskFilter struct {
	UserID    string
	Completed *bool
	Priority  string
	Category  string
	Sort      []SortField
	Offset    int
	Limit     int
}

// SortField orders a listing by Field; Desc reverses it.
type SortField struct {
	Field string
	Desc  bool
}

// TaskStats aggregates a user's tasks.
type TaskStats struct {
	Total        int `json:"total"`
	Completed    int `json:"completed"`
	Pending      int `json:"pending"`
	HighPriority int `json:"highPriority"`
	Overdue      int `json:"overdue"`
}

// TaskDraft is a validated request to create a task.  Empty Priority and
// Category take their defaults.
type TaskDraft struct {
	Text     string
	Priority string
	DueDate  *time.Time
	Category string
	Order    int
}

// TaskPatch is a validated partial update.  Nil fields are left unchanged;
// DueDateSet with a nil DueDate clears the due date.
type TaskPatch struct {
	Text       *string
	Completed  *bool
	Priority   *string
	DueDateSet bool
	DueDate    *time.Time
	Category   *string
	Order      *int
}

// Apply copies the set fields of p onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDateSet {
		t.DueDate = p.DueDate
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Order != nil {
		t.Order = *p.Order
	}
}

// SortFields lists the fields a task listing can be ordered by.
var SortFields = []string{"createdAt", "updatedAt", "dueDate", "priority", "text", "completed", "category", "completedAt", "order"}

// IsSortField reports whether name is one of SortFields.
func IsSortField(name string) bool {
	for _, f := range SortFields {
		if f == name {
			return true
		}
	}
	return false
}

// TaskQuery is a validated listing request.  Page is 1-based.
type TaskQuery struct {
	Completed *bool
	Priority  string
	Category  string
	Sort      []SortField
	Page      int
	Limit     int
}

// Listing bounds.
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)
