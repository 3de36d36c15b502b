package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/task-manager/internal/model"
)

// TaskRepo persists tasks.  Every query is scoped by user_id so a task is
// only ever reachable through its owner.
type TaskRepo struct {
	db *sql.DB
}

// NewTaskRepo returns a TaskRepo backed by db.
func NewTaskRepo(db *sql.DB) *TaskRepo { return &TaskRepo{db: db} }

const taskColumns = "id, user_id, text, completed, priority, due_date, category, sort_order, completed_at, created_at, updated_at"

// sortColumns maps model.SortFields onto columns.
var sortColumns = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"dueDate":     "due_date",
	"priority":    "priority",
	"text":        "text",
	"completed":   "completed",
	"category":    "category",
	"completedAt": "completed_at",
	"order":       "sort_order",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(s rowScanner) (*model.Task, error) {
	var (
		t           model.Task
		due         sql.NullTime
		completedAt sql.NullTime
	)
	if err := s.Scan(&t.ID, &t.UserID, &t.Text, &t.Completed, &t.Priority, &due, &t.Category,
		&t.Order, &completedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if due.Valid {
		v := due.Time
		t.DueDate = &v
	}
	if completedAt.Valid {
		v := completedAt.Time
		t.CompletedAt = &v
	}
	return &t, nil
}

// Create inserts a new task.  All fields, including ID and timestamps, are
// supplied by the caller.
func (r *TaskRepo) Create(ctx context.Context, t *model.Task) error {
	const q = `INSERT INTO tasks (` + taskColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, t.ID, t.UserID, t.Text, t.Completed, t.Priority, t.DueDate,
		t.Category, t.Order, t.CompletedAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetByIDAndUser returns the task only if it belongs to userID.
func (r *TaskRepo) GetByIDAndUser(ctx context.Context, id, userID string) (*model.Task, error) {
	const q = `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND user_id = ?`
	t, err := scanTask(r.db.QueryRowContext(ctx, q, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("select task: %w", err)
	}
	return t, nil
}

// Update writes the mutable fields of t.  user_id is never changed.
func (r *TaskRepo) Update(ctx context.Context, t *model.Task) error {
	const q = `UPDATE tasks SET text = ?, completed = ?, priority = ?, due_date = ?, category = ?,
	           sort_order = ?, completed_at = ?, updated_at = ?
	           WHERE id = ? AND user_id = ?`
	res, err := r.db.ExecContext(ctx, q, t.Text, t.Completed, t.Priority, t.DueDate, t.Category,
		t.Order, t.CompletedAt, t.UpdatedAt, t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return requireRow(res, ErrTaskNotFound)
}

// Delete removes one task owned by userID.
func (r *TaskRepo) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return requireRow(res, ErrTaskNotFound)
}

// DeleteCompleted removes every completed task of userID and returns how
// many were removed.
func (r *TaskRepo) DeleteCompleted(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE user_id = ? AND completed = 1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete completed tasks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete completed tasks: %w", err)
	}
	return n, nil
}

// List returns one page of tasks matching f and the total number of matches.
func (r *TaskRepo) List(ctx context.Context, f model.TaskFilter) ([]*model.Task, int, error) {
	where := []string{"user_id = ?"}
	args := []any{f.UserID}
	if f.Completed != nil {
		where = append(where, "completed = ?")
		args = append(args, *f.Completed)
	}
	if f.Priority != "" {
		where = append(where, "priority = ?")
		args = append(args, f.Priority)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	q := "SELECT " + taskColumns + " FROM tasks WHERE " + cond + " ORDER BY " + orderBy(f.Sort)
	pageArgs := args
	if f.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		pageArgs = append(append([]any{}, args...), f.Limit, f.Offset)
	}
	rows, err := r.db.QueryContext(ctx, q, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := []*model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	return out, total, nil
}

// orderBy renders a whitelisted ORDER BY clause; unknown fields are
// skipped.  Newest first is the default, id breaks ties.
func orderBy(fields []model.SortField) string {
	parts := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		col, ok := sortColumns[f.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if f.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	if len(parts) == 0 {
		parts = append(parts, "created_at DESC")
	}
	parts = append(parts, "id ASC")
	return strings.Join(parts, ", ")
}

// Stats aggregates the user's tasks in one grouped count.  overdue counts
// pending tasks whose due date is before now.
func (r *TaskRepo) Stats(ctx context.Context, userID string, now time.Time) (model.TaskStats, error) {
	const q = `SELECT COUNT(*),
	                  COALESCE(SUM(completed = 1), 0),
	                  COALESCE(SUM(completed = 0), 0),
	                  COALESCE(SUM(priority = 'high'), 0),
	                  COALESCE(SUM(completed = 0 AND due_date IS NOT NULL AND due_date < ?), 0)
	           FROM tasks WHERE user_id = ?`
	var s model.TaskStats
	if err := r.db.QueryRowContext(ctx, q, now, userID).Scan(&s.Total, &s.Completed, &s.Pending, &s.HighPriority, &s.Overdue); err != nil {
		return model.TaskStats{}, fmt.Errorf("task stats: %w", err)
	}
	return s, nil
}
