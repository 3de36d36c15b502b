package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/task-manager/internal/model"
	"github.com/iliyamo/task-manager/internal/queue"
	"github.com/iliyamo/task-manager/internal/repository"
)

// TaskStore persists tasks.  Every method is scoped to one owner.
type TaskStore interface {
	Create(ctx context.Context, t *model.Task) error
	GetByIDAndUser(ctx context.Context, id, userID string) (*model.Task, error)
	Update(ctx context.Context, t *model.Task) error
	Delete(ctx context.Context, id, userID string) error
	DeleteCompleted(ctx context.Context, userID string) (int64, error)
	List(ctx context.Context, f model.TaskFilter) ([]*model.Task, int, error)
	Stats(ctx context.Context, userID string, now time.Time) (model.TaskStats, error)
}

// Publisher receives an event after each successful task write.
type Publisher interface {
	Publish(ctx context.Context, ev queue.TaskEvent) error
}

// TaskQuery selects a page of tasks; see validation.TaskQuery.
type TaskQuery = model.TaskQuery

// TaskPage is one page of a listing.
type TaskPage struct {
	Tasks []*model.Task
	Total int
	Page  int
	Pages int
}

// TaskService runs task operations for one owner at a time.  Derived
// fields are set here, not by the stores.
type TaskService struct {
	tasks  TaskStore
	events Publisher
	log    *slog.Logger
	now    func() time.Time
}

// NewTaskService returns a TaskService.  A nil events publisher disables
// task events.
func NewTaskService(tasks TaskStore, events Publisher, log *slog.Logger) *TaskService {
	if events == nil {
		events = queue.Nop{}
	}
	return &TaskService{tasks: tasks, events: events, log: log, now: time.Now}
}

// decorate fills the derived isOverdue flag.
func (s *TaskService) decorate(now time.Time, ts ...*model.Task) {
	for _, t := range ts {
		t.IsOverdue = model.Overdue(t, now)
	}
}

func mapTaskErr(err error) error {
	if errors.Is(err, repository.ErrTaskNotFound) {
		return ErrTaskNotFound
	}
	return err
}

// publish is best effort: a broker failure is logged and never fails the
// request.
func (s *TaskService) publish(ctx context.Context, ev queue.TaskEvent) {
	ev.OccurredAt = s.now().UTC()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("task event not published", "action", ev.Action, "user_id", ev.UserID, "err", err)
	}
}

// List returns one page of the user's tasks.  Unset paging falls back to
// page 1 and the default page size.
func (s *TaskService) List(ctx context.Context, userID string, q TaskQuery) (TaskPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = model.DefaultPageSize
	}
	q.Limit = min(q.Limit, model.MaxPageSize)
	if q.Page-1 > math.MaxInt/q.Limit {
		q.Page = 1
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	tasks, total, err := s.tasks.List(ctx, model.TaskFilter{
		UserID:    userID,
		Completed: q.Completed,
		Priority:  q.Priority,
		Category:  q.Category,
		Sort:      q.Sort,
		Offset:    (q.Page - 1) * q.Limit,
		Limit:     q.Limit,
	})
	if err != nil {
		return TaskPage{}, err
	}
	s.decorate(s.now().UTC(), tasks...)
	return TaskPage{Tasks: tasks, Total: total, Page: q.Page, Pages: (total + q.Limit - 1) / q.Limit}, nil
}

// ListByPriority returns every task with the given priority, newest first.
func (s *TaskService) ListByPriority(ctx context.Context, userID, priority string) ([]*model.Task, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	tasks, _, err := s.tasks.List(ctx, model.TaskFilter{
		UserID:   userID,
		Priority: priority,
		Sort:     []model.SortField{{Field: "createdAt", Desc: true}},
	})
	if err != nil {
		return nil, err
	}
	s.decorate(s.now().UTC(), tasks...)
	return tasks, nil
}

// Get returns a task owned by userID.
func (s *TaskService) Get(ctx context.Context, userID, id string) (*model.Task, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	t, err := s.tasks.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, mapTaskErr(err)
	}
	s.decorate(s.now().UTC(), t)
	return t, nil
}

// Create stores a new task, defaulting priority to medium and category to
// general.
func (s *TaskService) Create(ctx context.Context, userID string, d model.TaskDraft) (*model.Task, error) {
	now := s.now().UTC()
	t := &model.Task{
		ID:       uuid.NewString(),
		UserID:   userID,
		Text:     d.Text,
		Priority: d.Priority,
		DueDate:  d.DueDate,
		Category: d.Category,
		Order:    d.Order,
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if t.Category == "" {
		t.Category = model.DefaultCategory
	}
	model.ApplyCompletion(t, false, now)
	model.Touch(t, now)

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, err
	}
	s.decorate(now, t)
	s.publish(ctx, queue.TaskEvent{Action: queue.ActionCreated, UserID: userID, TaskID: t.ID})
	return t, nil
}

// Update applies p to the caller's task.  completedAt follows the
// completed flag.
func (s *TaskService) Update(ctx context.Context, userID, id string, p model.TaskPatch) (*model.Task, error) {
	return s.mutate(ctx, userID, id, queue.ActionUpdated, p.Apply)
}

// Toggle flips the completed flag.
func (s *TaskService) Toggle(ctx context.Context, userID, id string) (*model.Task, error) {
	return s.mutate(ctx, userID, id, queue.ActionToggled, func(t *model.Task) {
		t.Completed = !t.Completed
	})
}

func (s *TaskService) mutate(ctx context.Context, userID, id, action string, change func(*model.Task)) (*model.Task, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	t, err := s.tasks.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, mapTaskErr(err)
	}
	now := s.now().UTC()
	was := t.Completed
	change(t)
	model.ApplyCompletion(t, was, now)
	model.Touch(t, now)
	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, mapTaskErr(err)
	}
	s.decorate(now, t)
	completed := t.Completed
	s.publish(ctx, queue.TaskEvent{Action: action, UserID: userID, TaskID: t.ID, Completed: &completed})
	return t, nil
}

// Delete removes a task owned by userID.
func (s *TaskService) Delete(ctx context.Context, userID, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	if err := s.tasks.Delete(ctx, id, userID); err != nil {
		return mapTaskErr(err)
	}
	s.publish(ctx, queue.TaskEvent{Action: queue.ActionDeleted, UserID: userID, TaskID: id})
	return nil
}

// DeleteCompleted removes all of the caller's completed tasks and returns
// how many were removed.
func (s *TaskService) DeleteCompleted(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	n, err := s.tasks.DeleteCompleted(ctx, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.publish(ctx, queue.TaskEvent{Action: queue.ActionCompletedCleared, UserID: userID, Count: n})
	}
	return n, nil
}

// Stats aggregates the user's tasks.
func (s *TaskService) Stats(ctx context.Context, userID string) (model.TaskStats, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return s.tasks.Stats(ctx, userID, s.now().UTC())
}
