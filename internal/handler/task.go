package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-manager/internal/service"
	"github.com/iliyamo/task-manager/internal/validation"
)

// TaskHandler serves the task routes.  Every route runs behind
// middleware.SessionAuth and only touches the caller's tasks.
type TaskHandler struct {
	Tasks *service.TaskService
}

// NewTaskHandler returns a handler serving tasks through the given service.
func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{Tasks: tasks}
}

// List handles GET /tasks with filtering, sorting and paging.
func (h *TaskHandler) List(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var in validation.TaskQueryInput
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}
	q, err := validation.TaskQuery(in)
	if err != nil {
		return err
	}
	page, err := h.Tasks.List(c.Request().Context(), id.UserID, q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listEnvelope{
		Success: true,
		Count:   len(page.Tasks),
		Total:   page.Total,
		Page:    page.Page,
		Pages:   page.Pages,
		Data:    page.Tasks,
	})
}

// Stats handles GET /tasks/stats.
func (h *TaskHandler) Stats(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	stats, err := h.Tasks.Stats(c.Request().Context(), id.UserID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", stats)
}

// ByPriority handles GET /tasks/priority/:priority.
func (h *TaskHandler) ByPriority(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	priority := c.Param("priority")
	if err := validation.Priority(priority); err != nil {
		return err
	}
	tasks, err := h.Tasks.ListByPriority(c.Request().Context(), id.UserID, priority)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, countEnvelope{Success: true, Count: len(tasks), Data: tasks})
}

// Create handles POST /tasks.
func (h *TaskHandler) Create(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var req validation.CreateTaskInput
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}
	draft, err := validation.CreateTask(&req)
	if err != nil {
		return err
	}
	task, err := h.Tasks.Create(c.Request().Context(), id.UserID, draft)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "Task created successfully", task)
}

// Get returns one of the caller's tasks.
func (h *TaskHandler) Get(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	taskID := c.Param("id")
	if err := validation.TaskID(taskID); err != nil {
		return err
	}
	task, err := h.Tasks.Get(c.Request().Context(), id.UserID, taskID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", task)
}

// Update applies a partial update to a task.
func (h *TaskHandler) Update(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var req validation.UpdateTaskInput
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}
	patch, err := validation.UpdateTask(c.Param("id"), &req)
	if err != nil {
		return err
	}
	task, err := h.Tasks.Update(c.Request().Context(), id.UserID, c.Param("id"), patch)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Task updated successfully", task)
}

// Toggle flips the completed flag.
func (h *TaskHandler) Toggle(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	taskID := c.Param("id")
	if err := validation.TaskID(taskID); err != nil {
		return err
	}
	task, err := h.Tasks.Toggle(c.Request().Context(), id.UserID, taskID)
	if err != nil {
		return err
	}
	msg := "Task marked as pending"
	if task.Completed {
		msg = "Task marked as completed"
	}
	return ok(c, http.StatusOK, msg, task)
}

// Delete removes a single task.
func (h *TaskHandler) Delete(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	taskID := c.Param("id")
	if err := validation.TaskID(taskID); err != nil {
		return err
	}
	if err := h.Tasks.Delete(c.Request().Context(), id.UserID, taskID); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Task deleted successfully", map[string]any{})
}

// DeleteCompleted removes all of the caller's completed tasks.
func (h *TaskHandler) DeleteCompleted(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	n, err := h.Tasks.DeleteCompleted(c.Request().Context(), id.UserID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, fmt.Sprintf("%d completed task(s) deleted", n),
		map[string]int64{"deletedCount": n})
}
