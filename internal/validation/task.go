package validation

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/task-manager/internal/model"
)

const (
	priorityMsg = "Priority must be low, medium, or high"
	dueDateMsg  = "Due date must be a valid date"
	categoryMsg = "Category cannot exceed 50 characters"
	textLenMsg  = "Task text must be between 1 and 500 characters"
)

// CreateTaskInput is the body of POST /tasks.
type CreateTaskInput struct {
	Text     string           `json:"text"`
	Priority Optional[string] `json:"priority"`
	DueDate  Optional[string] `json:"dueDate"`
	Category Optional[string] `json:"category"`
	Order    Optional[int]    `json:"order"`
}

// CreateTask validates in and returns the draft to persist.
func CreateTask(in *CreateTaskInput) (model.TaskDraft, error) {
	var (
		errs  Errors
		draft model.TaskDraft
	)
	draft.Text = strings.TrimSpace(in.Text)
	switch {
	case draft.Text == "":
		errs.add("text", "Task text is required")
	case utf8.RuneCountInString(draft.Text) > 500:
		errs.add("text", textLenMsg)
	}
	if in.Priority.Present() {
		if in.Priority.Invalid || !model.IsPriority(in.Priority.Value) {
			errs.add("priority", priorityMsg)
		} else {
			draft.Priority = in.Priority.Value
		}
	}
	if due, ok := dueDate(&errs, in.DueDate); ok {
		draft.DueDate = due
	}
	if c, ok := category(&errs, in.Category); ok {
		draft.Category = c
	}
	if in.Order.Present() {
		if in.Order.Invalid {
			errs.add("order", "Order must be an integer")
		} else {
			draft.Order = in.Order.Value
		}
	}
	return draft, errs.err()
}

// UpdateTaskInput is the body of PUT /tasks/:id; every key is optional.
type UpdateTaskInput struct {
	Text      Optional[string] `json:"text"`
	Completed Optional[bool]   `json:"completed"`
	Priority  Optional[string] `json:"priority"`
	DueDate   Optional[string] `json:"dueDate"`
	Category  Optional[string] `json:"category"`
	Order     Optional[int]    `json:"order"`
}

// UpdateTask validates a partial update.  Absent and null keys other than
// dueDate are ignored; a null or empty dueDate clears it.
func UpdateTask(id string, in *UpdateTaskInput) (model.TaskPatch, error) {
	var (
		errs  Errors
		patch model.TaskPatch
	)
	if err := TaskID(id); err != nil {
		errs = append(errs, err.(Errors)...)
	}
	if in.Text.Present() {
		v := strings.TrimSpace(in.Text.Value)
		if in.Text.Invalid || v == "" || utf8.RuneCountInString(v) > 500 {
			errs.add("text", textLenMsg)
		} else {
			patch.Text = &v
		}
	}
	if in.Completed.Present() {
		if in.Completed.Invalid {
			errs.add("completed", "Completed must be a boolean")
		} else {
			v := in.Completed.Value
			patch.Completed = &v
		}
	}
	if in.Priority.Present() {
		if in.Priority.Invalid || !model.IsPriority(in.Priority.Value) {
			errs.add("priority", priorityMsg)
		} else {
			v := in.Priority.Value
			patch.Priority = &v
		}
	}
	if in.DueDate.Set {
		if due, ok := dueDate(&errs, in.DueDate); ok {
			patch.DueDateSet = true
			patch.DueDate = due
		} else if in.DueDate.Null || (!in.DueDate.Invalid && strings.TrimSpace(in.DueDate.Value) == "") {
			patch.DueDateSet = true
		}
	}
	if c, ok := category(&errs, in.Category); ok {
		if c == "" {
			c = model.DefaultCategory
		}
		patch.Category = &c
	}
	if in.Order.Present() {
		if in.Order.Invalid {
			errs.add("order", "Order must be an integer")
		} else {
			v := in.Order.Value
			patch.Order = &v
		}
	}
	return patch, errs.err()
}

// dueDate parses a present, non-empty due date.  ok is false when the key
// is absent, null, empty or invalid; invalid values are reported.
func dueDate(errs *Errors, o Optional[string]) (*time.Time, bool) {
	if !o.Present() {
		return nil, false
	}
	if o.Invalid {
		errs.add("dueDate", dueDateMsg)
		return nil, false
	}
	s := strings.TrimSpace(o.Value)
	if s == "" {
		return nil, false
	}
	t, err := ParseDate(s)
	if err != nil {
		errs.add("dueDate", dueDateMsg)
		return nil, false
	}
	return &t, true
}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates, the
// latter read as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func category(errs *Errors, o Optional[string]) (string, bool) {
	if !o.Present() {
		return "", false
	}
	if o.Invalid {
		errs.add("category", categoryMsg)
		return "", false
	}
	c := strings.TrimSpace(o.Value)
	if utf8.RuneCountInString(c) > 50 {
		errs.add("category", categoryMsg)
		return "", false
	}
	return c, true
}

// Priority validates the :priority path segment.
func Priority(p string) error {
	if !model.IsPriority(p) {
		return Errors{{Field: "priority", Message: priorityMsg}}
	}
	return nil
}

// TaskQueryInput holds the raw listing query parameters.
type TaskQueryInput struct {
	Completed string `query:"completed"`
	Priority  string `query:"priority"`
	Category  string `query:"category"`
	Sort      string `query:"sort"`
	Page      string `query:"page"`
	Limit     string `query:"limit"`
}

// TaskQuery parses listing parameters.  sort is a comma separated field
// list, a leading "-" meaning descending.  Limits above MaxPageSize are
// capped rather than rejected.
func TaskQuery(in TaskQueryInput) (model.TaskQuery, error) {
	var errs Errors
	q := model.TaskQuery{Page: 1, Limit: model.DefaultPageSize}

	if v := strings.TrimSpace(in.Completed); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs.add("completed", "Completed must be a boolean")
		} else {
			q.Completed = &b
		}
	}
	if v := strings.TrimSpace(in.Priority); v != "" {
		if !model.IsPriority(v) {
			errs.add("priority", priorityMsg)
		}
		q.Priority = v
	}
	q.Category = strings.TrimSpace(in.Category)

	if v := strings.TrimSpace(in.Sort); v != "" {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			f := model.SortField{Field: strings.TrimPrefix(part, "-"), Desc: strings.HasPrefix(part, "-")}
			if !model.IsSortField(f.Field) {
				errs.add("sort", "Cannot sort by "+f.Field)
				continue
			}
			q.Sort = append(q.Sort, f)
		}
	}
	if len(q.Sort) == 0 {
		q.Sort = []model.SortField{{Field: "createdAt", Desc: true}}
	}

	if v := strings.TrimSpace(in.Page); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs.add("page", "Page must be a positive integer")
		} else {
			q.Page = n
		}
	}
	if v := strings.TrimSpace(in.Limit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs.add("limit", "Limit must be a positive integer")
		} else {
			q.Limit = min(n, model.MaxPageSize)
		}
	}
	// the row offset (page-1)*limit must fit in an int
	if q.Page-1 > math.MaxInt/q.Limit {
		errs.add("page", "Page must be a positive integer")
		q.Page = 1
	}
	return q, errs.err()
}
