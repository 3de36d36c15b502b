package validation

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/task-manager/internal/model"
)

func fields(t *testing.T, err error) []string {
	t.Helper()
	var ve Errors
	require.True(t, errors.As(err, &ve), "expected validation.Errors, got %v", err)
	out := make([]string, len(ve))
	for i, fe := range ve {
		out[i] = fe.Field
	}
	return out
}

func TestRegister(t *testing.T) {
	in := RegisterInput{Name: "  Ann  ", Email: " Ann@Example.COM ", Password: "Secret1", ConfirmPassword: "Secret1"}
	require.NoError(t, Register(&in))
	assert.Equal(t, "Ann", in.Name)
	assert.Equal(t, "ann@example.com", in.Email)

	cases := []struct {
		name string
		in   RegisterInput
		want []string
	}{
		{"empty", RegisterInput{}, []string{"name", "email", "password", "confirmPassword"}},
		{"short name", RegisterInput{Name: "A", Email: "a@b.co", Password: "Secret1", ConfirmPassword: "Secret1"}, []string{"name"}},
		{"bad email", RegisterInput{Name: "Ann", Email: "nope", Password: "Secret1", ConfirmPassword: "Secret1"}, []string{"email"}},
		{"weak password", RegisterInput{Name: "Ann", Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret1"}, []string{"password"}},
		{"short password", RegisterInput{Name: "Ann", Email: "a@b.co", Password: "Se1", ConfirmPassword: "Se1"}, []string{"password"}},
		{"mismatch", RegisterInput{Name: "Ann", Email: "a@b.co", Password: "Secret1", ConfirmPassword: "Secret2"}, []string{"confirmPassword"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := tc.in
			assert.Equal(t, tc.want, fields(t, Register(&in)))
		})
	}
}

func TestErrorsMessageJoin(t *testing.T) {
	in := RegisterInput{Name: "Ann", Email: "bad", Password: "Secret1", ConfirmPassword: "nope"}
	err := Register(&in)
	assert.Equal(t, "Please provide a valid email. Passwords do not match", err.Error())
}

func TestLogin(t *testing.T) {
	in := LoginInput{Email: "ANN@example.com", Password: "x"}
	require.NoError(t, Login(&in))
	assert.Equal(t, "ann@example.com", in.Email)

	assert.Equal(t, []string{"email", "password"}, fields(t, Login(&LoginInput{})))
}

func TestUpdateProfile(t *testing.T) {
	require.NoError(t, UpdateProfile(&ProfileInput{}))

	name, email := " Bob ", "BOB@Example.com"
	in := ProfileInput{Name: &name, Email: &email}
	require.NoError(t, UpdateProfile(&in))
	assert.Equal(t, "Bob", *in.Name)
	assert.Equal(t, "bob@example.com", *in.Email)

	bad := "x"
	assert.Equal(t, []string{"name", "email"}, fields(t, UpdateProfile(&ProfileInput{Name: &bad, Email: &bad})))
}

func TestUpdatePassword(t *testing.T) {
	require.NoError(t, UpdatePassword(&PasswordInput{CurrentPassword: "old", NewPassword: "Newpass1", ConfirmNewPassword: "Newpass1"}))
	assert.Equal(t, []string{"currentPassword", "newPassword", "confirmNewPassword"}, fields(t, UpdatePassword(&PasswordInput{})))
}

func decode(t *testing.T, body string, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(body), v))
}

func TestCreateTask(t *testing.T) {
	var in CreateTaskInput
	decode(t, `{"text":"  Buy milk ","priority":"high","dueDate":"2030-01-02","category":" home ","order":3}`, &in)
	d, err := CreateTask(&in)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", d.Text)
	assert.Equal(t, "high", d.Priority)
	assert.Equal(t, "home", d.Category)
	assert.Equal(t, 3, d.Order)
	require.NotNil(t, d.DueDate)
	assert.Equal(t, time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC), *d.DueDate)

	var empty CreateTaskInput
	decode(t, `{"text":"x","dueDate":""}`, &empty)
	d, err = CreateTask(&empty)
	require.NoError(t, err)
	assert.Nil(t, d.DueDate)
	assert.Empty(t, d.Priority)

	var bad CreateTaskInput
	decode(t, `{"text":"","priority":"urgent","dueDate":"tomorrow","category":"`+strings.Repeat("c", 51)+`","order":"x"}`, &bad)
	_, err = CreateTask(&bad)
	assert.Equal(t, []string{"text", "priority", "dueDate", "category", "order"}, fields(t, err))

	long := CreateTaskInput{Text: strings.Repeat("t", 501)}
	_, err = CreateTask(&long)
	assert.Equal(t, []string{"text"}, fields(t, err))
}

const validID = "0b0e9a3c-7fd4-4a47-9b1c-4c1a5f1e2d3b"

func TestUpdateTask(t *testing.T) {
	var in UpdateTaskInput
	decode(t, `{"completed":true,"dueDate":null}`, &in)
	p, err := UpdateTask(validID, &in)
	require.NoError(t, err)
	require.NotNil(t, p.Completed)
	assert.True(t, *p.Completed)
	assert.True(t, p.DueDateSet)
	assert.Nil(t, p.DueDate)
	assert.Nil(t, p.Text)

	var keep UpdateTaskInput
	decode(t, `{"text":"new"}`, &keep)
	p, err = UpdateTask(validID, &keep)
	require.NoError(t, err)
	assert.False(t, p.DueDateSet)
	assert.Equal(t, "new", *p.Text)

	var due UpdateTaskInput
	decode(t, `{"dueDate":"2030-05-06T10:00:00+02:00"}`, &due)
	p, err = UpdateTask(validID, &due)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, 5, 6, 8, 0, 0, 0, time.UTC), *p.DueDate)

	var bad UpdateTaskInput
	decode(t, `{"text":" ","completed":"yes","priority":"x","dueDate":"soon"}`, &bad)
	_, err = UpdateTask("not-a-uuid", &bad)
	assert.Equal(t, []string{"id", "text", "completed", "priority", "dueDate"}, fields(t, err))
}

func TestTaskIDAndPriority(t *testing.T) {
	assert.NoError(t, TaskID(validID))
	assert.Error(t, TaskID("507f1f77bcf86cd799439011"))
	assert.NoError(t, Priority(model.PriorityLow))
	assert.Error(t, Priority("HIGH"))
}

func TestTaskQuery(t *testing.T) {
	q, err := TaskQuery(TaskQueryInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, model.DefaultPageSize, q.Limit)
	assert.Equal(t, []model.SortField{{Field: "createdAt", Desc: true}}, q.Sort)

	q, err = TaskQuery(TaskQueryInput{Completed: "false", Priority: "low", Sort: "-priority, dueDate", Page: "3", Limit: "500"})
	require.NoError(t, err)
	require.NotNil(t, q.Completed)
	assert.False(t, *q.Completed)
	assert.Equal(t, []model.SortField{{Field: "priority", Desc: true}, {Field: "dueDate"}}, q.Sort)
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, model.MaxPageSize, q.Limit)

	_, err = TaskQuery(TaskQueryInput{Completed: "maybe", Sort: "password", Page: "0", Limit: "-1"})
	assert.Equal(t, []string{"completed", "sort", "page", "limit"}, fields(t, err))
}

func TestTaskQueryRejectsOverflowingPage(t *testing.T) {
	_, err := TaskQuery(TaskQueryInput{Page: "4611686018427387904", Limit: "4"})
	assert.Equal(t, []string{"page"}, fields(t, err))

	_, err = TaskQuery(TaskQueryInput{Page: "9223372036854775807"})
	assert.Equal(t, []string{"page"}, fields(t, err))

	q, err := TaskQuery(TaskQueryInput{Page: "1000000", Limit: "100"})
	require.NoError(t, err)
	assert.Equal(t, 1000000, q.Page)
}

func TestOptionalPresent(t *testing.T) {
	var in UpdateTaskInput
	require.NoError(t, json.Unmarshal([]byte(`{"text":null,"completed":"yes","order":3}`), &in))
	assert.False(t, in.Priority.Present())
	assert.False(t, in.Text.Present())
	assert.True(t, in.Text.Set)
	assert.True(t, in.Completed.Present())
	assert.True(t, in.Completed.Invalid)
	assert.True(t, in.Order.Present())
	assert.Equal(t, 3, in.Order.Value)
}
