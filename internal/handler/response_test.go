package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/task-manager/internal/middleware"
	"github.com/iliyamo/task-manager/internal/service"
	"github.com/iliyamo/task-manager/internal/utils"
	"github.com/iliyamo/task-manager/internal/validation"
)

func renderError(t *testing.T, method string, err error) (*httptest.ResponseRecorder, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	e := echo.New()
	req := httptest.NewRequest(method, "/api/v1/tasks/x", nil)
	rec := httptest.NewRecorder()
	NewHTTPErrorHandler(slog.New(slog.NewTextHandler(&logs, nil)))(err, e.NewContext(req, rec))
	return rec, &logs
}

func TestHTTPErrorHandler(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", validation.Errors{{Field: "text", Message: "Task text is required"}}, http.StatusBadRequest,
			`{"success":false,"message":"Task text is required","errors":[{"field":"text","message":"Task text is required"}]}`},
		{"auth", &middleware.AuthError{Message: "Token expired"}, http.StatusUnauthorized,
			`{"success":false,"message":"Token expired"}`},
		{"wrapped sentinel", errors.Join(errors.New("ctx"), service.ErrTaskNotFound), http.StatusNotFound,
			`{"success":false,"message":"Task not found"}`},
		{"duplicate", service.ErrDuplicateEmail, http.StatusBadRequest,
			`{"success":false,"message":"User with this email already exists"}`},
		{"token", utils.ErrTokenInvalid, http.StatusUnauthorized,
			`{"success":false,"message":"Invalid token"}`},
		{"route", echo.ErrNotFound, http.StatusNotFound,
			`{"success":false,"message":"Not found - /api/v1/tasks/x"}`},
		{"http", echo.NewHTTPError(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge,
			`{"success":false,"message":"Request Entity Too Large"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, logs := renderError(t, http.MethodGet, tc.err)
			assert.Equal(t, tc.status, rec.Code)
			assert.JSONEq(t, tc.body, rec.Body.String())
			assert.Empty(t, logs.String())
		})
	}
}

func TestHTTPErrorHandlerHidesInternalErrors(t *testing.T) {
	rec, logs := renderError(t, http.MethodGet, errors.New("dial tcp: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Internal server error"}`, rec.Body.String())
	assert.Contains(t, logs.String(), "connection refused")

	rec, _ = renderError(t, http.MethodHead, service.ErrTaskNotFound)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestCookies(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	k := Cookies{Secure: true, now: func() time.Time { return now }}
	sess := service.Session{
		Access:  utils.IssuedToken{Token: "a", ExpiresAt: now.Add(15 * time.Minute)},
		Refresh: utils.IssuedToken{Token: "r", ExpiresAt: now.Add(7 * 24 * time.Hour)},
	}

	rec := httptest.NewRecorder()
	k.Set(echo.New().NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec), sess)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)

	access, refresh := cookies[0], cookies[1]
	assert.Equal(t, middleware.AccessCookie, access.Name)
	assert.Equal(t, 900, access.MaxAge)
	assert.Equal(t, "/", access.Path)
	assert.Equal(t, RefreshCookie, refresh.Name)
	assert.Equal(t, 7*24*3600, refresh.MaxAge)
	assert.Equal(t, "/api/v1/auth/refresh", refresh.Path)
	for _, ck := range cookies {
		assert.True(t, ck.HttpOnly)
		assert.True(t, ck.Secure)
		assert.Equal(t, http.SameSiteStrictMode, ck.SameSite)
	}

	rec = httptest.NewRecorder()
	NewCookies(false).Clear(echo.New().NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec))
	for _, ck := range rec.Result().Cookies() {
		assert.Empty(t, ck.Value)
		assert.Equal(t, -1, ck.MaxAge)
		assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)
	}
}
