package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-manager/internal/middleware"
	"github.com/iliyamo/task-manager/internal/service"
	"github.com/iliyamo/task-manager/internal/utils"
	"github.com/iliyamo/task-manager/internal/validation"
)

// envelope is the shape of every JSON response.
type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Errors  validation.Errors `json:"errors,omitempty"`
}

// listEnvelope adds paging counters next to data.
type listEnvelope struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
	Total   int  `json:"total"`
	Page    int  `json:"page"`
	Pages   int  `json:"pages"`
	Data    any  `json:"data"`
}

type countEnvelope struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
	Data    any  `json:"data"`
}

func ok(c echo.Context, status int, msg string, data any) error {
	return c.JSON(status, envelope{Success: true, Message: msg, Data: data})
}

// errorStatus maps service and token failures to a status and message.
var errorStatus = []struct {
	err     error
	status  int
	message string
}{
	{service.ErrDuplicateEmail, http.StatusBadRequest, "User with this email already exists"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
	{service.ErrAccountInactive, http.StatusUnauthorized, "Your account has been deactivated. Please contact support."},
	{service.ErrInvalidRefreshToken, http.StatusUnauthorized, "Invalid or expired refresh token"},
	{service.ErrInvalidCurrentPassword, http.StatusUnauthorized, "Current password is incorrect"},
	{service.ErrUnauthenticated, http.StatusUnauthorized, "Not authorized"},
	{utils.ErrTokenExpired, http.StatusUnauthorized, "Token expired"},
	{utils.ErrTokenInvalid, http.StatusUnauthorized, "Invalid token"},
	{service.ErrTaskNotFound, http.StatusNotFound, "Task not found"},
}

// NewHTTPErrorHandler renders every error returned by a handler or
// middleware in the response envelope.  Errors it does not recognize are
// logged and reported as a generic 500.
func NewHTTPErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := classify(err, c)
		if status == http.StatusInternalServerError {
			log.Error("request failed",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"err", err)
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Error("write error response", "err", err)
		}
	}
}

func classify(err error, c echo.Context) (int, envelope) {
	var (
		verr validation.Errors
		aerr *middleware.AuthError
		herr *echo.HTTPError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, envelope{Message: verr.Error(), Errors: verr}
	case errors.As(err, &aerr):
		return http.StatusUnauthorized, envelope{Message: aerr.Message}
	case errors.As(err, &herr):
		return herr.Code, envelope{Message: httpErrorMessage(herr, c)}
	}
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			return m.status, envelope{Message: m.message}
		}
	}
	return http.StatusInternalServerError, envelope{Message: "Internal server error"}
}

func httpErrorMessage(he *echo.HTTPError, c echo.Context) string {
	if he == echo.ErrNotFound {
		return fmt.Sprintf("Not found - %s", c.Request().URL.Path)
	}
	if msg, ok := he.Message.(string); ok && msg != "" {
		return msg
	}
	return http.StatusText(he.Code)
}

// badRequest reports an unreadable body.
func badRequest() error {
	return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
}

// caller returns the identity stored by middleware.SessionAuth.
func caller(c echo.Context) (middleware.Identity, error) {
	id, ok := middleware.IdentityFrom(c.Request().Context())
	if !ok {
		return middleware.Identity{}, service.ErrUnauthenticated
	}
	return id, nil
}
