// Package service holds the authentication and task business rules.  It
// talks to storage only through the UserStore and TaskStore interfaces.
package service

import (
	"context"
	"errors"
	"time"
)

// Business-rule failures.  The HTTP layer maps each to a status code.
var (
	ErrDuplicateEmail         = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrAccountInactive        = errors.New("account is deactivated")
	ErrInvalidRefreshToken    = errors.New("invalid refresh token")
	ErrInvalidCurrentPassword = errors.New("current password is incorrect")
	ErrUnauthenticated        = errors.New("not authenticated")
	ErrTaskNotFound           = errors.New("task not found")
)

// storeTimeout bounds every store call made on behalf of one request.
const storeTimeout = 5 * time.Second

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, storeTimeout)
}
