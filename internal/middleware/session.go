package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-manager/internal/model"
	"github.com/iliyamo/task-manager/internal/repository"
	"github.com/iliyamo/task-manager/internal/service"
	"github.com/iliyamo/task-manager/internal/utils"
)

// AccessCookie is the cookie carrying the access token for browser clients.
const AccessCookie = "accessToken"

// Identity is the authenticated caller.  It is immutable once stored.
type Identity struct {
	UserID string
	Name   string
	Email  string
	Role   string
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller stored by SessionAuth.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// AccessVerifier validates access tokens; *utils.TokenService implements it.
type AccessVerifier interface {
	Verify(raw string, kind utils.TokenKind) (utils.Claims, error)
}

// UserLookup resolves a token subject to its stored user.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// SessionAuth requires a valid access token, taken from the Authorization
// bearer header or else the access cookie.  Tokens of unknown or inactive
// users, and tokens issued before the last password change, are refused.
func SessionAuth(tokens AccessVerifier, users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return unauthenticated("Not authorized, no token")
			}
			claims, err := tokens.Verify(raw, utils.AccessKind)
			if err != nil {
				if errors.Is(err, utils.ErrTokenExpired) {
					return unauthenticated("Token expired")
				}
				return unauthenticated("Not authorized, token failed")
			}

			ctx := c.Request().Context()
			u, err := users.GetByID(ctx, claims.UserID)
			switch {
			case errors.Is(err, repository.ErrUserNotFound):
				return unauthenticated("User no longer exists")
			case err != nil:
				return err
			case !u.IsActive:
				return unauthenticated("Your account has been deactivated")
			case u.ChangedPasswordAfter(claims.IssuedAt):
				return unauthenticated("Password recently changed. Please log in again")
			}

			id := Identity{UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
			c.SetRequest(c.Request().WithContext(WithIdentity(ctx, id)))
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		if raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")); raw != "" {
			return raw
		}
	}
	if ck, err := c.Cookie(AccessCookie); err == nil {
		return ck.Value
	}
	return ""
}

// AuthError is an authentication failure with a client-facing message.  It
// unwraps to service.ErrUnauthenticated.
type AuthError struct{ Message string }

func (e *AuthError) Error() string { return e.Message }
func (e *AuthError) Unwrap() error { return service.ErrUnauthenticated }

func unauthenticated(msg string) error { return &AuthError{Message: msg} }

// userID returns the caller's id for cache and rate-limit keys, "anon" when
// the request is not authenticated.
func userID(c echo.Context) string {
	if id, ok := IdentityFrom(c.Request().Context()); ok && id.UserID != "" {
		return id.UserID
	}
	return "anon"
}
