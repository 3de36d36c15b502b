package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-manager/internal/middleware"
	"github.com/iliyamo/task-manager/internal/service"
)

// RefreshCookie carries the refresh token.  Its path limits it to the
// refresh endpoint.
const (
	RefreshCookie     = "refreshToken"
	refreshCookiePath = "/api/v1/auth/refresh"
)

// Cookies writes the session cookies.  Secure selects Secure and
// SameSite=Strict; otherwise SameSite=Lax is used so local development over
// plain HTTP works.
type Cookies struct {
	Secure bool
	now    func() time.Time
}

// NewCookies returns a Cookies writer; secure is set in production.
func NewCookies(secure bool) Cookies { return Cookies{Secure: secure, now: time.Now} }

func (k Cookies) base(name, value, path string, maxAge int) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   k.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if k.Secure {
		ck.SameSite = http.SameSiteStrictMode
	}
	return ck
}

func (k Cookies) maxAge(exp time.Time) int {
	now := time.Now
	if k.now != nil {
		now = k.now
	}
	return max(int(exp.Sub(now()).Seconds()), 1)
}

// Set writes both tokens of s.
func (k Cookies) Set(c echo.Context, s service.Session) {
	c.SetCookie(k.base(middleware.AccessCookie, s.Access.Token, "/", k.maxAge(s.Access.ExpiresAt)))
	c.SetCookie(k.base(RefreshCookie, s.Refresh.Token, refreshCookiePath, k.maxAge(s.Refresh.ExpiresAt)))
}

// Clear expires both cookies on the paths they were set with.
func (k Cookies) Clear(c echo.Context) {
	c.SetCookie(k.base(middleware.AccessCookie, "", "/", -1))
	c.SetCookie(k.base(RefreshCookie, "", refreshCookiePath, -1))
}
