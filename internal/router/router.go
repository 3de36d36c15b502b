// Package router registers the HTTP routes.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-manager/internal/handler"
)

// RegisterRoutes registers routes that need no session.
func RegisterRoutes(e *echo.Echo, env string) {
	e.GET("/api/health", handler.Health(env))
}

// RegisterAuth mounts the account routes under /api/v1/auth.  Register and
// login share authLimit; the routes after them require a session.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, session, authLimit echo.MiddlewareFunc) {
	g := e.Group("/api/v1/auth")
	g.POST("/register", a.Register, authLimit)
	g.POST("/login", a.Login, authLimit)
	g.POST("/refresh", a.Refresh)

	g.POST("/logout", a.Logout, session)
	g.GET("/me", a.Me, session)
	g.PUT("/profile", a.UpdateProfile, session)
	g.PUT("/password", a.UpdatePassword, session)
	g.DELETE("/account", a.DeleteAccount, session)
}

// RegisterTasks mounts the task routes under /api/v1/tasks, and also
// directly under /api when legacy is set, for clients of the unversioned
// API.  cache runs after session so entries are keyed by user.  Both are
// attached per route, so unknown paths still answer 404.
func RegisterTasks(e *echo.Echo, t *handler.TaskHandler, session, cache echo.MiddlewareFunc, legacy bool) {
	mount(e.Group("/api/v1/tasks"), t, session, cache)
	if legacy {
		mount(e.Group("/api"), t, session, cache)
	}
}

func mount(g *echo.Group, t *handler.TaskHandler, m ...echo.MiddlewareFunc) {
	// static segments before :id
	g.GET("/stats", t.Stats, m...)
	g.DELETE("/completed", t.DeleteCompleted, m...)
	g.GET("/priority/:priority", t.ByPriority, m...)

	g.GET("", t.List, m...)
	g.POST("", t.Create, m...)
	g.GET("/:id", t.Get, m...)
	g.PUT("/:id", t.Update, m...)
	g.DELETE("/:id", t.Delete, m...)
	g.PUT("/:id/toggle", t.Toggle, m...)
}
