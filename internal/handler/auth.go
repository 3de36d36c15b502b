package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-manager/internal/service"
	"github.com/iliyamo/task-manager/internal/validation"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth    *service.AuthService
	Cookies Cookies
}

// NewAuthHandler returns an AuthHandler.
func NewAuthHandler(auth *service.AuthService, cookies Cookies) *AuthHandler {
	return &AuthHandler{Auth: auth, Cookies: cookies}
}

// ----- DTOs -----

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionResp struct {
	User        any    `json:"user,omitempty"`
	AccessToken string `json:"accessToken"`
}

// Register creates an account and signs it in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req validation.RegisterInput
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}
	if err := validation.Register(&req); err != nil {
		return err
	}
	sess, err := h.Auth.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	h.Cookies.Set(c, sess)
	return ok(c, http.StatusCreated, "User registered successfully",
		sessionResp{User: sess.User, AccessToken: sess.Access.Token})
}

// Login checks credentials and sets the session cookies.
func (h *AuthHandler) Login(c echo.Context) error {
	var req validation.LoginInput
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}
	if err := validation.Login(&req); err != nil {
		return err
	}
	sess, err := h.Auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	h.Cookies.Set(c, sess)
	return ok(c, http.StatusOK, "Login successful",
		sessionResp{User: sess.User, AccessToken: sess.Access.Token})
}

// Refresh rotates the refresh token.  The cookie wins over a token sent in
// the body.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := ""
	if ck, err := c.Cookie(RefreshCookie); err == nil {
		raw = ck.Value
	}
	if raw == "" {
		var req refreshReq
		if err := c.Bind(&req); err != nil {
			return badRequest()
		}
		raw = req.RefreshToken
	}
	if raw == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Refresh token not provided")
	}
	sess, err := h.Auth.Refresh(c.Request().Context(), raw)
	if err != nil {
		return err
	}
	h.Cookies.Set(c, sess)
	return ok(c, http.StatusOK, "", sessionResp{AccessToken: sess.Access.Token})
}

// Logout revokes the refresh token and clears both cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	if err := h.Auth.Logout(c.Request().Context(), id.UserID); err != nil {
		return err
	}
	h.Cookies.Clear(c)
	return ok(c, http.StatusOK, "Logged out successfully", nil)
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	profile, err := h.Auth.Me(c.Request().Context(), id.UserID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", map[string]any{"user": profile})
}

// UpdateProfile changes the caller's name and/or email.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var req validation.ProfileInput
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}
	if err := validation.UpdateProfile(&req); err != nil {
		return err
	}
	profile, err := h.Auth.UpdateProfile(c.Request().Context(), id.UserID, req.Name, req.Email)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Profile updated successfully", map[string]any{"user": profile})
}

// UpdatePassword changes the password and issues a fresh session.
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var req validation.PasswordInput
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}
	if err := validation.UpdatePassword(&req); err != nil {
		return err
	}
	sess, err := h.Auth.UpdatePassword(c.Request().Context(), id.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		return err
	}
	h.Cookies.Set(c, sess)
	return ok(c, http.StatusOK, "Password updated successfully", sessionResp{AccessToken: sess.Access.Token})
}

// DeleteAccount deactivates the caller; the row is kept.
func (h *AuthHandler) DeleteAccount(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	if err := h.Auth.Deactivate(c.Request().Context(), id.UserID); err != nil {
		return err
	}
	h.Cookies.Clear(c)
	return ok(c, http.StatusOK, "Account deactivated successfully", nil)
}
