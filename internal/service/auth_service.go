package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/task-manager/internal/model"
	"github.com/iliyamo/task-manager/internal/repository"
	"github.com/iliyamo/task-manager/internal/utils"
)

// UserStore is the credential store.  repository.UserRepo and
// memstore.Users implement it.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, id, name, email string, now time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time, refreshHash string) error
	Deactivate(ctx context.Context, id string, now time.Time) error
	SetRefreshToken(ctx context.Context, userID, tokenHash string) error
	RotateRefreshToken(ctx context.Context, userID, oldHash, newHash string) (bool, error)
}

// Tokens issues and verifies JWTs; *utils.TokenService implements it.
type Tokens interface {
	IssueAccessToken(userID string) (utils.IssuedToken, error)
	IssueRefreshToken(userID string) (utils.IssuedToken, error)
	Verify(raw string, kind utils.TokenKind) (utils.Claims, error)
}

// Session is the result of every operation that issues a token pair.
type Session struct {
	User    model.Profile
	Access  utils.IssuedToken
	Refresh utils.IssuedToken
}

// AuthService runs the account lifecycle: register, login, refresh
// rotation, logout, profile and password changes, deactivation.
type AuthService struct {
	users      UserStore
	tokens     Tokens
	bcryptCost int
	log        *slog.Logger
	now        func() time.Time
}

// NewAuthService returns an AuthService hashing passwords at bcryptCost.
func NewAuthService(users UserStore, tokens Tokens, bcryptCost int, log *slog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, bcryptCost: bcryptCost, log: log, now: time.Now}
}

func (s *AuthService) issuePair(userID string) (access, refresh utils.IssuedToken, err error) {
	if access, err = s.tokens.IssueAccessToken(userID); err != nil {
		return access, refresh, fmt.Errorf("issue access token: %w", err)
	}
	if refresh, err = s.tokens.IssueRefreshToken(userID); err != nil {
		return access, refresh, fmt.Errorf("issue refresh token: %w", err)
	}
	return access, refresh, nil
}

// Register creates an active user with the default role and signs it in.
// name and email are expected to be normalized already.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (Session, error) {
	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return Session{}, err
	}
	now := s.now().UTC()
	u := &model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	access, refresh, err := s.issuePair(u.ID)
	if err != nil {
		return Session{}, err
	}
	u.RefreshTokenHash = utils.HashToken(refresh.Token)

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return Session{}, ErrDuplicateEmail
		}
		return Session{}, err
	}
	s.log.Info("user registered", "user_id", u.ID)
	return Session{User: u.Profile(), Access: access, Refresh: refresh}, nil
}

// Login checks the password before the active flag, so an inactive
// account is only revealed to someone who knows its password.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		utils.BurnPasswordCheck(password, s.bcryptCost)
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return Session{}, ErrAccountInactive
	}

	access, refresh, err := s.issuePair(u.ID)
	if err != nil {
		return Session{}, err
	}
	if err := s.users.SetRefreshToken(ctx, u.ID, utils.HashToken(refresh.Token)); err != nil {
		return Session{}, err
	}
	return Session{User: u.Profile(), Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a refresh token for a new pair.  The presented token
// must be the one currently stored for its user; after a successful call
// it is no longer accepted.
func (s *AuthService) Refresh(ctx context.Context, raw string) (Session, error) {
	if raw == "" {
		return Session{}, ErrInvalidRefreshToken
	}
	claims, err := s.tokens.Verify(raw, utils.RefreshKind)
	if err != nil {
		return Session{}, ErrInvalidRefreshToken
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	u, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return Session{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return Session{}, err
	}
	oldHash := utils.HashToken(raw)
	if !u.IsActive || u.RefreshTokenHash == "" || u.RefreshTokenHash != oldHash {
		s.log.Warn("refresh token rejected", "user_id", u.ID, "active", u.IsActive)
		return Session{}, ErrInvalidRefreshToken
	}

	access, refresh, err := s.issuePair(u.ID)
	if err != nil {
		return Session{}, err
	}
	swapped, err := s.users.RotateRefreshToken(ctx, u.ID, oldHash, utils.HashToken(refresh.Token))
	if err != nil {
		return Session{}, err
	}
	if !swapped {
		return Session{}, ErrInvalidRefreshToken
	}
	return Session{User: u.Profile(), Access: access, Refresh: refresh}, nil
}

// Logout drops the stored refresh token.  Calling it twice is harmless.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return s.users.SetRefreshToken(ctx, userID, "")
}

// Me returns the profile of an active user.
func (s *AuthService) Me(ctx context.Context, userID string) (model.Profile, error) {
	u, err := s.activeUser(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}
	return u.Profile(), nil
}

func (s *AuthService) activeUser(ctx context.Context, userID string) (*model.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrUnauthenticated
	}
	return u, nil
}

// UpdateProfile changes name and/or email.  Nil arguments keep the current
// value.  The password hash is not touched.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, name, email *string) (model.Profile, error) {
	u, err := s.activeUser(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}
	if name != nil {
		u.Name = *name
	}
	if email != nil {
		u.Email = *email
	}
	u.UpdatedAt = s.now().UTC()

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	switch err := s.users.UpdateProfile(ctx, u.ID, u.Name, u.Email, u.UpdatedAt); {
	case errors.Is(err, repository.ErrEmailExists):
		return model.Profile{}, ErrDuplicateEmail
	case errors.Is(err, repository.ErrUserNotFound):
		return model.Profile{}, ErrUnauthenticated
	case err != nil:
		return model.Profile{}, err
	}
	return u.Profile(), nil
}

// UpdatePassword rehashes the password and returns a fresh pair.  The
// change time is backdated one second: tokens carry second-precision iat,
// and the pair issued here must not count as older than the change.
func (s *AuthService) UpdatePassword(ctx context.Context, userID, current, next string) (Session, error) {
	u, err := s.activeUser(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, current) {
		return Session{}, ErrInvalidCurrentPassword
	}
	hash, err := utils.HashPassword(next, s.bcryptCost)
	if err != nil {
		return Session{}, err
	}
	access, refresh, err := s.issuePair(u.ID)
	if err != nil {
		return Session{}, err
	}
	changedAt := s.now().UTC().Add(-time.Second)

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	if err := s.users.UpdatePassword(ctx, u.ID, hash, changedAt, utils.HashToken(refresh.Token)); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Session{}, ErrUnauthenticated
		}
		return Session{}, err
	}
	s.log.Info("password changed", "user_id", u.ID)
	return Session{User: u.Profile(), Access: access, Refresh: refresh}, nil
}

// Deactivate soft-deletes the account.  Existing access tokens stop
// working at the session middleware; the refresh token is dropped.
func (s *AuthService) Deactivate(ctx context.Context, userID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	if err := s.users.Deactivate(ctx, userID, s.now().UTC()); err != nil {
		return err
	}
	s.log.Info("account deactivated", "user_id", userID)
	return nil
}
