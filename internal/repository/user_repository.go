package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/task-manager/internal/model"
)

// UserRepo mirrors the 'users' table.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo returns a UserRepo backed by db.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,email,password_hash,role,is_active,refresh_token_hash,password_changed_at,created_at,updated_at"

// Create inserts u.  ID, PasswordHash and timestamps must already be set.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id,name,email,password_hash,role,is_active,refresh_token_hash,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)",
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.IsActive, nullString(u.RefreshTokenHash), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*model.User, error) {
	var (
		u         model.User
		refresh   sql.NullString
		pwChanged sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, q, arg).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&u.IsActive, &refresh, &pwChanged, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	u.RefreshTokenHash = refresh.String
	if pwChanged.Valid {
		t := pwChanged.Time
		u.PasswordChangedAt = &t
	}
	return &u, nil
}

// UpdateProfile writes name and email.  The password hash is untouched.
func (r *UserRepo) UpdateProfile(ctx context.Context, id, name, email string, now time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, email=?, updated_at=? WHERE id=?",
		name, strings.ToLower(strings.TrimSpace(email)), now, id)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("update profile: %w", err)
	}
	return requireRow(res, ErrUserNotFound)
}

// UpdatePassword stores a new hash, the change timestamp and the refresh
// token hash issued alongside it, in one statement.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time, refreshHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, password_changed_at=?, refresh_token_hash=?, updated_at=? WHERE id=?",
		passwordHash, changedAt, nullString(refreshHash), changedAt, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireRow(res, ErrUserNotFound)
}

// Deactivate soft-deletes a user and drops its refresh token.
func (r *UserRepo) Deactivate(ctx context.Context, id string, now time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=0, refresh_token_hash=NULL, updated_at=? WHERE id=?",
		now, id)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	return nil
}

// requireRow maps zero affected rows to notFound.  The DSN sets
// clientFoundRows, so an update matching a row but changing nothing still
// counts as one.
func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
