package model

import "time"

// Roles stored on a user.  The role is informational; no route checks it.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an application user record as stored in the `users`
// table.  The struct never leaves the server as-is: handlers serialize
// Profile() instead, so PasswordHash and RefreshTokenHash cannot leak.
//
// Fields:
//  ID                – UUID primary key.
//  Name              – display name.
//  Email             – unique lowercase email address.
//  PasswordHash      – bcrypt hash of the password.
//  Role              – user or admin.
//  IsActive          – false once the account is deactivated (soft delete).
//  RefreshTokenHash  – SHA-256 hex of the single outstanding refresh token; empty when logged out.
//  PasswordChangedAt – set on password update; access tokens issued earlier are stale.
//  CreatedAt         – timestamp of creation.
//  UpdatedAt         – timestamp of last update.
type User struct {
	ID                string
	Name              string
	Email             string
	PasswordHash      string
	Role              string
	IsActive          bool
	RefreshTokenHash  string
	PasswordChangedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Profile is the public view of a user.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Profile returns the public view of u.
func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

// ChangedPasswordAfter reports whether the password was changed after a
// token issued at issuedAt.  Comparison is at second precision, matching
// the JWT iat claim.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < u.PasswordChangedAt.Unix()
}
