package repository

import (
	"context"
	"fmt"
)

// Refresh tokens live in a single 'refresh_token_hash' column on users, so
// a user has at most one valid refresh token at any time.

// SetRefreshToken overwrites the stored hash.  An empty hash clears it.
func (r *UserRepo) SetRefreshToken(ctx context.Context, userID, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token_hash=? WHERE id=?",
		nullString(tokenHash), userID)
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// RotateRefreshToken replaces oldHash with newHash only if oldHash is still
// the stored value and the user is active.  It reports whether the swap
// happened; of two concurrent rotations with the same token one loses.
func (r *UserRepo) RotateRefreshToken(ctx context.Context, userID, oldHash, newHash string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token_hash=? WHERE id=? AND refresh_token_hash=? AND is_active=1",
		newHash, userID, oldHash)
	if err != nil {
		return false, fmt.Errorf("rotate refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rotate refresh token: %w", err)
	}
	return n == 1, nil
}
