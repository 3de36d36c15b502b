package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService() *TokenService {
	return NewTokenService(TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	})
}

func TestNewTokenService_Defaults(t *testing.T) {
	s := NewTokenService(TokenConfig{AccessSecret: "a", RefreshSecret: "b"})
	assert.Equal(t, 15*time.Minute, s.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, s.RefreshTTL())
}

func TestIssueAndVerify_Access(t *testing.T) {
	s := newTestTokenService()

	tok, err := s.IssueAccessToken("user-123")
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)

	expected := time.Now().Add(15 * time.Minute)
	assert.WithinDuration(t, expected, tok.ExpiresAt, time.Minute)

	claims, err := s.Verify(tok.Token, AccessKind)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.WithinDuration(t, time.Now(), claims.IssuedAt, time.Minute)
}

func TestIssueAndVerify_Refresh(t *testing.T) {
	s := newTestTokenService()

	tok, err := s.IssueRefreshToken("user-123")
	require.NoError(t, err)

	claims, err := s.Verify(tok.Token, RefreshKind)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), tok.ExpiresAt, time.Minute)
}

func TestVerify_KindsUseDistinctSecrets(t *testing.T) {
	s := newTestTokenService()

	access, err := s.IssueAccessToken("user-123")
	require.NoError(t, err)
	refresh, err := s.IssueRefreshToken("user-123")
	require.NoError(t, err)

	_, err = s.Verify(access.Token, RefreshKind)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = s.Verify(refresh.Token, AccessKind)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_Expired(t *testing.T) {
	s := newTestTokenService()
	s.now = func() time.Time { return time.Now().Add(-time.Hour) }

	tok, err := s.IssueAccessToken("user-123")
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.Verify(tok.Token, AccessKind)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_WrongSecret(t *testing.T) {
	s1 := newTestTokenService()
	s2 := NewTokenService(TokenConfig{AccessSecret: "other", RefreshSecret: "other-refresh"})

	tok, err := s1.IssueAccessToken("user-123")
	require.NoError(t, err)

	_, err = s2.Verify(tok.Token, AccessKind)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_Malformed(t *testing.T) {
	s := newTestTokenService()
	for _, raw := range []string{"", "not-a-valid-token", "a.b.c"} {
		_, err := s.Verify(raw, AccessKind)
		assert.ErrorIs(t, err, ErrTokenInvalid, raw)
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	s := newTestTokenService()
	claims := jwt.MapClaims{"id": "user-123", "exp": time.Now().Add(time.Hour).Unix()}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("access-secret"))
	require.NoError(t, err)

	_, err = s.Verify(raw, AccessKind)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_RequiresUserID(t *testing.T) {
	s := newTestTokenService()
	claims := jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("access-secret"))
	require.NoError(t, err)

	_, err = s.Verify(raw, AccessKind)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestIssue_TokensAreUnique(t *testing.T) {
	s := newTestTokenService()
	a, err := s.IssueRefreshToken("user-123")
	require.NoError(t, err)
	b, err := s.IssueRefreshToken("user-123")
	require.NoError(t, err)
	assert.NotEqual(t, a.Token, b.Token)
}

func TestHashToken(t *testing.T) {
	h := HashToken("raw-token")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashToken("raw-token"))
	assert.NotEqual(t, h, HashToken("raw-token2"))
	assert.Equal(t, strings.ToLower(h), h)
}
