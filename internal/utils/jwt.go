package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256" // SHA‑256 hashing for stored refresh tokens
	"encoding/hex"  // hex encoding of the digest
	"errors"        // sentinel errors for verification failures
	"time"          // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"        // random token ids
)

// Verification failures.  Every failure that is not an expiry is reported
// as ErrTokenInvalid.
var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// TokenKind selects which secret signs or verifies a token.
type TokenKind int

const (
	AccessKind TokenKind = iota
	RefreshKind
)

func (k TokenKind) String() string {
	if k == RefreshKind {
		return "refresh"
	}
	return "access"
}

// TokenConfig carries the secret material and lifetimes for a TokenService.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// IssuedToken is a signed JWT along with its expiry.
type IssuedToken struct {
	Token     string    // the serialized JWT string
	ExpiresAt time.Time // the UTC expiration time
}

// Claims is what a verified token asserts.
type Claims struct {
	UserID   string
	IssuedAt time.Time
}

// tokenClaims is the JWT payload: {id, iat, exp, jti}.  The random jti keeps
// two tokens for the same user distinct even inside one second.
type tokenClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies access and refresh tokens.  It performs
// no I/O; the two kinds are signed with independent secrets.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenService builds a TokenService.  Zero lifetimes fall back to 15
// minutes for access tokens and 7 days for refresh tokens.
func NewTokenService(cfg TokenConfig) *TokenService {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}
}

// AccessTTL returns the lifetime of issued access tokens.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL returns the lifetime of issued refresh tokens.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// IssueAccessToken signs an access token for userID.
func (s *TokenService) IssueAccessToken(userID string) (IssuedToken, error) {
	return s.issue(userID, s.accessSecret, s.accessTTL)
}

// IssueRefreshToken signs a refresh token for userID.
func (s *TokenService) IssueRefreshToken(userID string) (IssuedToken, error) {
	return s.issue(userID, s.refreshSecret, s.refreshTTL)
}

func (s *TokenService) issue(userID string, secret []byte, ttl time.Duration) (IssuedToken, error) {
	now := s.now().UTC()
	exp := now.Add(ttl)
	claims := tokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: signed, ExpiresAt: exp}, nil
}

// Verify checks the signature and expiry of raw under the secret for kind.
func (s *TokenService) Verify(raw string, kind TokenKind) (Claims, error) {
	secret := s.accessSecret
	if kind == RefreshKind {
		secret = s.refreshSecret
	}
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrTokenExpired
	case err != nil:
		return Claims{}, ErrTokenInvalid
	case claims.UserID == "":
		return Claims{}, ErrTokenInvalid
	}
	var iat time.Time
	if claims.IssuedAt != nil {
		iat = claims.IssuedAt.Time
	}
	return Claims{UserID: claims.UserID, IssuedAt: iat}, nil
}

// HashToken returns the SHA‑256 hash of a raw token as a hex string.
// Only this hash is persisted for refresh tokens.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
