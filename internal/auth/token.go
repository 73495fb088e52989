package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyDash/internal/session"
	"github.com/PancyStudios/PancyDash/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "pancydash"

// ErrInvalidToken matches every session token rejection
var ErrInvalidToken = errors.Sentinel("invalid session token")

// Claims is the session token payload. The subject is the Discord user ID.
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Image string `json:"image,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 session tokens
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token codec. An empty secret gets a random one, which
// invalidates sessions on every restart.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	key := []byte(secret)
	if len(key) == 0 {
		buf := make([]byte, 32)
		_, _ = rand.Read(buf)
		key = []byte(hex.EncodeToString(buf))
	}
	return &Tokens{secret: key, ttl: ttl, now: time.Now}
}

// TTL is how long an issued token stays valid
func (t *Tokens) TTL() time.Duration { return t.ttl }

// Issue signs a token for u. IsAdmin is not part of the token.
func (t *Tokens) Issue(u *session.User) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := Claims{
		Name:  u.Name,
		Email: u.Email,
		Image: u.Image,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing session token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies raw and returns the user it was issued for
func (t *Tokens) Parse(raw string) (*session.User, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &session.User{
		ID:    claims.Subject,
		Name:  claims.Name,
		Email: claims.Email,
		Image: claims.Image,
	}, nil
}
