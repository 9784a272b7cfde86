package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kevsands/prop-ie/internal/model"
)

// ErrNoSecret is returned when no signing secret is configured.
var ErrNoSecret = errors.New("no token signing secret configured")

// Claims is the payload of a platform access token.
type Claims struct {
	jwt.RegisteredClaims

	// UserID identifies the user. Tokens without it fall back to the subject.
	UserID string `json:"user_id,omitempty"`

	// Role is the user's platform role, e.g. "buyer" or "agent".
	Role string `json:"role,omitempty"`
}

// ParseToken verifies an HS256 access token and returns the identity it
// carries.
func ParseToken(token string, secret []byte) (model.Identity, error) {
	if len(secret) == 0 {
		return model.Anonymous, ErrNoSecret
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return model.Anonymous, fmt.Errorf("parsing access token: %w", err)
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return model.Anonymous, errors.New("parsing access token: no user id claim")
	}

	return model.Identity{
		UserID:        userID,
		Role:          claims.Role,
		Authenticated: true,
	}, nil
}

// IssueToken signs an HS256 access token for a user. A zero ttl issues a
// token without expiry.
func IssueToken(secret []byte, userID, role string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrNoSecret
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   "prop-ie",
		},
		UserID: userID,
		Role:   role,
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}
