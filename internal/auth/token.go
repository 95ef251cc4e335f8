// Package auth issues and verifies the bearer tokens carried by API requests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Jagan515/tms-server/internal/models"
)

// ErrInvalidToken is returned for malformed, expired or forged tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims identify the caller of a request.
type Claims struct {
	Role      models.Role `json:"role"`
	StudentID string      `json:"student_id,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the token subject as a uuid.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// LinkedStudent returns the student a student or parent account is bound to.
func (c *Claims) LinkedStudent() (uuid.UUID, bool) {
	if c.StudentID == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(c.StudentID)
	return id, err == nil
}

// IssueToken signs an HS256 token for the user.
func IssueToken(user *models.User, secret string, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if user.StudentID != nil {
		claims.StudentID = user.StudentID.String()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies the signature and expiry of a token.
func ParseToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
