package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/NateWesth/aleph-order-tracker/internal/models"
	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid token")

// AuthToken issues and verifies HMAC-signed tokens for webhook callers
type AuthToken struct {
	key []byte
}

// NewAuthToken creates new AuthToken instance
func NewAuthToken(key []byte) *AuthToken {
	return &AuthToken{key: key}
}

type tokenClaims struct {
	jwt.RegisteredClaims
}

// CreateToken issues a signed token identifying the integration caller
func (at *AuthToken) CreateToken(subject string) (string, error) {
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(at.key)
}

// VerifyToken parses and validates a token string, returning its payload
func (at *AuthToken) VerifyToken(tokenString string) (*models.TokenPayload, error) {
	claims := &tokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return at.key, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	payload := &models.TokenPayload{
		Subject: claims.Subject,
	}
	if claims.IssuedAt != nil {
		payload.IssuedAt = claims.IssuedAt.Time
	}

	return payload, nil
}
