package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/apperror"
)

const bearerPrefix = "Bearer "

// Claims only identify the user; role and status are read from storage on every request.
type Claims struct {
	jwt.RegisteredClaims
}

type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for userID and returns it with its expiry.
func (m *TokenManager) Issue(userID string) (string, time.Time, error) {
	now := m.now()
	expiration := now.Add(m.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	})

	ss, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return ss, expiration, nil
}

// Parse validates a raw token and returns its claims. Failures are auth errors
// carrying the message shown to the client.
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		appErr := apperror.Auth(tokenErrorMessage(err))
		appErr.Err = err
		return nil, appErr
	}

	if claims.Subject == "" {
		return nil, apperror.Auth("Invalid authentication token")
	}
	return claims, nil
}

func tokenErrorMessage(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "Token expired. Please login again"
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return "Token not yet valid"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "Token signature verification failed"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "Invalid token format"
	default:
		return "Authentication failed"
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", apperror.Auth("Authorization token is required")
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", apperror.Auth("Invalid token format")
	}
	return strings.TrimPrefix(header, bearerPrefix), nil
}
