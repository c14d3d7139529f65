package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/postmarket/postmarket/internal/domain/users"
)

type JWTAuth struct {
	secret   []byte
	issuer   string
	tokenTTL time.Duration
}

type Claims struct {
	jwt.RegisteredClaims

	Login string `json:"login"`
	Role  string `json:"role"`
}

func NewJWTAuth(secret []byte, opts ...Option) *JWTAuth {
	a := &JWTAuth{
		secret:   secret,
		tokenTTL: 24 * time.Hour,
		issuer:   "postmarket",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

type Option func(a *JWTAuth)

func WithIssuer(issuer string) Option {
	return func(a *JWTAuth) {
		a.issuer = issuer
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(a *JWTAuth) {
		a.tokenTTL = ttl
	}
}

// CreateJWTString mints a token with the user ID as subject and the login
// and role as custom claims. The role claim drives the admin-only routes.
func (a *JWTAuth) CreateJWTString(sub, login string, role users.Role) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.tokenTTL)),
		},
		Login: login,
		Role:  string(role),
	})

	tokenString, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("token.SignedString: %w", err)
	}

	return tokenString, nil
}
