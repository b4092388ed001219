package jwt

import (
	"strings"
	"time"

	"chatapp-gateway/internal/snowflake"

	"github.com/golang-jwt/jwt/v5"
)

type TokenClaims struct {
	UserID snowflake.ID `json:"userID"`
	jwt.RegisteredClaims
}

// Inspect reads the claims of a token without verifying its signature, the
// client holds no key for that. Tokens that are not JWTs return an error.
func Inspect(tokenString string) (TokenClaims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	var claims TokenClaims
	_, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims)
	if err != nil {
		return TokenClaims{}, err
	}
	return claims, nil
}

func (c TokenClaims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// ExpiresIn is zero for tokens without an expiry.
func (c TokenClaims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}
