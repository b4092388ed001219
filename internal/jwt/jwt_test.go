package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func createToken(t *testing.T, userID int64, lifeTime time.Duration) string {
	t.Helper()
	currentTime := time.Now().UTC()

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"userID": userID,
		"iat":    jwt.NewNumericDate(currentTime),
		"exp":    jwt.NewNumericDate(currentTime.Add(lifeTime)),
	})
	tokenString, err := token.SignedString([]byte("somebody else's key"))
	if err != nil {
		t.Fatal(err)
	}
	return tokenString
}

func TestInspect(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		token    string
		userID   int64
		expired  bool
		hasError bool
	}{
		{"valid", createToken(t, 42, time.Hour), 42, false, false},
		{"bearer prefix", "Bearer " + createToken(t, 7, time.Hour), 7, false, false},
		{"expired", createToken(t, 42, -time.Hour), 42, true, false},
		{"not a jwt", "plain-api-token", 0, false, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := Inspect(tc.token)
			if tc.hasError {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}

			if int64(claims.UserID) != tc.userID {
				t.Errorf("expected user %d, got %d", tc.userID, claims.UserID)
			}
			if claims.Expired(now) != tc.expired {
				t.Errorf("expected expired to be %v", tc.expired)
			}
		})
	}
}

func TestExpiresIn(t *testing.T) {
	now := time.Now()

	if (TokenClaims{}).ExpiresIn(now) != 0 || (TokenClaims{}).Expired(now) {
		t.Fatal("a token without expiry never expires")
	}

	claims, err := Inspect(createToken(t, 1, time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if left := claims.ExpiresIn(now); left < 59*time.Minute || left > 61*time.Minute {
		t.Fatalf("unexpected time left: %s", left)
	}
}
