package testutil

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token settings shared by tests that need a signed session
const (
	TestSessionSecret = "test-session-secret-with-32-bytes!!"
	TestIssuer        = "alphasafe-api"
	TestAudience      = "alphasafe-web"
)

// SignToken signs a session token for userID with the test settings.
// A negative ttl produces an expired token.
func SignToken(t *testing.T, userID string, ttl time.Duration) string {
	t.Helper()

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    TestIssuer,
		Audience:  jwt.ClaimStrings{TestAudience},
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	signed, err := token.SignedString([]byte(TestSessionSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

// AuthCookie wraps a token in the session cookie
func AuthCookie(token string) *http.Cookie {
	return &http.Cookie{Name: "auth_token", Value: token}
}
