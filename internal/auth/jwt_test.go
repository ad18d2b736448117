package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestParseAndValidateToken(t *testing.T) {
	secret := "test-secret"
	tok := signed(t, secret, Claims{
		UserUUID: "u-42",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := ParseAndValidateToken(secret, tok)
	if err != nil {
		t.Fatalf("ParseAndValidateToken: %v", err)
	}
	if claims.UserUUID != "u-42" {
		t.Fatalf("user = %q", claims.UserUUID)
	}
}

func TestParseAndValidateTokenRejects(t *testing.T) {
	secret := "test-secret"

	if _, err := ParseAndValidateToken(secret, ""); err == nil {
		t.Fatal("empty token accepted")
	}

	wrongKey := signed(t, "other-secret", Claims{UserUUID: "u-1"})
	if _, err := ParseAndValidateToken(secret, wrongKey); err == nil {
		t.Fatal("token signed with wrong key accepted")
	}

	expired := signed(t, secret, Claims{
		UserUUID: "u-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	if _, err := ParseAndValidateToken(secret, expired); err == nil {
		t.Fatal("expired token accepted")
	}
}
