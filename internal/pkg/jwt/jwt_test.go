package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shandysiswandi/selfieauth/internal/pkg/clock"
)

func signed(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret-unknown-to-us"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestInspector(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	clk := clock.NewManual(now)
	ins := NewInspector(clk, 5*time.Second)

	t.Run("ExpiresAt", func(t *testing.T) {
		// Arrange
		tok := signed(t, jwt.RegisteredClaims{
			Subject:   "+15551234567",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		})

		// Act
		exp, ok := ins.ExpiresAt(tok)

		// Assert
		if !ok || !exp.Equal(now.Add(time.Hour)) {
			t.Fatalf("ExpiresAt() = %v, %v", exp, ok)
		}
		if ins.Expired(tok) {
			t.Fatal("token should not be expired yet")
		}
	})

	t.Run("ExpiredWithinLeeway", func(t *testing.T) {
		tok := signed(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(3 * time.Second))})
		if !ins.Expired(tok) {
			t.Fatal("token inside the leeway should count as expired")
		}
	})

	t.Run("ExpiredInPast", func(t *testing.T) {
		tok := signed(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))})
		if !ins.Expired(tok) {
			t.Fatal("token in the past should be expired")
		}
	})

	t.Run("OpaqueToken", func(t *testing.T) {
		if _, ok := ins.ExpiresAt("abc123"); ok {
			t.Fatal("opaque token should have no expiry")
		}
		if ins.Expired("abc123") {
			t.Fatal("opaque token should never be expired")
		}
	})

	t.Run("NoExpClaim", func(t *testing.T) {
		tok := signed(t, jwt.RegisteredClaims{Subject: "x"})
		if _, ok := ins.ExpiresAt(tok); ok {
			t.Fatal("token without exp should report no expiry")
		}
	})
}
