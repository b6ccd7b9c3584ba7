package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestToken_IssueAndVerify(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.Issue("user-123", TokenTTL)
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("unexpected error verifying token: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Errorf("expected subject user-123, got %s", claims.Subject)
	}
}

func TestToken_ExpiryWindow(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.Issue("user-123", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl > time.Hour || ttl < 59*time.Minute {
		t.Errorf("expected expiry roughly one hour out, got %v", ttl)
	}
}

func TestToken_Expired(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.Issue("user-123", -time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestToken_WrongSecret(t *testing.T) {
	issuer := NewTokenService("secret-a")
	verifier := NewTokenService("secret-b")

	token, err := issuer.Issue("user-123", TokenTTL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestToken_Malformed(t *testing.T) {
	svc := NewTokenService("test-secret")

	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken for %q, got %v", token, err)
		}
	}
}

func TestToken_RejectsNoneAlgorithm(t *testing.T) {
	svc := NewTokenService("test-secret")

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("building unsigned token: %v", err)
	}

	if _, err := svc.Verify(unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for alg=none token, got %v", err)
	}
}

func TestToken_RequiresExpiry(t *testing.T) {
	svc := NewTokenService("test-secret")

	// A token without exp must be rejected even with a valid signature.
	claims := jwt.RegisteredClaims{Subject: "user-123"}
	eternal, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("building token: %v", err)
	}

	if _, err := svc.Verify(eternal); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for token without exp, got %v", err)
	}
}

func TestToken_RequiresSubject(t *testing.T) {
	svc := NewTokenService("test-secret")

	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	anonymous, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("building token: %v", err)
	}

	if _, err := svc.Verify(anonymous); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for token without subject, got %v", err)
	}
}
