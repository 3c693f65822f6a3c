package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewJWTService([]byte("test-secret-key"), 15*time.Minute)

	token, err := svc.GenerateToken("api-key")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}
	if claims.ClientID != "api-key" {
		t.Errorf("client id = %q, want api-key", claims.ClientID)
	}
	if claims.Issuer != "tagwatch" {
		t.Errorf("issuer = %q, want tagwatch", claims.Issuer)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc := NewJWTService([]byte("secret-a"), 15*time.Minute)
	other := NewJWTService([]byte("secret-b"), 15*time.Minute)

	token, err := svc.GenerateToken("api-key")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if _, err := other.ValidateToken(token); err == nil {
		t.Fatal("expected validation to fail with wrong secret")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	svc := NewJWTService([]byte("test-secret-key"), -time.Minute)

	token, err := svc.GenerateToken("api-key")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if _, err := svc.ValidateToken(token); err == nil {
		t.Fatal("expected validation to fail for expired token")
	}
}

func TestValidateGarbageToken(t *testing.T) {
	svc := NewJWTService([]byte("test-secret-key"), 15*time.Minute)
	if _, err := svc.ValidateToken("not.a.token"); err == nil {
		t.Fatal("expected validation to fail for garbage input")
	}
}
