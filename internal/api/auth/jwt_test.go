package auth

import (
	"testing"
	"time"
)

var testSecret = []byte("test-secret-key-32-bytes-long!!")

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTService(testSecret, 15*time.Minute)

	token, err := svc.GenerateToken("operator-1", "lucia")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Subject != "operator-1" {
		t.Errorf("Subject = %q, want operator-1", claims.Subject)
	}
	if claims.Username != "lucia" {
		t.Errorf("Username = %q, want lucia", claims.Username)
	}
	if claims.Issuer != Issuer {
		t.Errorf("Issuer = %q, want %q", claims.Issuer, Issuer)
	}
}

func TestJWTService_RequiresSubject(t *testing.T) {
	svc := NewJWTService(testSecret, time.Minute)
	if _, err := svc.GenerateToken("", "nobody"); err == nil {
		t.Error("expected error for empty subject")
	}
}

func TestJWTService_InvalidToken(t *testing.T) {
	svc := NewJWTService(testSecret, 15*time.Minute)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt-token"},
		{"wrong-segments", "a.b"},
		{"invalid-signature", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiJ0ZXN0In0.invalid"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.ValidateToken(tc.token); err == nil {
				t.Error("expected error for invalid token")
			}
		})
	}
}

func TestJWTService_DifferentSecret(t *testing.T) {
	svc1 := NewJWTService([]byte("secret-one-32-bytes-long!!!!!!!"), time.Minute)
	svc2 := NewJWTService([]byte("secret-two-32-bytes-long!!!!!!!"), time.Minute)

	token, err := svc1.GenerateToken("operator-1", "")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := svc2.ValidateToken(token); err == nil {
		t.Error("expected error validating token with different secret")
	}
}

func TestJWTService_ExpiredToken(t *testing.T) {
	issued := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	svc := NewJWTService(testSecret, 15*time.Minute)
	svc.now = func() time.Time { return issued }

	token, err := svc.GenerateToken("operator-1", "")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	svc.now = func() time.Time { return issued.Add(time.Hour) }
	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestJWTService_WrongIssuer(t *testing.T) {
	svc := NewJWTService(testSecret, time.Minute)
	svc.issuer = "someone-else"
	token, err := svc.GenerateToken("operator-1", "")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := NewJWTService(testSecret, time.Minute).ValidateToken(token); err == nil {
		t.Error("expected error for foreign issuer")
	}
}
