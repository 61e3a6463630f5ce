package jwt

import (
	"errors"
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewManager("secret", "")
	tok, err := m.Generate(7, true, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := m.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 7 || !claims.Verified || claims.Subject != "7" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := NewManager("other", "").Parse(tok); err == nil {
		t.Fatalf("expected signature mismatch")
	}
	if _, err := NewManager("secret", "elsewhere").Parse(tok); err == nil {
		t.Fatalf("expected issuer mismatch")
	}
}

func TestExpiredToken(t *testing.T) {
	m := NewManager("secret", "")
	tok, err := m.Generate(1, false, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := m.Parse(tok); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestVerificationCodeIsNotAnAccessToken(t *testing.T) {
	m := NewManager("secret", "")
	code, err := m.GenerateVerification(3)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	id, err := m.ParseVerification(code)
	if err != nil || id != 3 {
		t.Fatalf("expected user 3, got %d %v", id, err)
	}
	if _, err := m.Parse(code); !errors.Is(err, ErrWrongPurpose) {
		t.Fatalf("expected ErrWrongPurpose, got %v", err)
	}

	access, _ := m.Generate(3, false, time.Hour)
	if _, err := m.ParseVerification(access); !errors.Is(err, ErrWrongPurpose) {
		t.Fatalf("expected ErrWrongPurpose for access token, got %v", err)
	}
}
