package auth

import (
	"testing"
	"time"
)

func TestJWTMintAndParse(t *testing.T) {
	m := NewJWTManager("credit-score", "dashboard", "secret")
	tok, err := m.Mint("0xabc", "user", "s1", 5*time.Minute)
	if err != nil {
		t.Fatalf("mint error: %v", err)
	}

	claims, err := m.Parse(tok)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.Address != "0xabc" || claims.Role != "user" || claims.SessionID != "s1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	m := NewJWTManager("credit-score", "dashboard", "secret")
	tok, err := m.Mint("0xabc", "user", "s1", 5*time.Minute)
	if err != nil {
		t.Fatalf("mint error: %v", err)
	}

	other := NewJWTManager("credit-score", "dashboard", "different")
	if _, err := other.Parse(tok); err == nil {
		t.Fatalf("expected parse to fail with wrong secret")
	}
}

func TestJWTRejectsWrongIssuer(t *testing.T) {
	m := NewJWTManager("someone-else", "dashboard", "secret")
	tok, err := m.Mint("0xabc", "user", "s1", 5*time.Minute)
	if err != nil {
		t.Fatalf("mint error: %v", err)
	}

	verifier := NewJWTManager("credit-score", "dashboard", "secret")
	if _, err := verifier.Parse(tok); err == nil {
		t.Fatalf("expected parse to fail with wrong issuer")
	}
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	m := NewJWTManager("credit-score", "dashboard", "secret")
	tok, err := m.Mint("0xabc", "user", "s1", -time.Minute)
	if err != nil {
		t.Fatalf("mint error: %v", err)
	}

	if _, err := m.Parse(tok); err == nil {
		t.Fatalf("expected parse to fail for expired token")
	}
}
