package auth

import (
	"testing"
	"time"
)

func TestSignAndParse(t *testing.T) {
	tok, err := SignJWT("s3cret", "u1", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := ParseJWT("s3cret", tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("uid mismatch: %s", claims.UserID)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tok, _ := SignJWT("s3cret", "u1", time.Hour)
	if _, err := ParseJWT("other", tok); err == nil {
		t.Fatal("expected signature rejection")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	tok, _ := SignJWT("s3cret", "u1", -time.Minute)
	if _, err := ParseJWT("s3cret", tok); err == nil {
		t.Fatal("expected expiry rejection")
	}
}
