package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/jengzang/location-replay-go/internal/middleware"
)

func TestIssueToken(t *testing.T) {
	var out bytes.Buffer
	if err := issueToken(&out, "secret", "ops", time.Hour); err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := middleware.ParseToken("secret", strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("parse printed token: %v", err)
	}
	if claims.Subject != "ops" {
		t.Fatalf("expected subject ops, got %q", claims.Subject)
	}
	if left := time.Until(claims.ExpiresAt.Time); left <= 59*time.Minute || left > time.Hour {
		t.Fatalf("unexpected expiry in %s", left)
	}

	if _, err := middleware.ParseToken("other", strings.TrimSpace(out.String())); err == nil {
		t.Fatal("expected token to be bound to its secret")
	}
}

func TestIssueTokenRejectsNonPositiveTTL(t *testing.T) {
	var out bytes.Buffer
	if err := issueToken(&out, "secret", "ops", 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}
