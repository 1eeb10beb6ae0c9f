package auth

import (
	"context"
	"testing"
	"time"
)

func setSecret(t *testing.T) {
	t.Helper()
	t.Setenv("ASSETRA_AUTH_SECRET", "test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)
}

func TestGenerateAndParseToken(t *testing.T) {
	setSecret(t)

	token, err := GenerateToken("alice", []string{"Trader", "trader", " "}, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "alice" {
		t.Fatalf("unexpected subject: %q", claims.Subject)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "trader" {
		t.Fatalf("roles not normalized: %v", claims.Roles)
	}
	if claims.ID == "" {
		t.Fatal("expected token id claim")
	}
}

func TestGenerateTokenValidation(t *testing.T) {
	setSecret(t)

	if _, err := GenerateToken("", []string{"trader"}, time.Minute); err == nil {
		t.Fatal("expected error for empty subject")
	}
	if _, err := GenerateToken("alice", nil, 0); err == nil {
		t.Fatal("expected error for non-positive ttl")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	setSecret(t)

	for _, tok := range []string{"", "  ", "not-a-jwt", "a.b.c"} {
		if _, err := ParseAndValidate(tok); err != ErrInvalidToken {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestParseRejectsExpired(t *testing.T) {
	setSecret(t)

	token, err := GenerateToken("alice", []string{"trader"}, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := ParseAndValidate(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestMissingSecret(t *testing.T) {
	t.Setenv("ASSETRA_AUTH_SECRET", "")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	if _, err := GenerateToken("alice", []string{"trader"}, time.Minute); err == nil {
		t.Fatal("expected error without configured secret")
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := ContextWithUser(context.Background(), " alice ", []string{"Admin"})

	sub, ok := UserIDFromContext(ctx)
	if !ok || sub != "alice" {
		t.Fatalf("unexpected subject: %q, ok=%v", sub, ok)
	}
	if !HasRole(ctx, "admin") {
		t.Fatal("expected admin role")
	}
	if HasRole(ctx, "trader") {
		t.Fatal("unexpected trader role")
	}
}

func TestAllowed(t *testing.T) {
	if !Allowed([]string{"minter"}, PermTokenMint) {
		t.Fatal("minter must hold registry.token.mint")
	}
	if Allowed([]string{"minter"}, PermAuctionManage) {
		t.Fatal("minter must not hold registry.auction.manage")
	}
	if !Allowed([]string{"admin"}, PermAuctionManage) {
		t.Fatal("admin holds every permission")
	}
	if !Allowed([]string{"registrar"}, PermLeaseCreate) {
		t.Fatal("registrar must hold registry.lease.create")
	}
	if Allowed(nil, PermTokenMint) {
		t.Fatal("no roles grants nothing")
	}
}
