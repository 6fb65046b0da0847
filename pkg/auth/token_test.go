package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/carrental-backend/pkg/config"
	"github.com/angelmondragon/carrental-backend/pkg/enums"
	"github.com/google/uuid"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "carrental",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{
		UserID: userID,
		Email:  "owner@example.com",
		Role:   enums.RoleOwner,
		JTI:    "session-1",
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, claims.UserID)
	}
	if claims.Role != enums.RoleOwner {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("unexpected issuer %s", claims.Issuer)
	}
	if claims.ID != "session-1" {
		t.Fatalf("expected jti session-1, got %s", claims.ID)
	}
	if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != 30*time.Minute {
		t.Fatalf("expected 30m lifetime, got %v", got)
	}
}

func TestMintAccessTokenGeneratesJTI(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleGuest})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		t.Fatalf("expected generated uuid jti, got %q", claims.ID)
	}
}

func TestMintAccessTokenRejectsInvalidRole(t *testing.T) {
	_, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: "admin"})
	if err == nil || !strings.Contains(err.Error(), "invalid role") {
		t.Fatalf("expected invalid role error, got %v", err)
	}
}

func TestParseAccessTokenRejectsBadSignature(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleCustomer})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := cfg
	other.Secret = "different"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected signature validation to fail")
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	issued := time.Now().Add(-2 * time.Hour)
	token, err := MintAccessToken(cfg, issued, AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleViewer})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected expired token to fail")
	}

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	if err != nil {
		t.Fatalf("expected expired token to parse when allowed: %v", err)
	}
	if claims.Role != enums.RoleViewer {
		t.Fatalf("unexpected role %s", claims.Role)
	}
}

func TestParseAccessTokenRejectsWrongIssuer(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleEditor})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected issuer mismatch to fail")
	}
}
