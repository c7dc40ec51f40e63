package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func testConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "storefront"}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testConfig()
	now := time.Now().UTC()
	accountID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{AccountID: accountID, Role: enums.RoleCustomer})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.AccountID != accountID {
		t.Fatalf("expected account_id %s, got %s", accountID, claims.AccountID)
	}
	if claims.Role != enums.RoleCustomer {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("unexpected issuer %s", claims.Issuer)
	}
	if claims.Subject != accountID.String() {
		t.Fatalf("unexpected subject %s", claims.Subject)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti to be generated")
	}
	if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != defaultTokenTTL {
		t.Fatalf("expected default ttl, got %s", got)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	cfg := testConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{
		AccountID: uuid.New(),
		Role:      enums.RoleAdmin,
		TTL:       time.Minute,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestParseRejectsWrongSecretAndIssuer(t *testing.T) {
	cfg := testConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{AccountID: uuid.New(), Role: enums.RoleAdmin})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := ParseAccessToken(config.JWTConfig{Secret: "other", Issuer: cfg.Issuer}, token); err == nil {
		t.Fatal("expected signature failure")
	}
	if _, err := ParseAccessToken(config.JWTConfig{Secret: cfg.Secret, Issuer: "elsewhere"}, token); err == nil {
		t.Fatal("expected issuer failure")
	}
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	cfg := testConfig()
	claims := AccessTokenClaims{
		AccountID: uuid.New(),
		Role:      enums.RoleCustomer,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken(cfg, signed); err == nil {
		t.Fatal("expected HS512 token to be rejected")
	}
}

func TestParseRejectsMissingExpiry(t *testing.T) {
	cfg := testConfig()
	claims := AccessTokenClaims{
		AccountID:        uuid.New(),
		Role:             enums.RoleCustomer,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: cfg.Issuer},
	}
	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken(cfg, signed); err == nil {
		t.Fatal("expected token without exp to be rejected")
	}
}

func TestMintValidatesPayload(t *testing.T) {
	cfg := testConfig()
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{Role: enums.RoleCustomer}); err == nil {
		t.Fatal("expected missing account to fail")
	}
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{AccountID: uuid.New(), Role: "owner"}); err == nil || !strings.Contains(err.Error(), "role") {
		t.Fatalf("expected invalid role error, got %v", err)
	}
	if _, err := MintAccessToken(config.JWTConfig{Issuer: "x"}, time.Now(), AccessTokenPayload{}); err == nil {
		t.Fatal("expected missing secret to fail")
	}
}
