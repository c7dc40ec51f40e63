package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer"}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	accountID := uuid.New()
	token := mintTestToken(t, accountID, enums.RoleCustomer)

	var gotAccount uuid.UUID
	var gotRole enums.Role
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccount = AccountIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotAccount != accountID {
		t.Fatalf("expected account %s got %s", accountID, gotAccount)
	}
	if gotRole != enums.RoleCustomer {
		t.Fatalf("expected customer role got %s", gotRole)
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(nil, enums.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for role, want := range map[enums.Role]int{
		enums.RoleAdmin:    http.StatusOK,
		enums.RoleCustomer: http.StatusForbidden,
		"":                 http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithAccount(req.Context(), uuid.New(), role))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != want {
			t.Fatalf("role %q: expected %d got %d", role, want, resp.Code)
		}
	}
}

func mintTestToken(t *testing.T, accountID uuid.UUID, role enums.Role) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{AccountID: accountID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
