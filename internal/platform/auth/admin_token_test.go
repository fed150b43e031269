package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yemalin/api/internal/platform/config"
)

func newTestManager(t *testing.T, clock func() time.Time) *AdminTokenManager {
	t.Helper()
	cfg := config.AdminTokenConfig{
		Secret: "test-secret",
		Issuer: "yemalin-admin",
		TTL:    time.Hour,
	}
	opts := []AdminTokenOption{}
	if clock != nil {
		opts = append(opts, WithAdminClock(clock))
	}
	manager, err := NewAdminTokenManager(cfg, opts...)
	if err != nil {
		t.Fatalf("NewAdminTokenManager: %v", err)
	}
	return manager
}

func TestAdminTokenIssueAndVerify(t *testing.T) {
	manager := newTestManager(t, nil)

	token, err := manager.Issue("ops@yemalin.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "ops@yemalin.com" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.Issuer != "yemalin-admin" {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
}

func TestAdminTokenExpired(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := issued

	manager := newTestManager(t, func() time.Time { return current })

	token, err := manager.Issue("ops@yemalin.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	current = issued.Add(2 * time.Hour)
	if _, err := manager.Verify(token); !errors.Is(err, ErrAdminTokenExpired) {
		t.Fatalf("expected ErrAdminTokenExpired, got %v", err)
	}
}

func TestAdminTokenRejectsTampering(t *testing.T) {
	manager := newTestManager(t, nil)

	token, err := manager.Issue("ops@yemalin.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := manager.Verify(tampered); !errors.Is(err, ErrAdminTokenInvalid) {
		t.Fatalf("expected ErrAdminTokenInvalid, got %v", err)
	}
}

func TestRequireAdminTokenMiddleware(t *testing.T) {
	manager := newTestManager(t, nil)

	var gotIdentity *Identity
	handler := manager.RequireAdminToken()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIdentity, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	token, err := manager.Issue("ops@yemalin.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if gotIdentity == nil || !gotIdentity.HasRole(RoleAdmin) {
		t.Fatalf("expected admin identity in context, got %+v", gotIdentity)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}
