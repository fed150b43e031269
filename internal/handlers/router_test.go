package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func decodeErrorEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return payload
}

func TestRouterNotFoundEnvelope(t *testing.T) {
	router := NewRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	payload := decodeErrorEnvelope(t, rr)
	if payload["error"] != "route_not_found" {
		t.Fatalf("error = %v", payload["error"])
	}
}

func TestRouterUnconfiguredGroupsReturnNotImplemented(t *testing.T) {
	router := NewRouter()

	for _, path := range []string{"/api/v1/cart", "/api/v1/me/vip", "/api/v1/marketing/waitlist", "/api/v1/admin/dashboard"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusNotImplemented {
			t.Fatalf("%s: status = %d, want 501", path, rr.Code)
		}
		payload := decodeErrorEnvelope(t, rr)
		if payload["error"] != "not_implemented" {
			t.Fatalf("%s: error = %v", path, payload["error"])
		}
	}
}

func TestRouterMountsConfiguredGroups(t *testing.T) {
	router := NewRouter(
		WithMarketingRoutes(func(r chi.Router) {
			r.Get("/waitlist/count", func(w http.ResponseWriter, _ *http.Request) {
				writeJSONResponse(w, http.StatusOK, map[string]int64{"count": 3247})
			})
		}),
	)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/marketing/waitlist/count", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rr.Code)
	}
}

func TestRouterAdminGroupMiddleware(t *testing.T) {
	requireToken := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Admin-Token") == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	router := NewRouter(
		WithAdminRoutes(func(r chi.Router) {
			r.Get("/dashboard", func(w http.ResponseWriter, _ *http.Request) {
				writeJSONResponse(w, http.StatusOK, map[string]bool{"ok": true})
			})
		}),
		WithAdminMiddlewares(requireToken),
	)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("without token: status = %d, want 401", rr.Code)
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard", nil)
	req.Header.Set("X-Admin-Token", "secret")
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("with token: status = %d", rr.Code)
	}

	// Middleware must not leak onto public groups.
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/marketing/anything", nil))
	if rr.Code == http.StatusUnauthorized {
		t.Fatal("admin middleware applied outside the admin group")
	}
}
