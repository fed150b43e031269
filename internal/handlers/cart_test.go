package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/yemalin/api/internal/platform/auth"
	"github.com/yemalin/api/internal/repositories/memory"
	"github.com/yemalin/api/internal/services"
)

func newCartTestRouter(t *testing.T, images ImageURLSigner) (chi.Router, services.CartManager) {
	t.Helper()
	manager, err := services.NewCartManager(services.CartManagerDeps{
		Repository: memory.NewCartRepository(),
	})
	if err != nil {
		t.Fatalf("NewCartManager: %v", err)
	}

	handler := NewCartHandlers(nil, manager, images)
	router := chi.NewRouter()
	router.Route("/cart", handler.Routes)
	return router, manager
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "user-7"}))
}

func TestCartHandlersAddAndGet(t *testing.T) {
	router, _ := newCartTestRouter(t, nil)

	body := `{"productId":"p1","name":"Silk Shirt","unitPrice":50,"size":"M","quantity":1}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/cart/items", body))
	if rr.Code != http.StatusOK {
		t.Fatalf("add status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/cart/items", `{"productId":"p1","name":"Silk Shirt","unitPrice":50,"size":"M","quantity":2}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("second add status = %d", rr.Code)
	}

	var resp cartResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Cart.Items) != 1 || resp.Cart.Items[0].Quantity != 3 {
		t.Fatalf("cart = %+v", resp.Cart)
	}
	if resp.Cart.Total != 150 {
		t.Fatalf("total = %v, want 150", resp.Cart.Total)
	}
	if resp.Cart.ItemsCount != 3 {
		t.Fatalf("itemsCount = %d, want 3", resp.Cart.ItemsCount)
	}
	if cc := rr.Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Fatalf("Cache-Control = %q", cc)
	}
}

func TestCartHandlersValidation(t *testing.T) {
	router, _ := newCartTestRouter(t, nil)

	cases := []string{
		`{"name":"x","unitPrice":1,"size":"M"}`,
		`{"productId":"p1","unitPrice":1,"size":"M"}`,
		`{"productId":"p1","name":"x","unitPrice":1}`,
		`{"productId":"p1","name":"x","unitPrice":-1,"size":"M"}`,
		`not json`,
	}
	for _, body := range cases {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest(http.MethodPost, "/cart/items", body))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, rr.Code)
		}
	}
}

func TestCartHandlersQuantityAndRemoval(t *testing.T) {
	router, _ := newCartTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/cart/items", `{"productId":"p1","name":"x","unitPrice":50,"size":"M","quantity":2}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("add status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPatch, "/cart/items/p1/M", `{"quantity":0}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("patch status = %d", rr.Code)
	}
	var resp cartResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Cart.Items) != 0 {
		t.Fatalf("zero quantity should remove the line: %+v", resp.Cart.Items)
	}

	// Removing an absent item stays a 200 no-op.
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodDelete, "/cart/items/p9/M", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rr.Code)
	}
}

func TestCartHandlersClear(t *testing.T) {
	router, manager := newCartTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/cart/items", `{"productId":"p1","name":"x","unitPrice":50,"size":"M","quantity":2}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("add status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodDelete, "/cart", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rr.Code)
	}
	if count := manager.ItemCount(context.Background(), "user-7"); count != 0 {
		t.Fatalf("item count after clear = %d", count)
	}
}

func TestCartHandlersRequireIdentity(t *testing.T) {
	router, _ := newCartTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cart", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestCartHandlersSignsImageRefs(t *testing.T) {
	router, _ := newCartTestRouter(t, func(_ context.Context, imageRef string) (string, error) {
		return "https://cdn.example.com/" + imageRef + "?sig=abc", nil
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/cart/items", `{"productId":"p1","name":"x","unitPrice":50,"size":"M","imageRef":"products/p1/main.jpg","quantity":1}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("add status = %d", rr.Code)
	}

	var resp cartResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := resp.Cart.Items[0].ImageURL; got != "https://cdn.example.com/products/p1/main.jpg?sig=abc" {
		t.Fatalf("imageUrl = %q", got)
	}
}
