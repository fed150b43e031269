package idempotency

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestMiddlewareReplaysCompletedResponse(t *testing.T) {
	store := NewMemoryStore()
	var handlerCalls int32

	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&handlerCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"wl_1"}`))
	}))

	makeRequest := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/waitlist", strings.NewReader(`{"email":"a@b.com"}`))
		req.Header.Set("Idempotency-Key", "key-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := makeRequest()
	if first.Code != http.StatusCreated {
		t.Fatalf("unexpected first status %d", first.Code)
	}

	second := makeRequest()
	if second.Code != http.StatusCreated {
		t.Fatalf("unexpected replay status %d", second.Code)
	}
	if second.Header().Get("X-Idempotent-Replay") != "true" {
		t.Fatal("expected replay header on second response")
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body differs: %q vs %q", second.Body.String(), first.Body.String())
	}
	if atomic.LoadInt32(&handlerCalls) != 1 {
		t.Fatalf("handler should run once, ran %d times", handlerCalls)
	}
}

func TestMiddlewareRejectsMissingKey(t *testing.T) {
	handler := Middleware(NewMemoryStore())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/waitlist", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMiddlewareDetectsFingerprintConflict(t *testing.T) {
	store := NewMemoryStore()
	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/waitlist", strings.NewReader(`{"email":"a@b.com"}`))
	req.Header.Set("Idempotency-Key", "key-2")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/waitlist", strings.NewReader(`{"email":"other@b.com"}`))
	req.Header.Set("Idempotency-Key", "key-2")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for fingerprint mismatch, got %d", rec.Code)
	}
}

func TestMiddlewareIgnoresSafeMethods(t *testing.T) {
	var handlerCalls int32
	handler := Middleware(NewMemoryStore())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&handlerCalls, 1)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/cart", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if atomic.LoadInt32(&handlerCalls) != 1 {
		t.Fatal("handler should run for GET without key")
	}
}

func TestMemoryStoreExpiryAllowsRetry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	first, err := store.Reserve(nil, "key-3", "fp", now, time.Minute)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if first.State != ReservationStateNew {
		t.Fatalf("unexpected state %d", first.State)
	}

	later := now.Add(2 * time.Minute)
	second, err := store.Reserve(nil, "key-3", "fp", later, time.Minute)
	if err != nil {
		t.Fatalf("Reserve after expiry: %v", err)
	}
	if second.State != ReservationStateNew {
		t.Fatalf("expected new reservation after expiry, got %d", second.State)
	}
}
