package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yemalin/api/internal/notifications"
	"github.com/yemalin/api/internal/repositories/memory"
	"github.com/yemalin/api/internal/services"
)

type nopDispatcher struct{}

func (nopDispatcher) Enqueue(context.Context, notifications.Job) error { return nil }
func (nopDispatcher) Flush(context.Context) error                      { return nil }
func (nopDispatcher) Close(context.Context) error                      { return nil }

func newMarketingManager(t *testing.T) services.MarketingManager {
	t.Helper()
	manager, err := services.NewMarketingManager(services.MarketingManagerDeps{
		ConfigRepository: memory.NewMarketingConfigRepository(),
		Waitlist:         memory.NewWaitlistRepository(3247),
		Emails:           memory.NewEmailRepository(),
		Dispatcher:       nopDispatcher{},
	})
	if err != nil {
		t.Fatalf("NewMarketingManager: %v", err)
	}
	manager.Load(context.Background())
	return manager
}

func newMarketingTestRouter(t *testing.T, opts ...MarketingHandlersOption) (chi.Router, services.MarketingManager) {
	t.Helper()
	manager := newMarketingManager(t)
	handler := NewMarketingHandlers(manager, opts...)
	router := chi.NewRouter()
	router.Route("/marketing", handler.Routes)
	return router, manager
}

func TestWaitlistSignup(t *testing.T) {
	router, manager := newMarketingTestRouter(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/marketing/waitlist", strings.NewReader(`{"email":"vip@example.com","productId":"p1","locale":"fr"}`))
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var resp waitlistResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Position != 3248 {
		t.Fatalf("resp = %+v", resp)
	}
	if manager.WaitlistCount() != 3248 {
		t.Fatalf("count = %d", manager.WaitlistCount())
	}
}

func TestWaitlistRejectsMalformedEmail(t *testing.T) {
	router, manager := newMarketingTestRouter(t)

	for _, body := range []string{`{"email":""}`, `{"email":"not-an-email"}`, `{}`} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/marketing/waitlist", strings.NewReader(body))
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, rr.Code)
		}
	}
	if manager.WaitlistCount() != 3247 {
		t.Fatal("counter must not advance on rejected signup")
	}
}

func TestWaitlistRateLimited(t *testing.T) {
	router, _ := newMarketingTestRouter(t, WithWaitlistRateLimit(2, time.Minute))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/marketing/waitlist", strings.NewReader(`{"email":"a@example.com"}`))
		req.RemoteAddr = "203.0.113.9:1234"
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusCreated || codes[1] != http.StatusCreated {
		t.Fatalf("first two requests should pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("third request should be limited, got %v", codes)
	}
}

func TestWaitlistCountEndpoint(t *testing.T) {
	router, _ := newMarketingTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/marketing/waitlist/count", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp map[string]int64
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["count"] != 3247 {
		t.Fatalf("count = %d, want 3247", resp["count"])
	}
}

func TestActiveDropsEndpoint(t *testing.T) {
	router, manager := newMarketingTestRouter(t)
	manager.CreateExclusiveDrop(context.Background(), []string{"p1", "p2"}, true)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/marketing/drops", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp struct {
		Drops []dropPayload `json:"drops"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Drops) != 1 || !resp.Drops[0].MemberOnly || resp.Drops[0].MaxPieces != 50 {
		t.Fatalf("drops = %+v", resp.Drops)
	}
}
