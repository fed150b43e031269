package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/yemalin/api/internal/domain"
	"github.com/yemalin/api/internal/payments"
	"github.com/yemalin/api/internal/repositories/memory"
	"github.com/yemalin/api/internal/services"
)

type stubVault struct {
	methods  []payments.SavedMethod
	detached []string
	err      error
}

func (s *stubVault) List(_ context.Context, customerID string) ([]payments.SavedMethod, error) {
	return s.methods, s.err
}

func (s *stubVault) Attach(_ context.Context, customerID, methodID string) (payments.SavedMethod, error) {
	if s.err != nil {
		return payments.SavedMethod{}, s.err
	}
	method := payments.SavedMethod{ID: methodID, Brand: "visa", Last4: "4242"}
	s.methods = append(s.methods, method)
	return method, nil
}

func (s *stubVault) Detach(_ context.Context, methodID string) error {
	s.detached = append(s.detached, methodID)
	return s.err
}

func newMeTestRouter(t *testing.T, vault payments.Vault) chi.Router {
	t.Helper()
	vip, err := services.NewVIPService(services.VIPServiceDeps{
		Stats:   memory.NewVIPStatsRepository(),
		Clock:   func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) },
		RandInt: func(int) int { return 1 },
	})
	if err != nil {
		t.Fatalf("NewVIPService: %v", err)
	}

	handler := NewMeHandlers(nil, vip, vault)
	router := chi.NewRouter()
	router.Route("/me", handler.Routes)
	return router
}

func TestVIPStatsEndpoint(t *testing.T) {
	router := newMeTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/me/vip?totalSpent=1200&memberSince=2024-01-01", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Stats domain.VIPStats `json:"stats"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Stats.CurrentTier == nil || resp.Stats.CurrentTier.Name != "Silver" {
		t.Fatalf("tier = %+v, want Silver", resp.Stats.CurrentTier)
	}
	if resp.Stats.TotalSaved != 360 {
		t.Fatalf("totalSaved = %v, want 360", resp.Stats.TotalSaved)
	}
}

func TestVIPStatsRejectsBadSpend(t *testing.T) {
	router := newMeTestRouter(t, nil)

	for _, query := range []string{"?totalSpent=abc", "?totalSpent=-5"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, authedRequest(http.MethodGet, "/me/vip"+query, ""))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("query %q: status = %d, want 400", query, rr.Code)
		}
	}
}

func TestVIPRefreshEndpoint(t *testing.T) {
	router := newMeTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/me/vip/refresh", `{"totalSpent":2600,"memberSince":"2024-01-01"}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Stats domain.VIPStats `json:"stats"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Stats.CurrentTier == nil || resp.Stats.CurrentTier.Name != "Gold" {
		t.Fatalf("tier = %+v, want Gold", resp.Stats.CurrentTier)
	}
}

func TestVIPOffersAndBenefits(t *testing.T) {
	router := newMeTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/me/vip/offers?totalSpent=1200", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("offers status = %d", rr.Code)
	}
	var offersResp struct {
		Offers []domain.VIPOffer `json:"offers"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &offersResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(offersResp.Offers) == 0 || offersResp.Offers[0].Code != "VIPSILVER" {
		t.Fatalf("offers = %+v", offersResp.Offers)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/me/vip/benefits?totalSpent=100", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("benefits status = %d", rr.Code)
	}
	var benefitsResp struct {
		Benefits []string `json:"benefits"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &benefitsResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(benefitsResp.Benefits) != 0 {
		t.Fatalf("non-member benefits = %v", benefitsResp.Benefits)
	}
}

func TestPaymentMethodEndpoints(t *testing.T) {
	vault := &stubVault{}
	router := newMeTestRouter(t, vault)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/me/payment-methods", `{"paymentMethodId":"pm_1"}`))
	if rr.Code != http.StatusCreated {
		t.Fatalf("attach status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/me/payment-methods", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	var listResp struct {
		PaymentMethods []payments.SavedMethod `json:"paymentMethods"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listResp.PaymentMethods) != 1 || listResp.PaymentMethods[0].ID != "pm_1" {
		t.Fatalf("methods = %+v", listResp.PaymentMethods)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodDelete, "/me/payment-methods/pm_1", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("detach status = %d", rr.Code)
	}
	if len(vault.detached) != 1 || vault.detached[0] != "pm_1" {
		t.Fatalf("detached = %v", vault.detached)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/me/payment-methods", `{}`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("attach without id status = %d, want 400", rr.Code)
	}
}

func TestPaymentMethodProviderFailure(t *testing.T) {
	router := newMeTestRouter(t, &stubVault{err: errors.New("stripe down")})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/me/payment-methods", ""))
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}
}
