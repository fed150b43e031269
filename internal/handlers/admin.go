package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yemalin/api/internal/platform/httpx"
	"github.com/yemalin/api/internal/platform/pagination"
	"github.com/yemalin/api/internal/services"
)

const maxAdminBodySize = 64 * 1024

// AdminHandlers exposes the aggregate reporting surface and the marketing
// control endpoints. Token verification and idempotency are applied by the
// router group, not here.
type AdminHandlers struct {
	analytics services.AnalyticsService
	marketing services.MarketingManager
}

// NewAdminHandlers constructs the admin handlers.
func NewAdminHandlers(analytics services.AnalyticsService, marketing services.MarketingManager) *AdminHandlers {
	return &AdminHandlers{
		analytics: analytics,
		marketing: marketing,
	}
}

// Routes wires the /admin endpoints onto the provided router.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/dashboard", h.dashboard)

	r.Route("/emails", func(emails chi.Router) {
		emails.Get("/", h.listEmails)
		emails.Get("/stats", h.emailStats)
		emails.Post("/subscription", h.updateSubscription)
	})

	r.Route("/carts", func(carts chi.Router) {
		carts.Get("/stats", h.cartStats)
		carts.Get("/abandoned", h.listAbandonedCarts)
		carts.Post("/recover", h.recoverCart)
	})

	r.Route("/analytics", func(analytics chi.Router) {
		analytics.Get("/", h.analyticsReport)
		analytics.Get("/funnel", h.conversionFunnel)
	})

	r.Route("/orders", func(orders chi.Router) {
		orders.Get("/", h.listOrders)
		orders.Get("/stats", h.orderStats)
	})

	h.marketingRoutes(r)
}

func (h *AdminHandlers) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireAnalytics(ctx, w) {
		return
	}
	writeJSONResponse(w, http.StatusOK, h.analytics.Dashboard())
}

func (h *AdminHandlers) emailStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireAnalytics(ctx, w) {
		return
	}
	writeJSONResponse(w, http.StatusOK, h.analytics.EmailStats())
}

func (h *AdminHandlers) listEmails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireAnalytics(ctx, w) {
		return
	}

	params, err := pagination.FromRequest(r, pagination.Options{})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	subscribed, err := parseBoolParam(r, "subscribed")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	source := strings.TrimSpace(r.URL.Query().Get("source"))
	writeJSONResponse(w, http.StatusOK, h.analytics.ListEmails(params, source, subscribed))
}

func (h *AdminHandlers) updateSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireAnalytics(ctx, w) {
		return
	}

	var req struct {
		Email      string `json:"email"`
		Subscribed *bool  `json:"subscribed"`
	}
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if req.Subscribed == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "subscribed is required", http.StatusBadRequest))
		return
	}

	result, err := h.analytics.UpdateEmailSubscription(ctx, req.Email, *req.Subscribed)
	if err != nil {
		h.writeAnalyticsError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, result)
}

func (h *AdminHandlers) cartStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireAnalytics(ctx, w) {
		return
	}
	writeJSONResponse(w, http.StatusOK, h.analytics.CartStats())
}

func (h *AdminHandlers) listAbandonedCarts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireAnalytics(ctx, w) {
		return
	}

	params, err := pagination.FromRequest(r, pagination.Options{})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	recovered, err := parseBoolParam(r, "recovered")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	writeJSONResponse(w, http.StatusOK, h.analytics.ListAbandonedCarts(params, recovered))
}

func (h *AdminHandlers) recoverCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireAnalytics(ctx, w) {
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	result, err := h.analytics.MarkCartRecovered(ctx, req.Email)
	if err != nil {
		h.writeAnalyticsError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, result)
}

func (h *AdminHandlers) analyticsReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireAnalytics(ctx, w) {
		return
	}

	dateRange, err := pagination.ParseDateRange(r.URL.Query())
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	writeJSONResponse(w, http.StatusOK, h.analytics.Analytics(dateRange))
}

func (h *AdminHandlers) conversionFunnel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireAnalytics(ctx, w) {
		return
	}
	writeJSONResponse(w, http.StatusOK, h.analytics.ConversionFunnel())
}

func (h *AdminHandlers) orderStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireAnalytics(ctx, w) {
		return
	}
	writeJSONResponse(w, http.StatusOK, h.analytics.OrderStats())
}

func (h *AdminHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireAnalytics(ctx, w) {
		return
	}

	params, err := pagination.FromRequest(r, pagination.Options{})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	status := r.URL.Query().Get("status")
	writeJSONResponse(w, http.StatusOK, h.analytics.ListOrders(params, status))
}

func (h *AdminHandlers) requireAnalytics(ctx context.Context, w http.ResponseWriter) bool {
	if h.analytics == nil {
		httpx.WriteError(ctx, w, httpx.NewError("analytics_unavailable", "analytics service is unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func (h *AdminHandlers) writeAnalyticsError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrAnalyticsInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("analytics_error", "analytics request failed", http.StatusInternalServerError))
	}
}

func parseBoolParam(r *http.Request, name string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errors.New(name + " must be true or false")
	}
	return &value, nil
}
