package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/yemalin/api/internal/domain"
	"github.com/yemalin/api/internal/platform/httpx"
	"github.com/yemalin/api/internal/services"
)

const maxMarketingBodySize = 8 * 1024

// MarketingHandlers exposes the public marketing endpoints: waitlist signup
// and the active exclusive drops.
type MarketingHandlers struct {
	marketing services.MarketingManager
	limiter   rateLimiter
}

// MarketingHandlersOption customises the marketing handlers.
type MarketingHandlersOption func(*MarketingHandlers)

// WithWaitlistRateLimit throttles signup attempts per client IP.
func WithWaitlistRateLimit(limit int, window time.Duration) MarketingHandlersOption {
	return func(h *MarketingHandlers) {
		h.limiter = newFixedWindowLimiter(limit, window, nil)
	}
}

// NewMarketingHandlers constructs the public marketing handlers.
func NewMarketingHandlers(marketing services.MarketingManager, opts ...MarketingHandlersOption) *MarketingHandlers {
	h := &MarketingHandlers{marketing: marketing}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes wires the /marketing endpoints onto the provided router.
func (h *MarketingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/waitlist", h.joinWaitlist)
	r.Get("/waitlist/count", h.waitlistCount)
	r.Get("/drops", h.activeDrops)
}

func (h *MarketingHandlers) joinWaitlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.marketing == nil {
		httpx.WriteError(ctx, w, httpx.NewError("marketing_service_unavailable", "marketing service is unavailable", http.StatusServiceUnavailable))
		return
	}
	if h.limiter != nil && !h.limiter.Allow(r.RemoteAddr) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many signup attempts; try again later", http.StatusTooManyRequests))
		return
	}

	var req waitlistRequest
	if err := decodeJSONBody(r, maxMarketingBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "email is required", http.StatusBadRequest))
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "email is malformed", http.StatusBadRequest))
		return
	}

	err := h.marketing.AddToWaitlist(ctx, services.WaitlistSignup{
		Email:     email,
		ProductID: strings.TrimSpace(req.ProductID),
		Locale:    strings.TrimSpace(req.Locale),
	})
	if err != nil {
		if errors.Is(err, services.ErrMarketingInvalidInput) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("waitlist_unavailable", "could not join the waitlist; try again", http.StatusServiceUnavailable))
		return
	}

	writeJSONResponse(w, http.StatusCreated, waitlistResponse{
		Success:  true,
		Position: h.marketing.WaitlistCount(),
	})
}

func (h *MarketingHandlers) waitlistCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.marketing == nil {
		httpx.WriteError(ctx, w, httpx.NewError("marketing_service_unavailable", "marketing service is unavailable", http.StatusServiceUnavailable))
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"count": h.marketing.WaitlistCount(),
	})
}

func (h *MarketingHandlers) activeDrops(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.marketing == nil {
		httpx.WriteError(ctx, w, httpx.NewError("marketing_service_unavailable", "marketing service is unavailable", http.StatusServiceUnavailable))
		return
	}

	drops := h.marketing.ActiveDrops()
	payload := make([]dropPayload, 0, len(drops))
	for _, drop := range drops {
		payload = append(payload, buildDropPayload(drop))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"drops": payload,
	})
}

func buildDropPayload(drop domain.Drop) dropPayload {
	return dropPayload{
		ID:         drop.ID,
		Products:   drop.Products,
		MemberOnly: drop.MemberOnly,
		MaxPieces:  drop.MaxPieces,
		CreatedAt:  formatTime(drop.CreatedAt),
	}
}

type waitlistRequest struct {
	Email     string `json:"email"`
	ProductID string `json:"productId"`
	Locale    string `json:"locale"`
}

type waitlistResponse struct {
	Success  bool  `json:"success"`
	Position int64 `json:"position"`
}

type dropPayload struct {
	ID         string   `json:"id"`
	Products   []string `json:"products"`
	MemberOnly bool     `json:"memberOnly"`
	MaxPieces  int      `json:"maxPieces"`
	CreatedAt  string   `json:"createdAt,omitempty"`
}
