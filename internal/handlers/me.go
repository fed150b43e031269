package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yemalin/api/internal/payments"
	"github.com/yemalin/api/internal/platform/auth"
	"github.com/yemalin/api/internal/platform/httpx"
	"github.com/yemalin/api/internal/services"
)

const maxMeBodySize = 8 * 1024

// MeHandlers exposes authenticated member endpoints: VIP status and saved
// payment methods.
type MeHandlers struct {
	authn *auth.Authenticator
	vip   services.VIPService
	vault payments.Vault
}

// NewMeHandlers constructs handlers enforcing Firebase authentication before
// invoking the member services.
func NewMeHandlers(authn *auth.Authenticator, vip services.VIPService, vault payments.Vault) *MeHandlers {
	return &MeHandlers{
		authn: authn,
		vip:   vip,
		vault: vault,
	}
}

// Routes wires the /me endpoints onto the provided router.
func (h *MeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Route("/vip", func(vip chi.Router) {
		vip.Get("/", h.vipStats)
		vip.Post("/refresh", h.vipRefresh)
		vip.Get("/offers", h.vipOffers)
		vip.Get("/benefits", h.vipBenefits)
	})
	r.Route("/payment-methods", func(pm chi.Router) {
		pm.Get("/", h.listPaymentMethods)
		pm.Post("/", h.attachPaymentMethod)
		pm.Delete("/{methodID}", h.detachPaymentMethod)
	})
}

func (h *MeHandlers) vipStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}
	if h.vip == nil {
		httpx.WriteError(ctx, w, httpx.NewError("vip_service_unavailable", "vip service is unavailable", http.StatusServiceUnavailable))
		return
	}

	totalSpent, err := parseSpendParam(r, "totalSpent")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	memberSince := strings.TrimSpace(r.URL.Query().Get("memberSince"))

	stats, err := h.vip.Stats(ctx, uid, totalSpent, memberSince)
	if err != nil {
		h.writeVIPError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"stats": stats})
}

func (h *MeHandlers) vipRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}
	if h.vip == nil {
		httpx.WriteError(ctx, w, httpx.NewError("vip_service_unavailable", "vip service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req struct {
		TotalSpent  float64 `json:"totalSpent"`
		MemberSince string  `json:"memberSince"`
	}
	if err := decodeJSONBody(r, maxMeBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	stats, err := h.vip.Refresh(ctx, uid, req.TotalSpent, strings.TrimSpace(req.MemberSince))
	if err != nil {
		h.writeVIPError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"stats": stats})
}

func (h *MeHandlers) vipOffers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireIdentity(ctx, w); !ok {
		return
	}
	if h.vip == nil {
		httpx.WriteError(ctx, w, httpx.NewError("vip_service_unavailable", "vip service is unavailable", http.StatusServiceUnavailable))
		return
	}

	totalSpent, err := parseSpendParam(r, "totalSpent")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"offers": h.vip.Offers(totalSpent)})
}

func (h *MeHandlers) vipBenefits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireIdentity(ctx, w); !ok {
		return
	}
	if h.vip == nil {
		httpx.WriteError(ctx, w, httpx.NewError("vip_service_unavailable", "vip service is unavailable", http.StatusServiceUnavailable))
		return
	}

	totalSpent, err := parseSpendParam(r, "totalSpent")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	benefits := h.vip.Benefits(totalSpent)
	if benefits == nil {
		benefits = []string{}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"benefits": benefits})
}

func (h *MeHandlers) listPaymentMethods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}
	if h.vault == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payments_unavailable", "payment methods are unavailable", http.StatusServiceUnavailable))
		return
	}

	methods, err := h.vault.List(ctx, uid)
	if err != nil {
		h.writeVaultError(ctx, w, err)
		return
	}
	if methods == nil {
		methods = []payments.SavedMethod{}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"paymentMethods": methods})
}

func (h *MeHandlers) attachPaymentMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}
	if h.vault == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payments_unavailable", "payment methods are unavailable", http.StatusServiceUnavailable))
		return
	}

	var req struct {
		PaymentMethodID string `json:"paymentMethodId"`
	}
	if err := decodeJSONBody(r, maxMeBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.PaymentMethodID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "paymentMethodId is required", http.StatusBadRequest))
		return
	}

	method, err := h.vault.Attach(ctx, uid, strings.TrimSpace(req.PaymentMethodID))
	if err != nil {
		h.writeVaultError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{"paymentMethod": method})
}

func (h *MeHandlers) detachPaymentMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireIdentity(ctx, w); !ok {
		return
	}
	if h.vault == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payments_unavailable", "payment methods are unavailable", http.StatusServiceUnavailable))
		return
	}

	methodID := strings.TrimSpace(chi.URLParam(r, "methodID"))
	if methodID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "method id is required", http.StatusBadRequest))
		return
	}

	if err := h.vault.Detach(ctx, methodID); err != nil {
		h.writeVaultError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"success": true})
}

func (h *MeHandlers) requireIdentity(ctx context.Context, w http.ResponseWriter) (string, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return "", false
	}
	return identity.UID, true
}

func (h *MeHandlers) writeVIPError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrVIPInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("vip_error", "failed to load vip status", http.StatusInternalServerError))
	}
}

func (h *MeHandlers) writeVaultError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payments.ErrVaultInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("payments_error", "payment provider request failed", http.StatusBadGateway))
	}
}

func parseSpendParam(r *http.Request, name string) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return 0, errors.New(name + " must be a non-negative number")
	}
	return value, nil
}
