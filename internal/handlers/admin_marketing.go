package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/yemalin/api/internal/domain"
	"github.com/yemalin/api/internal/platform/httpx"
	"github.com/yemalin/api/internal/services"
)

func (h *AdminHandlers) marketingRoutes(r chi.Router) {
	r.Route("/marketing", func(m chi.Router) {
		m.Get("/config", h.marketingConfig)
		m.Put("/config", h.updateMarketingConfig)
		m.Get("/events", h.conversionEvents)
		m.Post("/conversions", h.trackConversion)
		m.Post("/scarcity", h.scarcityAlert)
		m.Post("/vip-status", h.vipStatusUpdate)
		m.Post("/early-access", h.earlyAccess)

		m.Route("/drops", func(drops chi.Router) {
			drops.Post("/", h.createDrop)
			drops.Post("/countdown", h.dropCountdown)
		})

		m.Route("/notifications", func(n chi.Router) {
			n.Post("/abandoned-cart", h.sendAbandonedCartEmail)
			n.Post("/welcome", h.sendWelcomeEmail)
			n.Post("/post-purchase", h.sendPostPurchaseEmail)
			n.Post("/win-back", h.sendWinBackEmail)
			n.Post("/sms/abandoned-cart", h.sendAbandonedCartSMS)
			n.Post("/sms/shipping", h.sendShippingUpdateSMS)
		})
	})
}

func (h *AdminHandlers) marketingConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireMarketing(ctx, w) {
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"config": h.marketing.Config()})
}

func (h *AdminHandlers) updateMarketingConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireMarketing(ctx, w) {
		return
	}

	var cfg domain.MarketingConfig
	if err := decodeJSONBody(r, maxAdminBodySize, &cfg); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	h.marketing.UpdateConfig(ctx, cfg)
	writeJSONResponse(w, http.StatusOK, map[string]any{"config": h.marketing.Config()})
}

func (h *AdminHandlers) conversionEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireMarketing(ctx, w) {
		return
	}
	events := h.marketing.Events()
	if events == nil {
		events = []domain.ConversionEvent{}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"events": events})
}

func (h *AdminHandlers) trackConversion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireMarketing(ctx, w) {
		return
	}

	var req struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.Event) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "event is required", http.StatusBadRequest))
		return
	}

	h.marketing.TrackConversion(ctx, strings.TrimSpace(req.Event), req.Data)
	writeJSONResponse(w, http.StatusAccepted, map[string]any{"success": true})
}

func (h *AdminHandlers) scarcityAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireMarketing(ctx, w) {
		return
	}

	var req struct {
		ProductID string `json:"productId"`
		Stock     *int   `json:"stock"`
	}
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.ProductID) == "" || req.Stock == nil || *req.Stock < 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "productId and a non-negative stock are required", http.StatusBadRequest))
		return
	}

	h.marketing.CreateScarcityAlert(ctx, strings.TrimSpace(req.ProductID), *req.Stock)
	writeJSONResponse(w, http.StatusAccepted, map[string]any{"success": true})
}

func (h *AdminHandlers) vipStatusUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireMarketing(ctx, w) {
		return
	}

	var req struct {
		UserID     string  `json:"userId"`
		TotalSpent float64 `json:"totalSpent"`
	}
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" || req.TotalSpent < 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "userId and a non-negative totalSpent are required", http.StatusBadRequest))
		return
	}

	h.marketing.UpdateVIPStatus(ctx, strings.TrimSpace(req.UserID), req.TotalSpent)
	writeJSONResponse(w, http.StatusAccepted, map[string]any{"success": true})
}

func (h *AdminHandlers) earlyAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireMarketing(ctx, w) {
		return
	}

	var req struct {
		UserID string `json:"userId"`
	}
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "userId is required", http.StatusBadRequest))
		return
	}

	h.marketing.GrantEarlyAccess(ctx, strings.TrimSpace(req.UserID))
	writeJSONResponse(w, http.StatusAccepted, map[string]any{"success": true})
}

func (h *AdminHandlers) createDrop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireMarketing(ctx, w) {
		return
	}

	var req struct {
		Products   []string `json:"products"`
		MemberOnly bool     `json:"memberOnly"`
	}
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if len(req.Products) == 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "products must not be empty", http.StatusBadRequest))
		return
	}

	drop := h.marketing.CreateExclusiveDrop(ctx, req.Products, req.MemberOnly)
	writeJSONResponse(w, http.StatusCreated, map[string]any{"drop": buildDropPayload(drop)})
}

func (h *AdminHandlers) dropCountdown(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireMarketing(ctx, w) {
		return
	}

	var req struct {
		DropAt string `json:"dropAt"`
	}
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	dropAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.DropAt))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "dropAt must be an RFC3339 timestamp", http.StatusBadRequest))
		return
	}

	h.marketing.TriggerDropCountdown(ctx, dropAt)
	writeJSONResponse(w, http.StatusAccepted, map[string]any{"success": true})
}

func (h *AdminHandlers) sendAbandonedCartEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireMarketing(ctx, w) {
		return
	}

	var req struct {
		Email string             `json:"email"`
		Items []notificationItem `json:"items"`
	}
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "email is required", http.StatusBadRequest))
		return
	}

	h.marketing.SendAbandonedCartEmail(ctx, strings.TrimSpace(req.Email), notificationItems(req.Items))
	writeJSONResponse(w, http.StatusAccepted, map[string]any{"success": true})
}

func (h *AdminHandlers) sendWelcomeEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireMarketing(ctx, w) {
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "email is required", http.StatusBadRequest))
		return
	}

	h.marketing.SendWelcomeEmail(ctx, strings.TrimSpace(req.Email))
	writeJSONResponse(w, http.StatusAccepted, map[string]any{"success": true})
}

func (h *AdminHandlers) sendPostPurchaseEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireMarketing(ctx, w) {
		return
	}

	var req struct {
		Email   string  `json:"email"`
		OrderID string  `json:"orderId"`
		Total   float64 `json:"total"`
	}
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.OrderID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "email and orderId are required", http.StatusBadRequest))
		return
	}

	h.marketing.SendPostPurchaseEmail(ctx, strings.TrimSpace(req.Email), services.OrderDetails{
		OrderID: strings.TrimSpace(req.OrderID),
		Total:   req.Total,
	})
	writeJSONResponse(w, http.StatusAccepted, map[string]any{"success": true})
}

func (h *AdminHandlers) sendWinBackEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireMarketing(ctx, w) {
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "email is required", http.StatusBadRequest))
		return
	}

	h.marketing.SendWinBackEmail(ctx, strings.TrimSpace(req.Email))
	writeJSONResponse(w, http.StatusAccepted, map[string]any{"success": true})
}

func (h *AdminHandlers) sendAbandonedCartSMS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireMarketing(ctx, w) {
		return
	}

	var req struct {
		Phone string             `json:"phone"`
		Items []notificationItem `json:"items"`
	}
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.Phone) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "phone is required", http.StatusBadRequest))
		return
	}

	h.marketing.SendAbandonedCartSMS(ctx, strings.TrimSpace(req.Phone), notificationItems(req.Items))
	writeJSONResponse(w, http.StatusAccepted, map[string]any{"success": true})
}

func (h *AdminHandlers) sendShippingUpdateSMS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireMarketing(ctx, w) {
		return
	}

	var req struct {
		Phone          string `json:"phone"`
		TrackingNumber string `json:"trackingNumber"`
		Carrier        string `json:"carrier"`
	}
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.Phone) == "" || strings.TrimSpace(req.TrackingNumber) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "phone and trackingNumber are required", http.StatusBadRequest))
		return
	}

	h.marketing.SendShippingUpdateSMS(ctx, strings.TrimSpace(req.Phone), services.TrackingInfo{
		TrackingNumber: strings.TrimSpace(req.TrackingNumber),
		Carrier:        strings.TrimSpace(req.Carrier),
	})
	writeJSONResponse(w, http.StatusAccepted, map[string]any{"success": true})
}

func (h *AdminHandlers) requireMarketing(ctx context.Context, w http.ResponseWriter) bool {
	if h.marketing == nil {
		httpx.WriteError(ctx, w, httpx.NewError("marketing_service_unavailable", "marketing service is unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

type notificationItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
}

func notificationItems(items []notificationItem) []domain.CartItem {
	converted := make([]domain.CartItem, 0, len(items))
	for _, item := range items {
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		converted = append(converted, domain.CartItem{
			ProductID: strings.TrimSpace(item.ProductID),
			Name:      strings.TrimSpace(item.Name),
			UnitPrice: item.UnitPrice,
			Size:      strings.TrimSpace(item.Size),
			Quantity:  quantity,
		})
	}
	return converted
}
