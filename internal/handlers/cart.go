package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/yemalin/api/internal/domain"
	"github.com/yemalin/api/internal/platform/auth"
	"github.com/yemalin/api/internal/platform/httpx"
	"github.com/yemalin/api/internal/services"
)

const maxCartBodySize = 16 * 1024

// ImageURLSigner resolves a stored image reference to a time-limited URL.
// A nil signer leaves payloads with the raw reference only.
type ImageURLSigner func(ctx context.Context, imageRef string) (string, error)

// CartHandlers exposes authenticated cart endpoints for the current user.
type CartHandlers struct {
	authn  *auth.Authenticator
	carts  services.CartManager
	images ImageURLSigner
}

// NewCartHandlers constructs handlers enforcing Firebase authentication before invoking the cart manager.
func NewCartHandlers(authn *auth.Authenticator, carts services.CartManager, images ImageURLSigner) *CartHandlers {
	return &CartHandlers{
		authn:  authn,
		carts:  carts,
		images: images,
	}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Patch("/items/{productID}/{size}", h.updateQuantity)
	r.Delete("/items/{productID}/{size}", h.removeItem)
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	items := h.carts.Items(ctx, uid)
	h.writeCart(ctx, w, uid, items)
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	var req addItemRequest
	if err := decodeJSONBody(r, maxCartBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if err := req.validate(); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	items := h.carts.AddItem(ctx, uid, domain.CartItem{
		ProductID:   strings.TrimSpace(req.ProductID),
		Name:        strings.TrimSpace(req.Name),
		UnitPrice:   req.UnitPrice,
		Size:        strings.TrimSpace(req.Size),
		ImageRef:    strings.TrimSpace(req.ImageRef),
		Quantity:    req.Quantity,
		Description: strings.TrimSpace(req.Description),
	})
	h.writeCart(ctx, w, uid, items)
}

func (h *CartHandlers) updateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	size := strings.TrimSpace(chi.URLParam(r, "size"))
	if productID == "" || size == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id and size are required", http.StatusBadRequest))
		return
	}

	var req struct {
		Quantity *int `json:"quantity"`
	}
	if err := decodeJSONBody(r, maxCartBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quantity is required", http.StatusBadRequest))
		return
	}

	items := h.carts.UpdateQuantity(ctx, uid, productID, size, *req.Quantity)
	h.writeCart(ctx, w, uid, items)
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	size := strings.TrimSpace(chi.URLParam(r, "size"))
	if productID == "" || size == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id and size are required", http.StatusBadRequest))
		return
	}

	items := h.carts.RemoveItem(ctx, uid, productID, size)
	h.writeCart(ctx, w, uid, items)
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	h.carts.Clear(ctx, uid)
	h.writeCart(ctx, w, uid, nil)
}

func (h *CartHandlers) requireUser(ctx context.Context, w http.ResponseWriter) (string, bool) {
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return "", false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return "", false
	}
	return identity.UID, true
}

func (h *CartHandlers) writeCart(ctx context.Context, w http.ResponseWriter, uid string, items []domain.CartItem) {
	payload := cartResponse{
		Cart: cartPayload{
			Items:      h.buildCartItems(ctx, items),
			ItemsCount: domain.CartItemCount(items),
			Total:      domain.CartTotal(items),
		},
	}
	w.Header().Set("Cache-Control", "no-store, no-cache, max-age=0, must-revalidate")
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *CartHandlers) buildCartItems(ctx context.Context, items []domain.CartItem) []cartItemPayload {
	payload := make([]cartItemPayload, 0, len(items))
	for _, item := range items {
		entry := cartItemPayload{
			ProductID:   item.ProductID,
			Name:        item.Name,
			UnitPrice:   item.UnitPrice,
			Size:        item.Size,
			ImageRef:    item.ImageRef,
			Quantity:    item.Quantity,
			Description: item.Description,
			AddedAt:     formatTime(item.AddedAt),
		}
		if h.images != nil && item.ImageRef != "" {
			if url, err := h.images(ctx, item.ImageRef); err == nil {
				entry.ImageURL = url
			}
		}
		payload = append(payload, entry)
	}
	return payload
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

type cartResponse struct {
	Cart cartPayload `json:"cart"`
}

type cartPayload struct {
	Items      []cartItemPayload `json:"items"`
	ItemsCount int               `json:"itemsCount"`
	Total      float64           `json:"total"`
}

type cartItemPayload struct {
	ProductID   string  `json:"productId"`
	Name        string  `json:"name"`
	UnitPrice   float64 `json:"unitPrice"`
	Size        string  `json:"size"`
	ImageRef    string  `json:"imageRef,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	Quantity    int     `json:"quantity"`
	Description string  `json:"description,omitempty"`
	AddedAt     string  `json:"addedAt,omitempty"`
}

type addItemRequest struct {
	ProductID   string  `json:"productId"`
	Name        string  `json:"name"`
	UnitPrice   float64 `json:"unitPrice"`
	Size        string  `json:"size"`
	ImageRef    string  `json:"imageRef"`
	Quantity    int     `json:"quantity"`
	Description string  `json:"description"`
}

func (r addItemRequest) validate() error {
	if strings.TrimSpace(r.ProductID) == "" {
		return errors.New("productId is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(r.Size) == "" {
		return errors.New("size is required")
	}
	if r.UnitPrice < 0 {
		return errors.New("unitPrice must not be negative")
	}
	return nil
}
