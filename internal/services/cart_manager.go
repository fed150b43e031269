package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	domain "github.com/yemalin/api/internal/domain"
	"github.com/yemalin/api/internal/repositories"
)

// CartManagerDeps bundles collaborators required to construct a cart manager.
type CartManagerDeps struct {
	Repository repositories.CartRepository
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type cartState struct {
	items  []domain.CartItem
	loaded bool
}

type cartManager struct {
	repo   repositories.CartRepository
	clock  func() time.Time
	logger func(context.Context, string, map[string]any)

	mu    sync.Mutex
	carts map[string]*cartState
}

// NewCartManager constructs the cart state manager. In-memory state is
// authoritative; every mutation mirrors the full list to the repository and
// logs (rather than surfaces) persistence failures.
func NewCartManager(deps CartManagerDeps) (CartManager, error) {
	if deps.Repository == nil {
		return nil, errors.New("cart manager: repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &cartManager{
		repo: deps.Repository,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
		carts:  make(map[string]*cartState),
	}, nil
}

// Load hydrates the owner's cart from the store. Read failures fall back to
// an empty cart; the owner is still marked loaded so mutations proceed.
func (m *cartManager) Load(ctx context.Context, ownerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoadedLocked(ctx, ownerID)
}

// Loaded reports whether the owner's cart has completed its initial load.
func (m *cartManager) Loaded(ownerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.carts[ownerID]
	return ok && state.loaded
}

// Items returns a defensive copy of the owner's line items.
func (m *cartManager) Items(ctx context.Context, ownerID string) []domain.CartItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.ensureLoadedLocked(ctx, ownerID)
	return copyItems(state.items)
}

// AddItem merges the quantity into an existing (productID, size) line and
// refreshes its addedAt, or appends a new line. The whole list is persisted.
func (m *cartManager) AddItem(ctx context.Context, ownerID string, item domain.CartItem) []domain.CartItem {
	item.ProductID = strings.TrimSpace(item.ProductID)
	if item.ProductID == "" {
		return m.Items(ctx, ownerID)
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.ensureLoadedLocked(ctx, ownerID)
	now := m.clock()

	merged := false
	for i := range state.items {
		if state.items[i].Matches(item.ProductID, item.Size) {
			state.items[i].Quantity += item.Quantity
			state.items[i].AddedAt = now
			merged = true
			break
		}
	}
	if !merged {
		item.AddedAt = now
		state.items = append(state.items, item)
	}

	m.persistLocked(ctx, ownerID, state)
	return copyItems(state.items)
}

// RemoveItem deletes the matching line. Removing an absent line is a no-op.
func (m *cartManager) RemoveItem(ctx context.Context, ownerID, productID, size string) []domain.CartItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.ensureLoadedLocked(ctx, ownerID)

	filtered := state.items[:0]
	removed := false
	for _, item := range state.items {
		if item.Matches(productID, size) {
			removed = true
			continue
		}
		filtered = append(filtered, item)
	}
	state.items = filtered

	if removed {
		m.persistLocked(ctx, ownerID, state)
	}
	return copyItems(state.items)
}

// UpdateQuantity sets the quantity on the matching line. A zero or negative
// quantity removes the line; a missing line is a no-op.
func (m *cartManager) UpdateQuantity(ctx context.Context, ownerID, productID, size string, quantity int) []domain.CartItem {
	if quantity <= 0 {
		return m.RemoveItem(ctx, ownerID, productID, size)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.ensureLoadedLocked(ctx, ownerID)

	changed := false
	for i := range state.items {
		if state.items[i].Matches(productID, size) {
			state.items[i].Quantity = quantity
			changed = true
			break
		}
	}
	if changed {
		m.persistLocked(ctx, ownerID, state)
	}
	return copyItems(state.items)
}

// Clear empties the cart and persists the empty state.
func (m *cartManager) Clear(ctx context.Context, ownerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.ensureLoadedLocked(ctx, ownerID)
	state.items = nil
	m.persistLocked(ctx, ownerID, state)
}

// Total returns the sum of unitPrice×quantity in list order.
func (m *cartManager) Total(ctx context.Context, ownerID string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.ensureLoadedLocked(ctx, ownerID)
	return domain.CartTotal(state.items)
}

// ItemQuantity returns the quantity on the matching line, 0 when absent.
func (m *cartManager) ItemQuantity(ctx context.Context, ownerID, productID, size string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.ensureLoadedLocked(ctx, ownerID)
	for _, item := range state.items {
		if item.Matches(productID, size) {
			return item.Quantity
		}
	}
	return 0
}

// Contains reports whether the (productID, size) line exists.
func (m *cartManager) Contains(ctx context.Context, ownerID, productID, size string) bool {
	return m.ItemQuantity(ctx, ownerID, productID, size) > 0
}

// ItemCount returns the total quantity across all lines.
func (m *cartManager) ItemCount(ctx context.Context, ownerID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.ensureLoadedLocked(ctx, ownerID)
	return domain.CartItemCount(state.items)
}

func (m *cartManager) ensureLoadedLocked(ctx context.Context, ownerID string) *cartState {
	state, ok := m.carts[ownerID]
	if !ok {
		state = &cartState{}
		m.carts[ownerID] = state
	}
	if state.loaded {
		return state
	}

	items, err := m.repo.Load(ctx, ownerID)
	if err != nil {
		m.logger(ctx, "cart.load_failed", map[string]any{
			"owner": ownerID,
			"error": err.Error(),
		})
		items = nil
	}
	state.items = items
	state.loaded = true
	return state
}

func (m *cartManager) persistLocked(ctx context.Context, ownerID string, state *cartState) {
	var err error
	if len(state.items) == 0 {
		err = m.repo.Clear(ctx, ownerID)
	} else {
		err = m.repo.Save(ctx, ownerID, copyItems(state.items))
	}
	if err != nil {
		m.logger(ctx, "cart.persist_failed", map[string]any{
			"owner": ownerID,
			"items": len(state.items),
			"error": err.Error(),
		})
	}
}

func copyItems(items []domain.CartItem) []domain.CartItem {
	if len(items) == 0 {
		return nil
	}
	copied := make([]domain.CartItem, len(items))
	copy(copied, items)
	return copied
}
