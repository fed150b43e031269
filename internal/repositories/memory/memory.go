// Package memory provides in-memory repository implementations used by
// tests and local runs without a Firestore emulator.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/yemalin/api/internal/domain"
	"github.com/yemalin/api/internal/repositories"
)

type notFoundError struct {
	what string
}

func (e *notFoundError) Error() string       { return fmt.Sprintf("%s not found", e.what) }
func (e *notFoundError) IsNotFound() bool    { return true }
func (e *notFoundError) IsConflict() bool    { return false }
func (e *notFoundError) IsUnavailable() bool { return false }

var _ repositories.RepositoryError = (*notFoundError)(nil)

// CartRepository keeps cart blobs in a map keyed by owner.
type CartRepository struct {
	mu    sync.Mutex
	carts map[string][]domain.CartItem
}

// NewCartRepository constructs an empty in-memory cart repository.
func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[string][]domain.CartItem)}
}

// Load implements repositories.CartRepository.
func (r *CartRepository) Load(_ context.Context, ownerID string) ([]domain.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.carts[ownerID]
	copied := make([]domain.CartItem, len(items))
	copy(copied, items)
	return copied, nil
}

// Save implements repositories.CartRepository.
func (r *CartRepository) Save(_ context.Context, ownerID string, items []domain.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := make([]domain.CartItem, len(items))
	copy(copied, items)
	r.carts[ownerID] = copied
	return nil
}

// Clear implements repositories.CartRepository.
func (r *CartRepository) Clear(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, ownerID)
	return nil
}

// MarketingConfigRepository stores a single config value.
type MarketingConfigRepository struct {
	mu     sync.Mutex
	cfg    domain.MarketingConfig
	stored bool
}

// NewMarketingConfigRepository constructs an in-memory marketing config store.
func NewMarketingConfigRepository() *MarketingConfigRepository {
	return &MarketingConfigRepository{}
}

// Load returns the stored config or the defaults when nothing was stored.
func (r *MarketingConfigRepository) Load(_ context.Context) (domain.MarketingConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.stored {
		return domain.DefaultMarketingConfig(), nil
	}
	return r.cfg, nil
}

// Save implements repositories.MarketingConfigRepository.
func (r *MarketingConfigRepository) Save(_ context.Context, cfg domain.MarketingConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cfg = cfg
	r.stored = true
	return nil
}

// WaitlistRepository implements the counter on a mutex-guarded integer.
type WaitlistRepository struct {
	mu    sync.Mutex
	count int64
}

// NewWaitlistRepository seeds the counter at the given value.
func NewWaitlistRepository(seed int64) *WaitlistRepository {
	return &WaitlistRepository{count: seed}
}

// Count implements repositories.WaitlistRepository.
func (r *WaitlistRepository) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count, nil
}

// Increment implements repositories.WaitlistRepository.
func (r *WaitlistRepository) Increment(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return r.count, nil
}

// EmailRepository stores email records and abandoned-cart snapshots.
type EmailRepository struct {
	mu        sync.Mutex
	records   map[string]domain.EmailRecord
	abandoned map[string]domain.AbandonedCart
}

// NewEmailRepository constructs an empty in-memory email store.
func NewEmailRepository() *EmailRepository {
	return &EmailRepository{
		records:   make(map[string]domain.EmailRecord),
		abandoned: make(map[string]domain.AbandonedCart),
	}
}

// SaveRecord implements repositories.EmailRepository.
func (r *EmailRepository) SaveRecord(_ context.Context, record domain.EmailRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record.Email = normalizeEmail(record.Email)
	r.records[record.Email] = record
	return nil
}

// SetSubscribed implements repositories.EmailRepository.
func (r *EmailRepository) SetSubscribed(_ context.Context, email string, subscribed bool, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := normalizeEmail(email)
	record, ok := r.records[key]
	if !ok {
		return &notFoundError{what: "email record"}
	}
	record.Subscribed = subscribed
	record.SubscribedAt = now.UTC()
	r.records[key] = record
	return nil
}

// SaveAbandonedCart implements repositories.EmailRepository.
func (r *EmailRepository) SaveAbandonedCart(_ context.Context, cart domain.AbandonedCart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart.Email = normalizeEmail(cart.Email)
	r.abandoned[cart.Email] = cart
	return nil
}

// MarkCartRecovered implements repositories.EmailRepository.
func (r *EmailRepository) MarkCartRecovered(_ context.Context, email string, recoveredAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := normalizeEmail(email)
	cart, ok := r.abandoned[key]
	if !ok {
		return &notFoundError{what: "abandoned cart"}
	}
	at := recoveredAt.UTC()
	cart.Recovered = true
	cart.RecoveredAt = &at
	r.abandoned[key] = cart
	return nil
}

// Record returns the stored record for test assertions.
func (r *EmailRepository) Record(email string) (domain.EmailRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[normalizeEmail(email)]
	return record, ok
}

// AbandonedCart returns the stored snapshot for test assertions.
func (r *EmailRepository) AbandonedCart(email string) (domain.AbandonedCart, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.abandoned[normalizeEmail(email)]
	return cart, ok
}

// VIPStatsRepository caches stats per user in a map.
type VIPStatsRepository struct {
	mu    sync.Mutex
	stats map[string]domain.VIPStats
}

// NewVIPStatsRepository constructs an empty in-memory stats cache.
func NewVIPStatsRepository() *VIPStatsRepository {
	return &VIPStatsRepository{stats: make(map[string]domain.VIPStats)}
}

// Get implements repositories.VIPStatsRepository.
func (r *VIPStatsRepository) Get(_ context.Context, userID string) (domain.VIPStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, ok := r.stats[userID]
	if !ok {
		return domain.VIPStats{}, &notFoundError{what: "vip stats"}
	}
	return stats, nil
}

// Save implements repositories.VIPStatsRepository.
func (r *VIPStatsRepository) Save(_ context.Context, userID string, stats domain.VIPStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats[userID] = stats
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var (
	_ repositories.CartRepository            = (*CartRepository)(nil)
	_ repositories.MarketingConfigRepository = (*MarketingConfigRepository)(nil)
	_ repositories.WaitlistRepository        = (*WaitlistRepository)(nil)
	_ repositories.EmailRepository           = (*EmailRepository)(nil)
	_ repositories.VIPStatsRepository        = (*VIPStatsRepository)(nil)
)
