package services

import (
	"context"
	"time"

	domain "github.com/yemalin/api/internal/domain"
	"github.com/yemalin/api/internal/notifications"
	"github.com/yemalin/api/internal/platform/pagination"
)

// CartManager owns per-owner cart state: memory is authoritative, the store
// mirrors it. Mutations never fail from the caller's view; persistence
// problems are logged and swallowed.
type CartManager interface {
	// Load hydrates the owner's cart from the store. A failed or missing
	// read leaves the cart empty. Loading again is a no-op.
	Load(ctx context.Context, ownerID string)
	Loaded(ownerID string) bool

	Items(ctx context.Context, ownerID string) []domain.CartItem
	AddItem(ctx context.Context, ownerID string, item domain.CartItem) []domain.CartItem
	RemoveItem(ctx context.Context, ownerID, productID, size string) []domain.CartItem
	UpdateQuantity(ctx context.Context, ownerID, productID, size string, quantity int) []domain.CartItem
	Clear(ctx context.Context, ownerID string)

	Total(ctx context.Context, ownerID string) float64
	ItemQuantity(ctx context.Context, ownerID, productID, size string) int
	Contains(ctx context.Context, ownerID, productID, size string) bool
	ItemCount(ctx context.Context, ownerID string) int
}

// OrderDetails carries the order context for post-purchase messaging.
type OrderDetails struct {
	OrderID string  `json:"orderId"`
	Total   float64 `json:"total"`
}

// TrackingInfo carries shipment details for shipping-update messaging.
type TrackingInfo struct {
	TrackingNumber string `json:"trackingNumber"`
	Carrier        string `json:"carrier,omitempty"`
}

// WaitlistSignup carries a waitlist join request. Locale is a BCP 47 tag
// matched against the supported marketing locales; unknown values fall back
// to English.
type WaitlistSignup struct {
	Email     string `json:"email"`
	ProductID string `json:"productId,omitempty"`
	Locale    string `json:"locale,omitempty"`
}

// MarketingManager owns the promotional configuration, the waitlist counter,
// the conversion-event log, and the notification triggers. All operations
// are best-effort: storage failures are logged, never surfaced.
type MarketingManager interface {
	Load(ctx context.Context)

	Config() domain.MarketingConfig
	UpdateConfig(ctx context.Context, cfg domain.MarketingConfig)
	WaitlistCount() int64

	TrackConversion(ctx context.Context, event string, data map[string]any)
	Events() []domain.ConversionEvent

	SendAbandonedCartEmail(ctx context.Context, email string, items []domain.CartItem)
	SendWelcomeEmail(ctx context.Context, email string)
	SendPostPurchaseEmail(ctx context.Context, email string, order OrderDetails)
	SendWinBackEmail(ctx context.Context, email string)
	SendAbandonedCartSMS(ctx context.Context, phone string, items []domain.CartItem)
	SendShippingUpdateSMS(ctx context.Context, phone string, tracking TrackingInfo)

	CreateScarcityAlert(ctx context.Context, productID string, stock int)
	UpdateVIPStatus(ctx context.Context, userID string, totalSpent float64)
	AddToWaitlist(ctx context.Context, signup WaitlistSignup) error
	GrantEarlyAccess(ctx context.Context, userID string)
	TriggerDropCountdown(ctx context.Context, dropAt time.Time)
	CreateExclusiveDrop(ctx context.Context, products []string, memberOnly bool) domain.Drop
	ActiveDrops() []domain.Drop
}

// VIPService derives tier state from lifetime spend and maintains the
// per-user stats cache.
type VIPService interface {
	Stats(ctx context.Context, userID string, totalSpent float64, memberSince string) (domain.VIPStats, error)
	Refresh(ctx context.Context, userID string, totalSpent float64, memberSince string) (domain.VIPStats, error)
	Offers(totalSpent float64) []domain.VIPOffer
	Benefits(totalSpent float64) []string
	ApplyDiscount(totalSpent, subtotal float64) float64
	EarlyAccess(totalSpent float64, productID string) bool
}

// NotificationDispatcher delivers rendered notification jobs through a
// bounded worker pool. Flush joins all in-flight sends at a checkpoint;
// Close flushes and stops the workers.
type NotificationDispatcher interface {
	Enqueue(ctx context.Context, job notifications.Job) error
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

// AnalyticsService serves the aggregate admin statistics. The numbers are
// fixed mock data shaped like the production reports.
type AnalyticsService interface {
	Dashboard() DashboardSnapshot
	EmailStats() EmailStats
	ListEmails(params pagination.Params, source string, subscribed *bool) EmailListPage
	UpdateEmailSubscription(ctx context.Context, email string, subscribed bool) (SubscriptionUpdateResult, error)
	CartStats() CartStats
	ListAbandonedCarts(params pagination.Params, recovered *bool) AbandonedCartPage
	MarkCartRecovered(ctx context.Context, email string) (CartRecoveryResult, error)
	Analytics(dateRange pagination.DateRange) AnalyticsReport
	ConversionFunnel() ConversionFunnel
	OrderStats() OrderStats
	ListOrders(params pagination.Params, status string) OrderListPage
}
