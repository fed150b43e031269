package domain

import (
	"time"
)

// CartItem is one cart line, keyed by (ProductID, Size). Quantity is at
// least 1 while the line exists; updates that would drop it to zero remove
// the line instead.
type CartItem struct {
	ProductID   string    `json:"productId" firestore:"product_id"`
	Name        string    `json:"name" firestore:"name"`
	UnitPrice   float64   `json:"unitPrice" firestore:"unit_price"`
	Size        string    `json:"size" firestore:"size"`
	ImageRef    string    `json:"imageRef,omitempty" firestore:"image_ref,omitempty"`
	Quantity    int       `json:"quantity" firestore:"quantity"`
	Description string    `json:"description,omitempty" firestore:"description,omitempty"`
	AddedAt     time.Time `json:"addedAt" firestore:"added_at"`
}

// Matches reports whether the line is identified by the given key.
func (i CartItem) Matches(productID, size string) bool {
	return i.ProductID == productID && i.Size == size
}

// CartTotal sums unitPrice×quantity over the lines in input order.
func CartTotal(items []CartItem) float64 {
	var total float64
	for _, item := range items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total
}

// CartItemCount sums the quantities of all lines.
func CartItemCount(items []CartItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

// ConversionEvent is an append-only marketing telemetry record. The log is
// in-memory only and cleared on restart.
type ConversionEvent struct {
	ID        string         `json:"id"`
	Event     string         `json:"event"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// Conversion event names emitted by the marketing manager.
const (
	EventAbandonedCartEmailSent = "abandoned_cart_email_sent"
	EventWelcomeEmailSent       = "welcome_email_sent"
	EventPostPurchaseEmailSent  = "post_purchase_email_sent"
	EventWinBackEmailSent       = "win_back_email_sent"
	EventAbandonedCartSMSSent   = "abandoned_cart_sms_sent"
	EventShippingUpdateSMSSent  = "shipping_update_sms_sent"
	EventVIPStatusGranted       = "vip_status_granted"
	EventScarcityAlertTriggered = "scarcity_alert_triggered"
	EventDropCountdownStarted   = "drop_countdown_started"
	EventWaitlistSignup         = "waitlist_signup"
	EventEarlyAccessGranted     = "early_access_granted"
	EventExclusiveDropCreated   = "exclusive_drop_created"
)

// Drop is a limited product release. Active drops live in memory only.
type Drop struct {
	ID         string    `json:"id"`
	Products   []string  `json:"products"`
	MemberOnly bool      `json:"memberOnly"`
	CreatedAt  time.Time `json:"createdAt"`
	MaxPieces  int       `json:"maxPieces"`
}

// EmailRecord captures a collected email address and the touchpoint that
// produced it. Metadata holds source-specific context such as the viewed
// product or the abandoned cart value.
type EmailRecord struct {
	Email        string         `json:"email" firestore:"email"`
	Source       string         `json:"source" firestore:"source"`
	Subscribed   bool           `json:"subscribed" firestore:"subscribed"`
	Metadata     map[string]any `json:"metadata,omitempty" firestore:"metadata,omitempty"`
	CollectedAt  time.Time      `json:"collectedAt" firestore:"collected_at"`
	SubscribedAt time.Time      `json:"subscribedAt" firestore:"subscribed_at"`
}

// Email collection sources.
const (
	EmailSourceWaitlist   = "waitlist"
	EmailSourceCart       = "cart"
	EmailSourceCheckout   = "checkout"
	EmailSourcePopup      = "popup"
	EmailSourceNewsletter = "newsletter"
)

// AbandonedCart is a snapshot of a cart recorded when an abandonment email
// goes out, kept so recovery can be measured later.
type AbandonedCart struct {
	Email       string     `json:"email" firestore:"email"`
	Items       []CartItem `json:"items" firestore:"items"`
	CartValue   float64    `json:"cartValue" firestore:"cart_value"`
	AbandonedAt time.Time  `json:"abandonedAt" firestore:"abandoned_at"`
	Recovered   bool       `json:"recovered" firestore:"recovered"`
	RecoveredAt *time.Time `json:"recoveredAt,omitempty" firestore:"recovered_at,omitempty"`
}
