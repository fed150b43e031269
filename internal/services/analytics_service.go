package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	domain "github.com/yemalin/api/internal/domain"
	"github.com/yemalin/api/internal/platform/pagination"
	"github.com/yemalin/api/internal/repositories"
)

// ErrAnalyticsInvalidInput indicates the caller supplied invalid reporting parameters.
var ErrAnalyticsInvalidInput = errors.New("analytics: invalid input")

// DashboardSnapshot aggregates the top-line admin metrics.
type DashboardSnapshot struct {
	Emails    EmailSummary     `json:"emails"`
	Carts     CartSummary      `json:"carts"`
	Orders    OrderSummary     `json:"orders"`
	Users     UserSummary      `json:"users"`
	Marketing MarketingSummary `json:"marketing"`
}

// EmailSummary breaks collected addresses down by subscription state and source.
type EmailSummary struct {
	Total        int            `json:"total"`
	Subscribed   int            `json:"subscribed"`
	Unsubscribed int            `json:"unsubscribed"`
	BySource     map[string]int `json:"bySource"`
}

// CartSummary reports abandonment and recovery totals.
type CartSummary struct {
	Abandoned        int     `json:"abandoned"`
	Recovered        int     `json:"recovered"`
	RecoveryRate     float64 `json:"recoveryRate"`
	TotalValue       float64 `json:"totalValue"`
	AverageCartValue float64 `json:"averageCartValue"`
}

// OrderSummary reports order volume and revenue.
type OrderSummary struct {
	Total             int     `json:"total"`
	Revenue           float64 `json:"revenue"`
	AverageOrderValue float64 `json:"averageOrderValue"`
	Today             int     `json:"today"`
	ThisWeek          int     `json:"thisWeek"`
	ThisMonth         int     `json:"thisMonth"`
}

// UserSummary reports the customer base split.
type UserSummary struct {
	Total    int `json:"total"`
	VIP      int `json:"vip"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

// MarketingSummary reports campaign engagement rates.
type MarketingSummary struct {
	EmailsSent     int     `json:"emailsSent"`
	OpenRate       float64 `json:"openRate"`
	ClickRate      float64 `json:"clickRate"`
	ConversionRate float64 `json:"conversionRate"`
}

// EmailStats extends the email summary with growth figures.
type EmailStats struct {
	Total        int            `json:"total"`
	Subscribed   int            `json:"subscribed"`
	Unsubscribed int            `json:"unsubscribed"`
	BySource     map[string]int `json:"bySource"`
	Growth       GrowthStats    `json:"growth"`
}

// GrowthStats reports signups per reporting window.
type GrowthStats struct {
	Today     int `json:"today"`
	ThisWeek  int `json:"thisWeek"`
	ThisMonth int `json:"thisMonth"`
}

// EmailListPage is the paginated email listing. The backing store exposes no
// listing yet, so pages are empty with correct paging metadata.
type EmailListPage struct {
	Emails     []domain.EmailRecord `json:"emails"`
	Total      int                  `json:"total"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int                  `json:"totalPages"`
}

// SubscriptionUpdateResult echoes a subscription mutation.
type SubscriptionUpdateResult struct {
	Success    bool   `json:"success"`
	Email      string `json:"email"`
	Subscribed bool   `json:"subscribed"`
}

// CartStats extends the cart summary with reminder breakdowns.
type CartStats struct {
	CartSummary
	RemindersSent      ReminderBreakdown `json:"remindersSent"`
	RecoveryByReminder ReminderBreakdown `json:"recoveryByReminder"`
}

// ReminderBreakdown counts the three-step reminder sequence.
type ReminderBreakdown struct {
	First  int `json:"first"`
	Second int `json:"second"`
	Third  int `json:"third"`
}

// AbandonedCartPage is the paginated abandoned-cart listing.
type AbandonedCartPage struct {
	Carts      []domain.AbandonedCart `json:"carts"`
	Total      int                    `json:"total"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	TotalPages int                    `json:"totalPages"`
}

// CartRecoveryResult echoes a manual cart-recovery mutation.
type CartRecoveryResult struct {
	Success     bool      `json:"success"`
	Email       string    `json:"email"`
	RecoveredAt time.Time `json:"recoveredAt"`
}

// AnalyticsReport is the dateRange-scoped analytics overview.
type AnalyticsReport struct {
	DateRange   pagination.DateRange `json:"dateRange"`
	Conversions ConversionRates      `json:"conversions"`
	Marketing   MarketingMetrics     `json:"marketing"`
	Revenue     RevenueBreakdown     `json:"revenue"`
	Traffic     TrafficStats         `json:"traffic"`
}

// ConversionRates reports step-to-step funnel percentages.
type ConversionRates struct {
	HomepageToShop  float64 `json:"homepageToShop"`
	ShopToCart      float64 `json:"shopToCart"`
	CartToCheckout  float64 `json:"cartToCheckout"`
	CheckoutToOrder float64 `json:"checkoutToOrder"`
	Overall         float64 `json:"overall"`
}

// MarketingMetrics reports email campaign engagement.
type MarketingMetrics struct {
	EmailsSent          int     `json:"emailsSent"`
	EmailsOpened        int     `json:"emailsOpened"`
	EmailsClicked       int     `json:"emailsClicked"`
	EmailOpenRate       float64 `json:"emailOpenRate"`
	EmailClickRate      float64 `json:"emailClickRate"`
	EmailConversionRate float64 `json:"emailConversionRate"`
}

// RevenueBreakdown splits revenue by origin.
type RevenueBreakdown struct {
	Total              float64 `json:"total"`
	FromCartRecovery   float64 `json:"fromCartRecovery"`
	RecoveryPercentage float64 `json:"recoveryPercentage"`
	AverageOrderValue  float64 `json:"averageOrderValue"`
}

// TrafficStats reports site traffic aggregates.
type TrafficStats struct {
	Visitors               int     `json:"visitors"`
	Sessions               int     `json:"sessions"`
	PageViews              int     `json:"pageViews"`
	AverageSessionDuration int     `json:"averageSessionDuration"`
	BounceRate             float64 `json:"bounceRate"`
}

// ConversionFunnel is the ordered funnel with drop-off between steps.
type ConversionFunnel struct {
	Steps   []FunnelStep    `json:"steps"`
	DropOff []FunnelDropOff `json:"dropOff"`
}

// FunnelStep is one stage of the conversion funnel.
type FunnelStep struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// FunnelDropOff reports the loss between two consecutive steps.
type FunnelDropOff struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Lost       int     `json:"lost"`
	Percentage float64 `json:"percentage"`
}

// OrderStats extends the order summary with a status breakdown.
type OrderStats struct {
	OrderSummary
	ByStatus map[string]int `json:"byStatus"`
}

// OrderListPage is the paginated order listing.
type OrderListPage struct {
	Orders     []any  `json:"orders"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"totalPages"`
	Status     string `json:"status,omitempty"`
}

// AnalyticsServiceDeps bundles collaborators for the analytics service.
type AnalyticsServiceDeps struct {
	Emails repositories.EmailRepository
	Clock  func() time.Time
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type analyticsService struct {
	emails repositories.EmailRepository
	clock  func() time.Time
	logger func(context.Context, string, map[string]any)
}

// NewAnalyticsService constructs the aggregate reporting service. The
// report numbers are fixed mock data; only the subscription and recovery
// mutations touch the store.
func NewAnalyticsService(deps AnalyticsServiceDeps) (AnalyticsService, error) {
	if deps.Emails == nil {
		return nil, errors.New("analytics service: email repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &analyticsService{
		emails: deps.Emails,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *analyticsService) Dashboard() DashboardSnapshot {
	return DashboardSnapshot{
		Emails: EmailSummary{
			Total:        3247,
			Subscribed:   3100,
			Unsubscribed: 147,
			BySource:     emailsBySource(),
		},
		Carts:  mockCartSummary(),
		Orders: mockOrderSummary(),
		Users: UserSummary{
			Total:    3247,
			VIP:      280,
			Active:   2100,
			Inactive: 867,
		},
		Marketing: MarketingSummary{
			EmailsSent:     5420,
			OpenRate:       38.5,
			ClickRate:      9.2,
			ConversionRate: 3.8,
		},
	}
}

func (s *analyticsService) EmailStats() EmailStats {
	return EmailStats{
		Total:        3247,
		Subscribed:   3100,
		Unsubscribed: 147,
		BySource:     emailsBySource(),
		Growth: GrowthStats{
			Today:     12,
			ThisWeek:  84,
			ThisMonth: 320,
		},
	}
}

func (s *analyticsService) ListEmails(params pagination.Params, _ string, _ *bool) EmailListPage {
	params = pagination.Must(params)
	return EmailListPage{
		Emails:     []domain.EmailRecord{},
		Total:      0,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: 0,
	}
}

func (s *analyticsService) UpdateEmailSubscription(ctx context.Context, email string, subscribed bool) (SubscriptionUpdateResult, error) {
	email, err := normalizeEmailAddress(email)
	if err != nil {
		return SubscriptionUpdateResult{}, err
	}

	if err := s.emails.SetSubscribed(ctx, email, subscribed, s.clock()); err != nil && !repositories.IsNotFound(err) {
		return SubscriptionUpdateResult{}, err
	}

	s.logger(ctx, "analytics.subscription_updated", map[string]any{
		"subscribed": subscribed,
	})
	return SubscriptionUpdateResult{
		Success:    true,
		Email:      email,
		Subscribed: subscribed,
	}, nil
}

func (s *analyticsService) CartStats() CartStats {
	return CartStats{
		CartSummary: mockCartSummary(),
		RemindersSent: ReminderBreakdown{
			First:  1240,
			Second: 920,
			Third:  650,
		},
		RecoveryByReminder: ReminderBreakdown{
			First:  180,
			Second: 140,
			Third:  60,
		},
	}
}

func (s *analyticsService) ListAbandonedCarts(params pagination.Params, _ *bool) AbandonedCartPage {
	params = pagination.Must(params)
	return AbandonedCartPage{
		Carts:      []domain.AbandonedCart{},
		Total:      0,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: 0,
	}
}

func (s *analyticsService) MarkCartRecovered(ctx context.Context, email string) (CartRecoveryResult, error) {
	email, err := normalizeEmailAddress(email)
	if err != nil {
		return CartRecoveryResult{}, err
	}

	now := s.clock()
	if err := s.emails.MarkCartRecovered(ctx, email, now); err != nil && !repositories.IsNotFound(err) {
		return CartRecoveryResult{}, err
	}

	s.logger(ctx, "analytics.cart_recovered", nil)
	return CartRecoveryResult{
		Success:     true,
		Email:       email,
		RecoveredAt: now,
	}, nil
}

func (s *analyticsService) Analytics(dateRange pagination.DateRange) AnalyticsReport {
	if dateRange == "" {
		dateRange = pagination.RangeMonth
	}
	return AnalyticsReport{
		DateRange: dateRange,
		Conversions: ConversionRates{
			HomepageToShop:  45.2,
			ShopToCart:      32.1,
			CartToCheckout:  28.5,
			CheckoutToOrder: 92.3,
			Overall:         3.8,
		},
		Marketing: MarketingMetrics{
			EmailsSent:          5420,
			EmailsOpened:        2087,
			EmailsClicked:       499,
			EmailOpenRate:       38.5,
			EmailClickRate:      9.2,
			EmailConversionRate: 3.8,
		},
		Revenue: RevenueBreakdown{
			Total:              184000,
			FromCartRecovery:   46000,
			RecoveryPercentage: 25.0,
			AverageOrderValue:  200,
		},
		Traffic: TrafficStats{
			Visitors:               12500,
			Sessions:               18200,
			PageViews:              45600,
			AverageSessionDuration: 245,
			BounceRate:             32.1,
		},
	}
}

func (s *analyticsService) ConversionFunnel() ConversionFunnel {
	return ConversionFunnel{
		Steps: []FunnelStep{
			{Name: "Homepage Views", Count: 12500, Percentage: 100},
			{Name: "Shop Visits", Count: 5650, Percentage: 45.2},
			{Name: "Add to Cart", Count: 1813, Percentage: 32.1},
			{Name: "Checkout Started", Count: 517, Percentage: 28.5},
			{Name: "Order Completed", Count: 477, Percentage: 92.3},
		},
		DropOff: []FunnelDropOff{
			{From: "Homepage", To: "Shop", Lost: 6850, Percentage: 54.8},
			{From: "Shop", To: "Cart", Lost: 3837, Percentage: 67.9},
			{From: "Cart", To: "Checkout", Lost: 1296, Percentage: 71.5},
			{From: "Checkout", To: "Order", Lost: 40, Percentage: 7.7},
		},
	}
}

func (s *analyticsService) OrderStats() OrderStats {
	return OrderStats{
		OrderSummary: mockOrderSummary(),
		ByStatus: map[string]int{
			"processing": 45,
			"shipped":    320,
			"delivered":  520,
			"cancelled":  35,
		},
	}
}

func (s *analyticsService) ListOrders(params pagination.Params, status string) OrderListPage {
	params = pagination.Must(params)
	return OrderListPage{
		Orders:     []any{},
		Total:      0,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: 0,
		Status:     strings.TrimSpace(status),
	}
}

func mockCartSummary() CartSummary {
	return CartSummary{
		Abandoned:        1240,
		Recovered:        380,
		RecoveryRate:     30.6,
		TotalValue:       248000,
		AverageCartValue: 200,
	}
}

func mockOrderSummary() OrderSummary {
	return OrderSummary{
		Total:             920,
		Revenue:           184000,
		AverageOrderValue: 200,
		Today:             12,
		ThisWeek:          84,
		ThisMonth:         320,
	}
}

func emailsBySource() map[string]int {
	return map[string]int{
		domain.EmailSourceWaitlist:   1500,
		domain.EmailSourceCart:       800,
		domain.EmailSourceCheckout:   600,
		domain.EmailSourcePopup:      247,
		domain.EmailSourceNewsletter: 100,
	}
}

func normalizeEmailAddress(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrAnalyticsInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: malformed email", ErrAnalyticsInvalidInput)
	}
	return email, nil
}
