package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"golang.org/x/text/language"

	domain "github.com/yemalin/api/internal/domain"
	"github.com/yemalin/api/internal/notifications"
	"github.com/yemalin/api/internal/repositories"
)

// ErrMarketingInvalidInput indicates the caller supplied invalid marketing parameters.
var ErrMarketingInvalidInput = errors.New("marketing: invalid input")

// Locales the storefront ships marketing copy in. Signup locales are
// matched against this set; everything else falls back to English.
var supportedMarketingLocales = []language.Tag{
	language.English,
	language.French,
	language.German,
	language.Italian,
	language.Japanese,
}

var marketingLocaleMatcher = language.NewMatcher(supportedMarketingLocales)

// MarketingManagerDeps bundles collaborators required to construct the marketing manager.
type MarketingManagerDeps struct {
	ConfigRepository repositories.MarketingConfigRepository
	Waitlist         repositories.WaitlistRepository
	Emails           repositories.EmailRepository
	Dispatcher       NotificationDispatcher
	Clock            func() time.Time
	IDGenerator      func() string
	Logger           func(ctx context.Context, event string, fields map[string]any)
}

type marketingManager struct {
	configRepo repositories.MarketingConfigRepository
	waitlist   repositories.WaitlistRepository
	emails     repositories.EmailRepository
	dispatcher NotificationDispatcher
	clock      func() time.Time
	newID      func() string
	logger     func(context.Context, string, map[string]any)
	sanitizer  *bluemonday.Policy

	mu            sync.Mutex
	config        domain.MarketingConfig
	waitlistCount int64
	events        []domain.ConversionEvent
	drops         []domain.Drop
}

// NewMarketingManager constructs the marketing state manager. State is
// loaded once via Load; all operations afterwards are best-effort and never
// surface storage failures.
func NewMarketingManager(deps MarketingManagerDeps) (MarketingManager, error) {
	if deps.ConfigRepository == nil {
		return nil, errors.New("marketing manager: config repository is required")
	}
	if deps.Waitlist == nil {
		return nil, errors.New("marketing manager: waitlist repository is required")
	}
	if deps.Emails == nil {
		return nil, errors.New("marketing manager: email repository is required")
	}
	if deps.Dispatcher == nil {
		return nil, errors.New("marketing manager: dispatcher is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string {
			return ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &marketingManager{
		configRepo: deps.ConfigRepository,
		waitlist:   deps.Waitlist,
		emails:     deps.Emails,
		dispatcher: deps.Dispatcher,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:         newID,
		logger:        logger,
		sanitizer:     bluemonday.StrictPolicy(),
		config:        domain.DefaultMarketingConfig(),
		waitlistCount: domain.DefaultWaitlistSeed,
	}, nil
}

// Load hydrates the configuration and the waitlist counter. Either read
// failing falls back to the built-in defaults / counter seed.
func (m *marketingManager) Load(ctx context.Context) {
	cfg, err := m.configRepo.Load(ctx)
	if err != nil {
		m.logger(ctx, "marketing.config_load_failed", map[string]any{"error": err.Error()})
		cfg = domain.DefaultMarketingConfig()
	}

	count, err := m.waitlist.Count(ctx)
	if err != nil {
		m.logger(ctx, "marketing.waitlist_load_failed", map[string]any{"error": err.Error()})
		count = domain.DefaultWaitlistSeed
	}

	m.mu.Lock()
	m.config = cfg
	m.waitlistCount = count
	m.mu.Unlock()
}

// Config returns the current configuration snapshot.
func (m *marketingManager) Config() domain.MarketingConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// UpdateConfig replaces the configuration wholesale and persists it.
// Numeric fields are trusted input; copy fields are stripped of HTML since
// they are rendered into outbound messages.
func (m *marketingManager) UpdateConfig(ctx context.Context, cfg domain.MarketingConfig) {
	m.sanitizeConfig(&cfg)

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()

	if err := m.configRepo.Save(ctx, cfg); err != nil {
		m.logger(ctx, "marketing.config_persist_failed", map[string]any{"error": err.Error()})
	}
}

// WaitlistCount returns the last observed counter value.
func (m *marketingManager) WaitlistCount() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waitlistCount
}

// TrackConversion appends an event to the in-memory log. The log is
// unbounded and not persisted.
func (m *marketingManager) TrackConversion(ctx context.Context, event string, data map[string]any) {
	recorded := m.appendEvent(event, data)
	m.logger(ctx, "marketing.conversion", map[string]any{
		"event":    recorded.Event,
		"event_id": recorded.ID,
	})
}

// Events returns a copy of the conversion-event log.
func (m *marketingManager) Events() []domain.ConversionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := make([]domain.ConversionEvent, len(m.events))
	copy(events, m.events)
	return events
}

// SendAbandonedCartEmail records the address and the cart snapshot, queues
// the recovery email, and emits the conversion event. Calls repeat every
// effect; there is no dedup.
func (m *marketingManager) SendAbandonedCartEmail(ctx context.Context, email string, items []domain.CartItem) {
	cfg := m.Config()
	now := m.clock()
	cartValue := domain.CartTotal(items)

	m.saveEmailRecord(ctx, email, domain.EmailSourceCart, map[string]any{
		"cartValue": cartValue,
		"cartItems": len(items),
	})
	if err := m.emails.SaveAbandonedCart(ctx, domain.AbandonedCart{
		Email:       email,
		Items:       items,
		CartValue:   cartValue,
		AbandonedAt: now,
	}); err != nil {
		m.logger(ctx, "marketing.abandoned_cart_persist_failed", map[string]any{"error": err.Error()})
	}

	urgency := ""
	if len(cfg.AbandonedCartFlow.UrgencyMessages) > 0 {
		urgency = cfg.AbandonedCartFlow.UrgencyMessages[0]
	}
	offer := ""
	if len(cfg.AbandonedCartFlow.DiscountOffers) > 0 {
		offer = cfg.AbandonedCartFlow.DiscountOffers[0]
	}
	m.enqueueEmail(ctx, email, notifications.TemplateAbandonedCart, map[string]string{
		"urgencyMessage": urgency,
		"discountOffer":  offer,
		"cartValue":      formatAmount(cartValue),
	})

	m.appendEvent(domain.EventAbandonedCartEmailSent, map[string]any{
		"email":     email,
		"cartValue": cartValue,
	})
}

// SendWelcomeEmail queues the welcome series opener and emits the event.
func (m *marketingManager) SendWelcomeEmail(ctx context.Context, email string) {
	cfg := m.Config()

	m.enqueueEmail(ctx, email, notifications.TemplateWelcomeSeries, map[string]string{
		"discount":   strconv.Itoa(cfg.FirstOrderDiscount.Percentage),
		"code":       "WELCOME15",
		"brandStory": cfg.PrePurchaseFlow.BrandStory,
	})

	m.appendEvent(domain.EventWelcomeEmailSent, map[string]any{"email": email})
}

// SendPostPurchaseEmail queues the order follow-up and emits the event.
func (m *marketingManager) SendPostPurchaseEmail(ctx context.Context, email string, order OrderDetails) {
	cfg := m.Config()

	m.enqueueEmail(ctx, email, notifications.TemplatePostPurchase, map[string]string{
		"thankYouMessage": cfg.PostPurchaseFlow.ThankYouMessage,
		"deliveryInfo":    cfg.PostPurchaseFlow.DeliveryInfo,
		"orderId":         order.OrderID,
	})

	m.appendEvent(domain.EventPostPurchaseEmailSent, map[string]any{
		"email":      email,
		"orderValue": order.Total,
	})
}

// SendWinBackEmail queues the win-back offer and emits the event.
func (m *marketingManager) SendWinBackEmail(ctx context.Context, email string) {
	cfg := m.Config()

	m.enqueueEmail(ctx, email, notifications.TemplateWinBack, map[string]string{
		"discount":       "25",
		"exclusiveOffer": cfg.WinBackFlow.ExclusiveOffer,
	})

	m.appendEvent(domain.EventWinBackEmailSent, map[string]any{"email": email})
}

// SendAbandonedCartSMS queues the SMS reminder and emits the event.
func (m *marketingManager) SendAbandonedCartSMS(ctx context.Context, phone string, items []domain.CartItem) {
	cartValue := domain.CartTotal(items)

	m.enqueueSMS(ctx, phone, "abandoned_cart_sms",
		"YÈMALÍN: Your exclusive pieces are waiting. Only a few left. Complete your order.")

	m.appendEvent(domain.EventAbandonedCartSMSSent, map[string]any{
		"phone":     phone,
		"cartValue": cartValue,
	})
}

// SendShippingUpdateSMS queues the tracking notice and emits the event.
func (m *marketingManager) SendShippingUpdateSMS(ctx context.Context, phone string, tracking TrackingInfo) {
	m.enqueueSMS(ctx, phone, "shipping_update_sms",
		fmt.Sprintf("YÈMALÍN: Your exclusive piece is on its way! Track: %s", tracking.TrackingNumber))

	m.appendEvent(domain.EventShippingUpdateSMSSent, map[string]any{"phone": phone})
}

// CreateScarcityAlert emits a low-stock event when stock is at or below the
// configured threshold; above it nothing happens.
func (m *marketingManager) CreateScarcityAlert(ctx context.Context, productID string, stock int) {
	cfg := m.Config()
	if stock > cfg.ScarcityMessages.LowStockThreshold {
		return
	}

	message := ""
	if len(cfg.ScarcityMessages.Messages) > 0 {
		message = notifications.Substitute(cfg.ScarcityMessages.Messages[0], map[string]string{
			"stock": strconv.Itoa(stock),
		})
	}
	m.logger(ctx, "marketing.scarcity_alert", map[string]any{
		"product": productID,
		"stock":   stock,
		"message": message,
	})

	m.appendEvent(domain.EventScarcityAlertTriggered, map[string]any{
		"productId": productID,
		"stock":     stock,
	})
}

// UpdateVIPStatus emits vip_status_granted when the spend crosses the
// segmentation threshold. It does not mutate any persisted VIP record.
func (m *marketingManager) UpdateVIPStatus(ctx context.Context, userID string, totalSpent float64) {
	cfg := m.Config()
	if totalSpent < cfg.VIPSegmentation.SpendingThreshold {
		return
	}

	m.appendEvent(domain.EventVIPStatusGranted, map[string]any{
		"userId":     userID,
		"totalSpent": totalSpent,
	})
	m.logger(ctx, "marketing.vip_granted", map[string]any{
		"user":        userID,
		"total_spent": totalSpent,
	})
}

// AddToWaitlist atomically advances the signup counter, records the email
// under the waitlist source, sends the welcome email, and emits the signup
// event carrying the member position.
func (m *marketingManager) AddToWaitlist(ctx context.Context, signup WaitlistSignup) error {
	email := strings.TrimSpace(signup.Email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrMarketingInvalidInput)
	}

	position, err := m.waitlist.Increment(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.waitlistCount = position
	m.mu.Unlock()

	metadata := map[string]any{
		"locale": normalizeLocale(signup.Locale),
	}
	if signup.ProductID != "" {
		metadata["productViewed"] = signup.ProductID
	}
	m.saveEmailRecord(ctx, email, domain.EmailSourceWaitlist, metadata)

	m.SendWelcomeEmail(ctx, email)

	m.appendEvent(domain.EventWaitlistSignup, map[string]any{
		"email":     email,
		"productId": signup.ProductID,
		"position":  position,
	})
	return nil
}

// GrantEarlyAccess emits early_access_granted for the user.
func (m *marketingManager) GrantEarlyAccess(ctx context.Context, userID string) {
	m.appendEvent(domain.EventEarlyAccessGranted, map[string]any{"userId": userID})
	m.logger(ctx, "marketing.early_access", map[string]any{"user": userID})
}

// TriggerDropCountdown emits drop_countdown_started with the remaining time.
func (m *marketingManager) TriggerDropCountdown(ctx context.Context, dropAt time.Time) {
	remaining := dropAt.Sub(m.clock())

	m.appendEvent(domain.EventDropCountdownStarted, map[string]any{
		"dropDate":      dropAt.UTC().Format(time.RFC3339),
		"timeUntilDrop": remaining.Milliseconds(),
	})
	m.logger(ctx, "marketing.drop_countdown", map[string]any{
		"drop_at":      dropAt.UTC().Format(time.RFC3339),
		"remaining_ms": remaining.Milliseconds(),
	})
}

// CreateExclusiveDrop appends a drop to the in-memory list and emits the
// event. Drops are not persisted and clear on restart.
func (m *marketingManager) CreateExclusiveDrop(ctx context.Context, products []string, memberOnly bool) domain.Drop {
	cfg := m.Config()

	drop := domain.Drop{
		ID:         m.newID(),
		Products:   append([]string(nil), products...),
		MemberOnly: memberOnly,
		CreatedAt:  m.clock(),
		MaxPieces:  cfg.LuxuryStrategy.MaxPiecesPerDrop,
	}

	m.mu.Lock()
	m.drops = append(m.drops, drop)
	m.mu.Unlock()

	m.appendEvent(domain.EventExclusiveDropCreated, map[string]any{
		"dropId":     drop.ID,
		"products":   len(drop.Products),
		"memberOnly": drop.MemberOnly,
		"maxPieces":  drop.MaxPieces,
	})
	return drop
}

// ActiveDrops returns a copy of the in-memory drop list.
func (m *marketingManager) ActiveDrops() []domain.Drop {
	m.mu.Lock()
	defer m.mu.Unlock()

	drops := make([]domain.Drop, len(m.drops))
	copy(drops, m.drops)
	return drops
}

func (m *marketingManager) appendEvent(event string, data map[string]any) domain.ConversionEvent {
	recorded := domain.ConversionEvent{
		ID:        m.newID(),
		Event:     event,
		Data:      data,
		Timestamp: m.clock(),
	}

	m.mu.Lock()
	m.events = append(m.events, recorded)
	m.mu.Unlock()
	return recorded
}

func (m *marketingManager) saveEmailRecord(ctx context.Context, email, source string, metadata map[string]any) {
	err := m.emails.SaveRecord(ctx, domain.EmailRecord{
		Email:       email,
		Source:      source,
		Subscribed:  true,
		Metadata:    metadata,
		CollectedAt: m.clock(),
	})
	if err != nil {
		m.logger(ctx, "marketing.email_persist_failed", map[string]any{
			"source": source,
			"error":  err.Error(),
		})
	}
}

func (m *marketingManager) enqueueEmail(ctx context.Context, recipient, templateID string, vars map[string]string) {
	subject, body, err := notifications.Render(templateID, vars)
	if err != nil {
		m.logger(ctx, "marketing.render_failed", map[string]any{
			"template": templateID,
			"error":    err.Error(),
		})
		return
	}

	err = m.dispatcher.Enqueue(ctx, notifications.Job{
		Channel:   notifications.ChannelEmail,
		Template:  templateID,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		Variables: vars,
	})
	if err != nil {
		m.logger(ctx, "marketing.enqueue_failed", map[string]any{
			"template": templateID,
			"error":    err.Error(),
		})
	}
}

func (m *marketingManager) enqueueSMS(ctx context.Context, recipient, templateID, body string) {
	err := m.dispatcher.Enqueue(ctx, notifications.Job{
		Channel:   notifications.ChannelSMS,
		Template:  templateID,
		Recipient: recipient,
		Body:      body,
	})
	if err != nil {
		m.logger(ctx, "marketing.enqueue_failed", map[string]any{
			"template": templateID,
			"error":    err.Error(),
		})
	}
}

func (m *marketingManager) sanitizeConfig(cfg *domain.MarketingConfig) {
	strip := func(s string) string {
		return m.sanitizer.Sanitize(s)
	}
	stripAll := func(values []string) []string {
		for i, v := range values {
			values[i] = strip(v)
		}
		return values
	}

	cfg.AbandonedCartFlow.UrgencyMessages = stripAll(cfg.AbandonedCartFlow.UrgencyMessages)
	cfg.AbandonedCartFlow.DiscountOffers = stripAll(cfg.AbandonedCartFlow.DiscountOffers)
	cfg.PrePurchaseFlow.WelcomeSeries = stripAll(cfg.PrePurchaseFlow.WelcomeSeries)
	cfg.PrePurchaseFlow.BrandStory = strip(cfg.PrePurchaseFlow.BrandStory)
	cfg.PrePurchaseFlow.QualityPromise = strip(cfg.PrePurchaseFlow.QualityPromise)
	cfg.PrePurchaseFlow.StylingIdeas = stripAll(cfg.PrePurchaseFlow.StylingIdeas)
	cfg.PostPurchaseFlow.ThankYouMessage = strip(cfg.PostPurchaseFlow.ThankYouMessage)
	cfg.PostPurchaseFlow.DeliveryInfo = strip(cfg.PostPurchaseFlow.DeliveryInfo)
	cfg.PostPurchaseFlow.StylingTips = stripAll(cfg.PostPurchaseFlow.StylingTips)
	cfg.PostPurchaseFlow.ReviewRequest = strip(cfg.PostPurchaseFlow.ReviewRequest)
	cfg.WinBackFlow.ExclusiveOffer = strip(cfg.WinBackFlow.ExclusiveOffer)
	cfg.ScarcityMessages.Messages = stripAll(cfg.ScarcityMessages.Messages)
	cfg.VIPSegmentation.Benefits = stripAll(cfg.VIPSegmentation.Benefits)
}

func normalizeLocale(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return "en"
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return "en"
	}
	_, index, _ := marketingLocaleMatcher.Match(tag)
	base, _ := supportedMarketingLocales[index].Base()
	return base.String()
}

func formatAmount(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}
