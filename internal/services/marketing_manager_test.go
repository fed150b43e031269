package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domain "github.com/yemalin/api/internal/domain"
	"github.com/yemalin/api/internal/notifications"
	"github.com/yemalin/api/internal/repositories/memory"
)

type captureDispatcher struct {
	jobs []notifications.Job
}

func (d *captureDispatcher) Enqueue(_ context.Context, job notifications.Job) error {
	d.jobs = append(d.jobs, job)
	return nil
}

func (d *captureDispatcher) Flush(context.Context) error { return nil }
func (d *captureDispatcher) Close(context.Context) error { return nil }

type marketingFixture struct {
	manager    MarketingManager
	dispatcher *captureDispatcher
	emails     *memory.EmailRepository
	waitlist   *memory.WaitlistRepository
}

func newMarketingFixture(t *testing.T) marketingFixture {
	t.Helper()

	dispatcher := &captureDispatcher{}
	emails := memory.NewEmailRepository()
	waitlist := memory.NewWaitlistRepository(3247)

	manager, err := NewMarketingManager(MarketingManagerDeps{
		ConfigRepository: memory.NewMarketingConfigRepository(),
		Waitlist:         waitlist,
		Emails:           emails,
		Dispatcher:       dispatcher,
		Clock:            func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewMarketingManager: %v", err)
	}
	manager.Load(context.Background())

	return marketingFixture{manager: manager, dispatcher: dispatcher, emails: emails, waitlist: waitlist}
}

func eventsNamed(manager MarketingManager, name string) []domain.ConversionEvent {
	var matched []domain.ConversionEvent
	for _, event := range manager.Events() {
		if event.Event == name {
			matched = append(matched, event)
		}
	}
	return matched
}

func TestAddToWaitlistAdvancesPosition(t *testing.T) {
	fx := newMarketingFixture(t)
	ctx := context.Background()

	if got := fx.manager.WaitlistCount(); got != 3247 {
		t.Fatalf("seed count = %d, want 3247", got)
	}

	if err := fx.manager.AddToWaitlist(ctx, WaitlistSignup{Email: "a@example.com"}); err != nil {
		t.Fatalf("AddToWaitlist: %v", err)
	}
	if got := fx.manager.WaitlistCount(); got != 3248 {
		t.Fatalf("count after first signup = %d, want 3248", got)
	}

	if err := fx.manager.AddToWaitlist(ctx, WaitlistSignup{Email: "b@example.com"}); err != nil {
		t.Fatalf("AddToWaitlist: %v", err)
	}
	if got := fx.manager.WaitlistCount(); got != 3249 {
		t.Fatalf("count after second signup = %d, want 3249", got)
	}

	signups := eventsNamed(fx.manager, domain.EventWaitlistSignup)
	if len(signups) != 2 {
		t.Fatalf("signup events = %d, want 2", len(signups))
	}
	if position, ok := signups[0].Data["position"].(int64); !ok || position != 3248 {
		t.Fatalf("first signup position = %v, want 3248", signups[0].Data["position"])
	}
}

func TestAddToWaitlistSideEffects(t *testing.T) {
	fx := newMarketingFixture(t)
	ctx := context.Background()

	err := fx.manager.AddToWaitlist(ctx, WaitlistSignup{
		Email:     "vip@example.com",
		ProductID: "p42",
		Locale:    "fr-CA",
	})
	if err != nil {
		t.Fatalf("AddToWaitlist: %v", err)
	}

	record, ok := fx.emails.Record("vip@example.com")
	if !ok {
		t.Fatal("email record not saved")
	}
	if record.Source != domain.EmailSourceWaitlist {
		t.Fatalf("source = %q, want %q", record.Source, domain.EmailSourceWaitlist)
	}
	if !record.Subscribed {
		t.Fatal("record should start subscribed")
	}
	if got := record.Metadata["locale"]; got != "fr" {
		t.Fatalf("locale = %v, want fr", got)
	}
	if got := record.Metadata["productViewed"]; got != "p42" {
		t.Fatalf("productViewed = %v, want p42", got)
	}

	if len(fx.dispatcher.jobs) != 1 {
		t.Fatalf("expected one welcome email, got %d jobs", len(fx.dispatcher.jobs))
	}
	job := fx.dispatcher.jobs[0]
	if job.Template != notifications.TemplateWelcomeSeries {
		t.Fatalf("template = %q", job.Template)
	}
	if !strings.Contains(job.Body, "15") || !strings.Contains(job.Body, "WELCOME15") {
		t.Fatalf("welcome body missing discount/code: %q", job.Body)
	}
}

func TestAddToWaitlistRejectsEmptyEmail(t *testing.T) {
	fx := newMarketingFixture(t)

	err := fx.manager.AddToWaitlist(context.Background(), WaitlistSignup{Email: "   "})
	if err == nil {
		t.Fatal("expected error for empty email")
	}
	if fx.manager.WaitlistCount() != 3247 {
		t.Fatal("counter must not advance on invalid input")
	}
}

type failingWaitlistRepo struct{}

func (failingWaitlistRepo) Count(context.Context) (int64, error) {
	return 0, errors.New("store unavailable")
}

func (failingWaitlistRepo) Increment(context.Context) (int64, error) {
	return 0, errors.New("store unavailable")
}

func TestLoadKeepsWaitlistSeedOnReadFailure(t *testing.T) {
	manager, err := NewMarketingManager(MarketingManagerDeps{
		ConfigRepository: memory.NewMarketingConfigRepository(),
		Waitlist:         failingWaitlistRepo{},
		Emails:           memory.NewEmailRepository(),
		Dispatcher:       &captureDispatcher{},
	})
	if err != nil {
		t.Fatalf("NewMarketingManager: %v", err)
	}

	manager.Load(context.Background())
	if got := manager.WaitlistCount(); got != domain.DefaultWaitlistSeed {
		t.Fatalf("count after failed read = %d, want %d", got, domain.DefaultWaitlistSeed)
	}
}

func TestScarcityAlertRespectsThreshold(t *testing.T) {
	fx := newMarketingFixture(t)
	ctx := context.Background()

	fx.manager.CreateScarcityAlert(ctx, "p1", 10)
	if got := eventsNamed(fx.manager, domain.EventScarcityAlertTriggered); len(got) != 0 {
		t.Fatalf("stock above threshold must not emit, got %d events", len(got))
	}

	fx.manager.CreateScarcityAlert(ctx, "p1", 3)
	alerts := eventsNamed(fx.manager, domain.EventScarcityAlertTriggered)
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerts))
	}
	if got := alerts[0].Data["stock"]; got != 3 {
		t.Fatalf("stock = %v, want 3", got)
	}
}

func TestUpdateConfigStripsMarkupAndPersists(t *testing.T) {
	repo := memory.NewMarketingConfigRepository()
	manager, err := NewMarketingManager(MarketingManagerDeps{
		ConfigRepository: repo,
		Waitlist:         memory.NewWaitlistRepository(3247),
		Emails:           memory.NewEmailRepository(),
		Dispatcher:       &captureDispatcher{},
	})
	if err != nil {
		t.Fatalf("NewMarketingManager: %v", err)
	}

	cfg := domain.DefaultMarketingConfig()
	cfg.PostPurchaseFlow.ThankYouMessage = `<script>alert(1)</script>Thank you`
	cfg.ScarcityMessages.Messages = []string{`<b>Only {stock} left</b>`}
	manager.UpdateConfig(context.Background(), cfg)

	got := manager.Config()
	if got.PostPurchaseFlow.ThankYouMessage != "Thank you" {
		t.Fatalf("thank you = %q", got.PostPurchaseFlow.ThankYouMessage)
	}
	if got.ScarcityMessages.Messages[0] != "Only {stock} left" {
		t.Fatalf("scarcity message = %q", got.ScarcityMessages.Messages[0])
	}

	persisted, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if persisted.PostPurchaseFlow.ThankYouMessage != "Thank you" {
		t.Fatal("sanitized config was not persisted")
	}
}

func TestAbandonedCartEmailEffects(t *testing.T) {
	fx := newMarketingFixture(t)
	ctx := context.Background()

	items := []domain.CartItem{
		{ProductID: "p1", Size: "M", UnitPrice: 120, Quantity: 2},
	}
	fx.manager.SendAbandonedCartEmail(ctx, "lost@example.com", items)

	cart, ok := fx.emails.AbandonedCart("lost@example.com")
	if !ok {
		t.Fatal("abandoned cart snapshot not saved")
	}
	if cart.CartValue != 240 {
		t.Fatalf("cart value = %v, want 240", cart.CartValue)
	}
	if cart.Recovered {
		t.Fatal("new snapshot must not be marked recovered")
	}

	record, ok := fx.emails.Record("lost@example.com")
	if !ok || record.Source != domain.EmailSourceCart {
		t.Fatalf("email record = %+v, ok=%v", record, ok)
	}

	if len(fx.dispatcher.jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(fx.dispatcher.jobs))
	}
	if fx.dispatcher.jobs[0].Template != notifications.TemplateAbandonedCart {
		t.Fatalf("template = %q", fx.dispatcher.jobs[0].Template)
	}

	events := eventsNamed(fx.manager, domain.EventAbandonedCartEmailSent)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if got := events[0].Data["cartValue"]; got != 240.0 {
		t.Fatalf("event cartValue = %v, want 240", got)
	}
}

func TestVIPStatusThreshold(t *testing.T) {
	fx := newMarketingFixture(t)
	ctx := context.Background()

	fx.manager.UpdateVIPStatus(ctx, "u1", 499.99)
	if got := eventsNamed(fx.manager, domain.EventVIPStatusGranted); len(got) != 0 {
		t.Fatalf("below threshold must not emit, got %d", len(got))
	}

	fx.manager.UpdateVIPStatus(ctx, "u1", 500)
	if got := eventsNamed(fx.manager, domain.EventVIPStatusGranted); len(got) != 1 {
		t.Fatalf("at threshold should emit once, got %d", len(got))
	}
}

func TestCreateExclusiveDrop(t *testing.T) {
	fx := newMarketingFixture(t)
	ctx := context.Background()

	drop := fx.manager.CreateExclusiveDrop(ctx, []string{"p1", "p2"}, true)
	if drop.ID == "" {
		t.Fatal("drop id not assigned")
	}
	if drop.MaxPieces != 50 {
		t.Fatalf("max pieces = %d, want 50", drop.MaxPieces)
	}
	if !drop.MemberOnly {
		t.Fatal("member-only flag lost")
	}

	drops := fx.manager.ActiveDrops()
	if len(drops) != 1 || drops[0].ID != drop.ID {
		t.Fatalf("active drops = %+v", drops)
	}
	if got := eventsNamed(fx.manager, domain.EventExclusiveDropCreated); len(got) != 1 {
		t.Fatalf("drop events = %d, want 1", len(got))
	}
}

func TestDropCountdownEvent(t *testing.T) {
	fx := newMarketingFixture(t)
	ctx := context.Background()

	dropAt := time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)
	fx.manager.TriggerDropCountdown(ctx, dropAt)

	events := eventsNamed(fx.manager, domain.EventDropCountdownStarted)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if got := events[0].Data["timeUntilDrop"]; got != (24 * time.Hour).Milliseconds() {
		t.Fatalf("timeUntilDrop = %v", got)
	}
}

func TestNormalizeLocale(t *testing.T) {
	cases := map[string]string{
		"":      "en",
		"fr":    "fr",
		"fr-CA": "fr",
		"ja-JP": "ja",
		"xx-!!": "en",
		"pt-BR": "en",
	}
	for input, want := range cases {
		if got := normalizeLocale(input); got != want {
			t.Fatalf("normalizeLocale(%q) = %q, want %q", input, got, want)
		}
	}
}
