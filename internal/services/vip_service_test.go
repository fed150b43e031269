package services

import (
	"context"
	"testing"
	"time"

	domain "github.com/yemalin/api/internal/domain"
	"github.com/yemalin/api/internal/repositories/memory"
)

func newTestVIPService(t *testing.T, marketing MarketingManager) (VIPService, *memory.VIPStatsRepository) {
	t.Helper()
	stats := memory.NewVIPStatsRepository()
	service, err := NewVIPService(VIPServiceDeps{
		Stats:     stats,
		Marketing: marketing,
		Clock:     func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) },
		RandInt:   func(int) int { return 2 },
	})
	if err != nil {
		t.Fatalf("NewVIPService: %v", err)
	}
	return service, stats
}

func TestStatsComputesAndCachesOnMiss(t *testing.T) {
	service, repo := newTestVIPService(t, nil)
	ctx := context.Background()

	stats, err := service.Stats(ctx, "u1", 1200, "2024-01-01")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.CurrentTier == nil || stats.CurrentTier.Name != "Silver" {
		t.Fatalf("tier = %+v, want Silver", stats.CurrentTier)
	}
	if stats.NextTier == nil || stats.NextTier.Name != "Gold" {
		t.Fatalf("next tier = %+v, want Gold", stats.NextTier)
	}
	if stats.TotalSaved != 360 {
		t.Fatalf("total saved = %v, want 360", stats.TotalSaved)
	}
	if stats.ItemsPurchased != 4 {
		t.Fatalf("items purchased = %d, want 4", stats.ItemsPurchased)
	}
	if stats.ExclusiveAccessCount != 2 {
		t.Fatalf("exclusive access = %d, want 2", stats.ExclusiveAccessCount)
	}

	if _, err := repo.Get(ctx, "u1"); err != nil {
		t.Fatalf("stats not cached: %v", err)
	}
}

func TestStatsReturnsCacheWithoutRecompute(t *testing.T) {
	service, repo := newTestVIPService(t, nil)
	ctx := context.Background()

	seeded := domain.VIPStats{TotalSpent: 9999, ReferralCount: 42}
	if err := repo.Save(ctx, "u1", seeded); err != nil {
		t.Fatalf("Save: %v", err)
	}

	stats, err := service.Stats(ctx, "u1", 1200, "2024-01-01")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ReferralCount != 42 {
		t.Fatalf("expected cached snapshot, got %+v", stats)
	}
}

func TestRefreshOverwritesCacheAndNotifiesMarketing(t *testing.T) {
	fx := newMarketingFixture(t)
	service, repo := newTestVIPService(t, fx.manager)
	ctx := context.Background()

	if err := repo.Save(ctx, "u1", domain.VIPStats{ReferralCount: 42}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	stats, err := service.Refresh(ctx, "u1", 2600, "2024-01-01")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if stats.CurrentTier == nil || stats.CurrentTier.Name != "Gold" {
		t.Fatalf("tier = %+v, want Gold", stats.CurrentTier)
	}

	cached, err := repo.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cached.ReferralCount == 42 {
		t.Fatal("stale snapshot survived refresh")
	}

	if got := eventsNamed(fx.manager, domain.EventVIPStatusGranted); len(got) != 1 {
		t.Fatalf("vip events = %d, want 1", len(got))
	}
}

func TestRefreshRejectsInvalidInput(t *testing.T) {
	service, _ := newTestVIPService(t, nil)
	ctx := context.Background()

	if _, err := service.Refresh(ctx, "  ", 100, ""); err == nil {
		t.Fatal("expected error for blank user id")
	}
	if _, err := service.Refresh(ctx, "u1", -1, ""); err == nil {
		t.Fatal("expected error for negative spend")
	}
}

func TestOffersAndBenefitsFollowSpend(t *testing.T) {
	service, _ := newTestVIPService(t, nil)

	if offers := service.Offers(100); len(offers) != 0 {
		t.Fatalf("non-member offers = %+v, want none", offers)
	}
	offers := service.Offers(1200)
	if len(offers) == 0 || offers[0].Code != "VIPSILVER" {
		t.Fatalf("silver offers = %+v", offers)
	}

	if benefits := service.Benefits(100); benefits != nil {
		t.Fatalf("non-member benefits = %+v, want nil", benefits)
	}
	if benefits := service.Benefits(600); len(benefits) == 0 {
		t.Fatal("bronze benefits missing")
	}
}

func TestApplyDiscountAndEarlyAccess(t *testing.T) {
	service, _ := newTestVIPService(t, nil)

	if got := service.ApplyDiscount(2600, 100); got != 80 {
		t.Fatalf("gold discount total = %v, want 80", got)
	}
	if got := service.ApplyDiscount(100, 100); got != 100 {
		t.Fatalf("non-member total = %v, want 100", got)
	}

	if service.EarlyAccess(600, "p1") {
		t.Fatal("bronze must not have early access")
	}
	if !service.EarlyAccess(1200, "p1") {
		t.Fatal("silver should have early access")
	}
}
