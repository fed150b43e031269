package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	domain "github.com/yemalin/api/internal/domain"
	"github.com/yemalin/api/internal/repositories"
)

// ErrVIPInvalidInput indicates the caller supplied invalid VIP parameters.
var ErrVIPInvalidInput = errors.New("vip: invalid input")

// VIPServiceDeps bundles collaborators required to construct the VIP service.
type VIPServiceDeps struct {
	Stats     repositories.VIPStatsRepository
	Marketing MarketingManager
	Clock     func() time.Time
	RandInt   func(n int) int
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type vipService struct {
	stats     repositories.VIPStatsRepository
	marketing MarketingManager
	clock     func() time.Time
	randInt   func(n int) int
	logger    func(context.Context, string, map[string]any)
}

// NewVIPService constructs the VIP tier service over the stats cache. The
// tier table itself is a compile-time constant in the domain package.
func NewVIPService(deps VIPServiceDeps) (VIPService, error) {
	if deps.Stats == nil {
		return nil, errors.New("vip service: stats repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	randInt := deps.RandInt
	if randInt == nil {
		randInt = rand.Intn
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &vipService{
		stats:     deps.Stats,
		marketing: deps.Marketing,
		clock: func() time.Time {
			return clock().UTC()
		},
		randInt: randInt,
		logger:  logger,
	}, nil
}

// Stats returns the cached snapshot for the user, recomputing and caching
// it on a miss.
func (s *vipService) Stats(ctx context.Context, userID string, totalSpent float64, memberSince string) (domain.VIPStats, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.VIPStats{}, fmt.Errorf("%w: user id is required", ErrVIPInvalidInput)
	}

	cached, err := s.stats.Get(ctx, userID)
	if err == nil {
		return cached, nil
	}
	if !repositories.IsNotFound(err) {
		return domain.VIPStats{}, err
	}
	return s.Refresh(ctx, userID, totalSpent, memberSince)
}

// Refresh recomputes the snapshot wholesale from the lifetime spend,
// persists it, and notifies the marketing manager so threshold crossings
// emit their event.
func (s *vipService) Refresh(ctx context.Context, userID string, totalSpent float64, memberSince string) (domain.VIPStats, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.VIPStats{}, fmt.Errorf("%w: user id is required", ErrVIPInvalidInput)
	}
	if totalSpent < 0 {
		return domain.VIPStats{}, fmt.Errorf("%w: total spent must not be negative", ErrVIPInvalidInput)
	}

	stats := domain.ComputeVIPStats(totalSpent, memberSince, s.randInt)
	if err := s.stats.Save(ctx, userID, stats); err != nil {
		return domain.VIPStats{}, err
	}

	if s.marketing != nil {
		s.marketing.UpdateVIPStatus(ctx, userID, totalSpent)
	}

	tierName := ""
	if stats.CurrentTier != nil {
		tierName = stats.CurrentTier.Name
	}
	s.logger(ctx, "vip.stats_refreshed", map[string]any{
		"user": userID,
		"tier": tierName,
	})
	return stats, nil
}

// Offers returns the promotions available at the spend level, including the
// calendar-driven seasonal offer.
func (s *vipService) Offers(totalSpent float64) []domain.VIPOffer {
	return domain.VIPOffersForTier(domain.TierForSpend(totalSpent), s.clock())
}

// Benefits lists the benefit strings for the spend level.
func (s *vipService) Benefits(totalSpent float64) []string {
	return domain.VIPBenefits(domain.TierForSpend(totalSpent))
}

// ApplyDiscount applies the tier discount to the subtotal; identity when no
// tier applies.
func (s *vipService) ApplyDiscount(totalSpent, subtotal float64) float64 {
	return domain.ApplyVIPDiscount(domain.TierForSpend(totalSpent), subtotal)
}

// EarlyAccess reports the tier-level early-access flag. The product ID is
// accepted for interface stability but access is not product-specific.
func (s *vipService) EarlyAccess(totalSpent float64, _ string) bool {
	tier := domain.TierForSpend(totalSpent)
	return tier != nil && tier.EarlyAccess
}
