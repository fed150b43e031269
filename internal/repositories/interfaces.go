package repositories

import (
	"context"
	"time"

	domain "github.com/yemalin/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CartRepository persists the cart line-item list as a single blob per owner.
// Writes always replace the whole list (last writer wins).
type CartRepository interface {
	Load(ctx context.Context, ownerID string) ([]domain.CartItem, error)
	Save(ctx context.Context, ownerID string, items []domain.CartItem) error
	Clear(ctx context.Context, ownerID string) error
}

// MarketingConfigRepository stores the single marketing configuration blob.
type MarketingConfigRepository interface {
	Load(ctx context.Context) (domain.MarketingConfig, error)
	Save(ctx context.Context, cfg domain.MarketingConfig) error
}

// WaitlistRepository owns the monotonically increasing signup counter.
// Increment is atomic; the counter is seeded on first use.
type WaitlistRepository interface {
	Count(ctx context.Context) (int64, error)
	Increment(ctx context.Context) (int64, error)
}

// EmailRepository records collected email addresses by touchpoint and tracks
// abandoned-cart snapshots for recovery measurement.
type EmailRepository interface {
	SaveRecord(ctx context.Context, record domain.EmailRecord) error
	SetSubscribed(ctx context.Context, email string, subscribed bool, now time.Time) error
	SaveAbandonedCart(ctx context.Context, cart domain.AbandonedCart) error
	MarkCartRecovered(ctx context.Context, email string, recoveredAt time.Time) error
}

// VIPStatsRepository caches derived VIP stats per user. Stats are always
// replaced wholesale, never field-mutated.
type VIPStatsRepository interface {
	Get(ctx context.Context, userID string) (domain.VIPStats, error)
	Save(ctx context.Context, userID string, stats domain.VIPStats) error
}
