package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/yemalin/api/internal/domain"
	pfirestore "github.com/yemalin/api/internal/platform/firestore"
	"github.com/yemalin/api/internal/repositories"
)

const vipStatsCollection = "vip_stats"

type vipStatsDocument struct {
	Stats     domain.VIPStats `firestore:"stats"`
	UpdatedAt time.Time       `firestore:"updated_at"`
}

// VIPStatsRepository caches derived VIP stats per user.
type VIPStatsRepository struct {
	base *pfirestore.BaseRepository[vipStatsDocument]
}

var _ repositories.VIPStatsRepository = (*VIPStatsRepository)(nil)

// NewVIPStatsRepository constructs a Firestore-backed VIP stats cache.
func NewVIPStatsRepository(provider *pfirestore.Provider) (*VIPStatsRepository, error) {
	if provider == nil {
		return nil, errors.New("vip stats repository requires firestore provider")
	}
	return &VIPStatsRepository{
		base: pfirestore.NewBaseRepository[vipStatsDocument](provider, vipStatsCollection, nil, nil),
	}, nil
}

// Get fetches the cached stats for the user. Absence surfaces as a
// not-found repository error.
func (r *VIPStatsRepository) Get(ctx context.Context, userID string) (domain.VIPStats, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.VIPStats{}, errors.New("vip stats repository: user id is required")
	}

	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.VIPStats{}, err
	}
	return doc.Data.Stats, nil
}

// Save replaces the cached stats wholesale.
func (r *VIPStatsRepository) Save(ctx context.Context, userID string, stats domain.VIPStats) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("vip stats repository: user id is required")
	}

	_, err := r.base.Set(ctx, userID, vipStatsDocument{
		Stats:     stats,
		UpdatedAt: time.Now().UTC(),
	})
	return err
}
