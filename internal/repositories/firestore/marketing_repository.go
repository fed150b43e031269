package firestore

import (
	"context"
	"errors"
	"time"

	domain "github.com/yemalin/api/internal/domain"
	pfirestore "github.com/yemalin/api/internal/platform/firestore"
	"github.com/yemalin/api/internal/repositories"
)

const (
	marketingCollection = "marketing"
	marketingStateDoc   = "state"
)

type marketingDocument struct {
	Config    domain.MarketingConfig `firestore:"config"`
	UpdatedAt time.Time              `firestore:"updated_at"`
}

// MarketingConfigRepository stores the promotional configuration as a single
// document, replaced wholesale on every update.
type MarketingConfigRepository struct {
	base *pfirestore.BaseRepository[marketingDocument]
}

var _ repositories.MarketingConfigRepository = (*MarketingConfigRepository)(nil)

// NewMarketingConfigRepository constructs a Firestore-backed marketing config repository.
func NewMarketingConfigRepository(provider *pfirestore.Provider) (*MarketingConfigRepository, error) {
	if provider == nil {
		return nil, errors.New("marketing repository requires firestore provider")
	}
	return &MarketingConfigRepository{
		base: pfirestore.NewBaseRepository[marketingDocument](provider, marketingCollection, nil, nil),
	}, nil
}

// Load returns the stored configuration, or the built-in defaults when
// nothing has been stored yet.
func (r *MarketingConfigRepository) Load(ctx context.Context) (domain.MarketingConfig, error) {
	doc, err := r.base.Get(ctx, marketingStateDoc)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.DefaultMarketingConfig(), nil
		}
		return domain.MarketingConfig{}, err
	}
	return doc.Data.Config, nil
}

// Save replaces the configuration document.
func (r *MarketingConfigRepository) Save(ctx context.Context, cfg domain.MarketingConfig) error {
	_, err := r.base.Set(ctx, marketingStateDoc, marketingDocument{
		Config:    cfg,
		UpdatedAt: time.Now().UTC(),
	})
	return err
}
