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

const cartsCollection = "carts"

type cartDocument struct {
	Items     []domain.CartItem `firestore:"items"`
	UpdatedAt time.Time         `firestore:"updated_at"`
}

// CartRepository stores each owner's cart as one document holding the full
// line-item list. There is no per-line addressing; every save replaces the
// whole blob.
type CartRepository struct {
	base *pfirestore.BaseRepository[cartDocument]
}

var _ repositories.CartRepository = (*CartRepository)(nil)

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{
		base: pfirestore.NewBaseRepository[cartDocument](provider, cartsCollection, nil, nil),
	}, nil
}

// Load returns the stored line items for the owner. A missing document is
// not an error; it reads as an empty cart.
func (r *CartRepository) Load(ctx context.Context, ownerID string) ([]domain.CartItem, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, errors.New("cart repository: owner id is required")
	}

	doc, err := r.base.Get(ctx, ownerID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return doc.Data.Items, nil
}

// Save replaces the owner's cart blob.
func (r *CartRepository) Save(ctx context.Context, ownerID string, items []domain.CartItem) error {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return errors.New("cart repository: owner id is required")
	}

	_, err := r.base.Set(ctx, ownerID, cartDocument{
		Items:     items,
		UpdatedAt: time.Now().UTC(),
	})
	return err
}

// Clear removes the owner's cart document entirely.
func (r *CartRepository) Clear(ctx context.Context, ownerID string) error {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return errors.New("cart repository: owner id is required")
	}

	_, err := r.base.Delete(ctx, ownerID)
	if err != nil && repositories.IsNotFound(err) {
		return nil
	}
	return err
}
