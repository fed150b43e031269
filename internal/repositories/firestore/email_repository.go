package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/yemalin/api/internal/domain"
	pfirestore "github.com/yemalin/api/internal/platform/firestore"
	"github.com/yemalin/api/internal/repositories"
)

const (
	emailsCollection         = "emails"
	abandonedCartsCollection = "abandoned_carts"
)

// EmailRepository stores collected addresses and abandoned-cart snapshots,
// both keyed by the normalised address.
type EmailRepository struct {
	emails    *pfirestore.BaseRepository[domain.EmailRecord]
	abandoned *pfirestore.BaseRepository[domain.AbandonedCart]
}

var _ repositories.EmailRepository = (*EmailRepository)(nil)

// NewEmailRepository constructs a Firestore-backed email repository.
func NewEmailRepository(provider *pfirestore.Provider) (*EmailRepository, error) {
	if provider == nil {
		return nil, errors.New("email repository requires firestore provider")
	}
	return &EmailRepository{
		emails:    pfirestore.NewBaseRepository[domain.EmailRecord](provider, emailsCollection, nil, nil),
		abandoned: pfirestore.NewBaseRepository[domain.AbandonedCart](provider, abandonedCartsCollection, nil, nil),
	}, nil
}

// SaveRecord upserts the email record. Re-recording the same address under a
// new source overwrites the previous touchpoint.
func (r *EmailRepository) SaveRecord(ctx context.Context, record domain.EmailRecord) error {
	id := emailDocID(record.Email)
	if id == "" {
		return errors.New("email repository: email is required")
	}
	record.Email = id

	_, err := r.emails.Set(ctx, id, record)
	return err
}

// SetSubscribed flips the subscription flag on an existing record.
func (r *EmailRepository) SetSubscribed(ctx context.Context, email string, subscribed bool, now time.Time) error {
	id := emailDocID(email)
	if id == "" {
		return errors.New("email repository: email is required")
	}

	_, err := r.emails.Update(ctx, id, []firestore.Update{
		{Path: "subscribed", Value: subscribed},
		{Path: "subscribed_at", Value: now.UTC()},
	})
	return err
}

// SaveAbandonedCart stores the cart snapshot taken when a recovery email is
// sent out.
func (r *EmailRepository) SaveAbandonedCart(ctx context.Context, cart domain.AbandonedCart) error {
	id := emailDocID(cart.Email)
	if id == "" {
		return errors.New("email repository: email is required")
	}
	cart.Email = id

	_, err := r.abandoned.Set(ctx, id, cart)
	return err
}

// MarkCartRecovered flags the snapshot as recovered.
func (r *EmailRepository) MarkCartRecovered(ctx context.Context, email string, recoveredAt time.Time) error {
	id := emailDocID(email)
	if id == "" {
		return errors.New("email repository: email is required")
	}

	at := recoveredAt.UTC()
	_, err := r.abandoned.Update(ctx, id, []firestore.Update{
		{Path: "recovered", Value: true},
		{Path: "recovered_at", Value: at},
	})
	return err
}

func emailDocID(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
