package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pfirestore "github.com/yemalin/api/internal/platform/firestore"
	"github.com/yemalin/api/internal/repositories"
)

const (
	countersCollection = "counters"
	waitlistCounterDoc = "waitlist"

	// Counter seed presented as the starting member count.
	waitlistSeed = 3247
)

type waitlistDocument struct {
	CurrentValue int64     `firestore:"current_value"`
	UpdatedAt    time.Time `firestore:"updated_at"`
}

// WaitlistRepository implements the signup counter on a transactionally
// incremented Firestore document.
type WaitlistRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[waitlistDocument]
}

var _ repositories.WaitlistRepository = (*WaitlistRepository)(nil)

// NewWaitlistRepository constructs a Firestore-backed waitlist counter.
func NewWaitlistRepository(provider *pfirestore.Provider) (*WaitlistRepository, error) {
	if provider == nil {
		return nil, errors.New("waitlist repository requires firestore provider")
	}
	return &WaitlistRepository{
		provider: provider,
		base:     pfirestore.NewBaseRepository[waitlistDocument](provider, countersCollection, nil, nil),
	}, nil
}

// Count returns the current signup total, or the seed when the counter
// document does not exist yet.
func (r *WaitlistRepository) Count(ctx context.Context) (int64, error) {
	doc, err := r.base.Get(ctx, waitlistCounterDoc)
	if err != nil {
		if repositories.IsNotFound(err) {
			return waitlistSeed, nil
		}
		return 0, err
	}
	return doc.Data.CurrentValue, nil
}

// Increment atomically advances the counter by one and returns the new
// value. The first increment creates the document at seed+1.
func (r *WaitlistRepository) Increment(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	var next int64

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, waitlistCounterDoc)
		if err != nil {
			return err
		}

		snapshot, err := tx.Get(ref)
		switch status.Code(err) {
		case codes.NotFound:
			doc := waitlistDocument{CurrentValue: waitlistSeed + 1, UpdatedAt: now}
			if err := tx.Create(ref, doc); err != nil {
				return err
			}
			next = doc.CurrentValue
			return nil
		case codes.OK:
			// proceed
		default:
			return err
		}

		var doc waitlistDocument
		if err := snapshot.DataTo(&doc); err != nil {
			return err
		}
		doc.CurrentValue++
		doc.UpdatedAt = now
		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		next = doc.CurrentValue
		return nil
	})
	if err != nil {
		return 0, pfirestore.WrapError("counters.waitlist", err)
	}
	return next, nil
}
