// Package payments wraps the PSP's saved payment-method vault behind a
// provider-neutral interface. Checkout itself happens on the PSP's hosted
// surface; the storefront only lists, attaches, and detaches instruments.
package payments

import (
	"context"
	"errors"
	"time"
)

// ErrVaultInvalidInput is returned when a vault operation receives missing
// or malformed identifiers.
var ErrVaultInvalidInput = errors.New("payments: invalid input")

// SavedMethod is the normalised view of a stored card.
type SavedMethod struct {
	ID       string    `json:"id"`
	Brand    string    `json:"brand"`
	Last4    string    `json:"last4"`
	ExpMonth int       `json:"expMonth"`
	ExpYear  int       `json:"expYear"`
	Created  time.Time `json:"created"`
}

// Vault defines the contract for PSP payment-method adapters.
type Vault interface {
	List(ctx context.Context, customerID string) ([]SavedMethod, error)
	Attach(ctx context.Context, customerID, methodID string) (SavedMethod, error)
	Detach(ctx context.Context, methodID string) error
}
