package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// StripeLogger defines the logging contract for Stripe vault operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripePaymentMethodAPI interface {
	Get(id string, params *stripe.PaymentMethodParams) (*stripe.PaymentMethod, error)
	Attach(id string, params *stripe.PaymentMethodAttachParams) (*stripe.PaymentMethod, error)
	Detach(id string, params *stripe.PaymentMethodDetachParams) (*stripe.PaymentMethod, error)
}

type stripePaymentMethodLister func(params *stripe.PaymentMethodListParams) ([]*stripe.PaymentMethod, error)

type stripeClients struct {
	methods stripePaymentMethodAPI
	list    stripePaymentMethodLister
}

// StripeVaultConfig configures the StripeVault.
type StripeVaultConfig struct {
	APIKey    string
	AccountID string
	Backends  *stripe.Backends
	Logger    StripeLogger
	Clients   *stripeClients
}

// StripeVault implements the Vault interface using Stripe's payment-method APIs.
type StripeVault struct {
	api     stripeClients
	account string
	logger  StripeLogger
}

var _ Vault = (*StripeVault)(nil)

// NewStripeVault constructs a Stripe-backed vault using the given configuration.
func NewStripeVault(cfg StripeVaultConfig) (*StripeVault, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Clients == nil {
		return nil, errors.New("stripe: api key is required")
	}

	var clients stripeClients
	if cfg.Clients != nil {
		clients = *cfg.Clients
	} else {
		sc := client.New(apiKey, cfg.Backends)
		clients = stripeClients{
			methods: sc.PaymentMethods,
			list: func(params *stripe.PaymentMethodListParams) ([]*stripe.PaymentMethod, error) {
				iter := sc.PaymentMethods.List(params)
				var methods []*stripe.PaymentMethod
				for iter.Next() {
					methods = append(methods, iter.PaymentMethod())
				}
				return methods, iter.Err()
			},
		}
	}
	if clients.methods == nil || clients.list == nil {
		return nil, errors.New("stripe: incomplete client configuration")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripeVault{
		api:     clients,
		account: strings.TrimSpace(cfg.AccountID),
		logger:  logger,
	}, nil
}

// List returns the customer's stored cards, newest first as Stripe orders them.
func (v *StripeVault) List(ctx context.Context, customerID string) ([]SavedMethod, error) {
	if v == nil {
		return nil, errors.New("stripe: vault is nil")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", ErrVaultInvalidInput)
	}

	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	}
	params.Context = ctx
	if v.account != "" {
		params.SetStripeAccount(v.account)
	}

	raw, err := v.api.list(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: list payment methods: %w", err)
	}

	methods := make([]SavedMethod, 0, len(raw))
	for _, pm := range raw {
		methods = append(methods, savedMethodFromStripe(pm))
	}
	return methods, nil
}

// Attach binds the payment method to the customer so it appears in future lists.
func (v *StripeVault) Attach(ctx context.Context, customerID, methodID string) (SavedMethod, error) {
	if v == nil {
		return SavedMethod{}, errors.New("stripe: vault is nil")
	}
	customerID = strings.TrimSpace(customerID)
	methodID = strings.TrimSpace(methodID)
	if customerID == "" || methodID == "" {
		return SavedMethod{}, fmt.Errorf("%w: customer id and method id are required", ErrVaultInvalidInput)
	}

	params := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx
	if v.account != "" {
		params.SetStripeAccount(v.account)
	}

	pm, err := v.api.methods.Attach(methodID, params)
	if err != nil {
		return SavedMethod{}, fmt.Errorf("stripe: attach payment method: %w", err)
	}

	v.logger(ctx, "payments.stripe.method.attached", map[string]any{
		"paymentMethod": pm.ID,
	})
	return savedMethodFromStripe(pm), nil
}

// Detach removes the payment method from its customer.
func (v *StripeVault) Detach(ctx context.Context, methodID string) error {
	if v == nil {
		return errors.New("stripe: vault is nil")
	}
	methodID = strings.TrimSpace(methodID)
	if methodID == "" {
		return fmt.Errorf("%w: method id is required", ErrVaultInvalidInput)
	}

	params := &stripe.PaymentMethodDetachParams{}
	params.Context = ctx
	if v.account != "" {
		params.SetStripeAccount(v.account)
	}

	if _, err := v.api.methods.Detach(methodID, params); err != nil {
		return fmt.Errorf("stripe: detach payment method: %w", err)
	}

	v.logger(ctx, "payments.stripe.method.detached", map[string]any{
		"paymentMethod": methodID,
	})
	return nil
}

func savedMethodFromStripe(pm *stripe.PaymentMethod) SavedMethod {
	if pm == nil {
		return SavedMethod{}
	}

	method := SavedMethod{
		ID: pm.ID,
	}
	if pm.Created != 0 {
		method.Created = time.Unix(pm.Created, 0).UTC()
	}
	if pm.Type == stripe.PaymentMethodTypeCard && pm.Card != nil {
		method.Brand = strings.ToLower(string(pm.Card.Brand))
		method.Last4 = strings.TrimSpace(pm.Card.Last4)
		method.ExpMonth = int(pm.Card.ExpMonth)
		method.ExpYear = int(pm.Card.ExpYear)
	}
	return method
}
