// Package billing wraps the Stripe API: checkout sessions, subscription
// lifecycle, and webhook verification.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"gazette/internal/config"
)

// ErrInvalidPayload is returned when a webhook body cannot be parsed.
var ErrInvalidPayload = errors.New("invalid webhook payload")

// ErrInvalidSignature is returned when a webhook signature does not verify.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// SubscriptionUpdate is the outcome of a completed checkout webhook.
type SubscriptionUpdate struct {
	CustomerID     string
	SubscriptionID string
	Status         string
}

// Provider is the billing surface the HTTP layer depends on.
type Provider interface {
	// EnsureCustomer returns the existing billing customer id or creates
	// one for the email.
	EnsureCustomer(ctx context.Context, email, existingID string) (string, error)

	// CreateCheckoutSession starts a subscription checkout for the
	// customer and returns its hosted URL.
	CreateCheckoutSession(ctx context.Context, customerID string) (string, error)

	// CancelSubscription cancels a subscription. A subscription that is
	// already gone counts as success.
	CancelSubscription(ctx context.Context, subscriptionID string) error

	// DeleteCustomer deletes a billing customer. A customer that is
	// already gone counts as success.
	DeleteCustomer(ctx context.Context, customerID string) error

	// ParseWebhook verifies a webhook payload and returns the
	// subscription update for checkout.session.completed events, or nil
	// for event types this service ignores.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*SubscriptionUpdate, error)
}

// StripeProvider implements Provider against the Stripe API.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
	priceID       string
	successURL    string
	cancelURL     string
}

var _ Provider = (*StripeProvider)(nil)

// NewStripeProvider builds a provider from configuration.
func NewStripeProvider(cfg config.StripeConfig) (*StripeProvider, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required. Set STRIPE_SECRET_KEY or billing.stripe.secret_key in the config file")
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	return &StripeProvider{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		priceID:       cfg.PriceID,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
	}, nil
}

// EnsureCustomer returns existingID unchanged when set, otherwise creates a
// customer for the email.
func (p *StripeProvider) EnsureCustomer(ctx context.Context, email, existingID string) (string, error) {
	if existingID != "" {
		return existingID, nil
	}

	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	created, err := p.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}

	return created.ID, nil
}

// CreateCheckoutSession starts a subscription-mode checkout session.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, customerID string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(p.priceID),
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(p.successURL),
		CancelURL:  stripe.String(p.cancelURL),
	}
	params.Context = ctx

	session, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}

	return session.URL, nil
}

// CancelSubscription cancels the subscription, treating not-found as success.
func (p *StripeProvider) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return nil
	}

	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := p.api.Subscriptions.Cancel(subscriptionID, params); err != nil && !isNotFound(err) {
		return fmt.Errorf("cancel subscription: %w", err)
	}

	return nil
}

// DeleteCustomer deletes the customer, treating not-found as success.
func (p *StripeProvider) DeleteCustomer(ctx context.Context, customerID string) error {
	if customerID == "" {
		return nil
	}

	params := &stripe.CustomerParams{}
	params.Context = ctx
	if _, err := p.api.Customers.Del(customerID, params); err != nil && !isNotFound(err) {
		return fmt.Errorf("delete customer: %w", err)
	}

	return nil
}

// ParseWebhook verifies the signature and extracts the subscription state
// from checkout.session.completed events. The subscription status is read
// back from the API because the checkout event does not carry it.
func (p *StripeProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*SubscriptionUpdate, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, ErrInvalidSignature
	}

	if event.Type != "checkout.session.completed" {
		return nil, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, ErrInvalidPayload
	}
	if session.Customer == nil || session.Subscription == nil {
		return nil, ErrInvalidPayload
	}

	subscriptionParams := &stripe.SubscriptionParams{}
	subscriptionParams.Context = ctx
	subscription, err := p.api.Subscriptions.Get(session.Subscription.ID, subscriptionParams)
	if err != nil {
		return nil, fmt.Errorf("retrieve subscription: %w", err)
	}

	return &SubscriptionUpdate{
		CustomerID:     session.Customer.ID,
		SubscriptionID: session.Subscription.ID,
		Status:         string(subscription.Status),
	}, nil
}

// isNotFound reports whether a Stripe error means the resource is already
// absent, which the delete paths treat as success.
func isNotFound(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	return stripeErr.Code == stripe.ErrorCodeResourceMissing || stripeErr.HTTPStatusCode == http.StatusNotFound
}
