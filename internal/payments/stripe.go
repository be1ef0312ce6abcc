package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// EventCheckoutCompleted is the only provider event type the service
// reconciles.
const EventCheckoutCompleted = "checkout.session.completed"

var ErrInvalidSignature = errors.New("invalid webhook signature")

type CheckoutRequest struct {
	ProductName   string
	Description   string
	UnitAmount    int64
	Currency      string
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	Metadata      map[string]string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// CompletedCheckout is the part of a completed checkout session the
// reconciler needs.
type CompletedCheckout struct {
	SessionID     string
	Metadata      map[string]string
	CustomerEmail string
}

// Event is a decoded provider webhook event. Checkout is set only for
// checkout.session.completed.
type Event struct {
	ID       string
	Type     string
	Checkout *CompletedCheckout
	Raw      json.RawMessage
}

type StripeClient struct {
	api           *client.API
	webhookSecret string
}

func NewStripeClient(secretKey, webhookSecret string) *StripeClient {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeClient{api: api, webhookSecret: webhookSecret}
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := buildCheckoutParams(req)
	params.Context = ctx

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// PaymentIntentForSession returns the payment intent id of a checkout
// session, or "" when the session has none.
func (c *StripeClient) PaymentIntentForSession(ctx context.Context, checkoutSessionID string) (string, error) {
	params := &stripe.CheckoutSessionParams{}
	params.AddExpand("payment_intent")
	params.Context = ctx

	session, err := c.api.CheckoutSessions.Get(checkoutSessionID, params)
	if err != nil {
		return "", fmt.Errorf("retrieve checkout session: %w", err)
	}
	if session.PaymentIntent == nil {
		return "", nil
	}
	return session.PaymentIntent.ID, nil
}

func (c *StripeClient) Refund(ctx context.Context, paymentIntentID string, idempotencyKey string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.SetIdempotencyKey(idempotencyKey)
	params.Context = ctx

	if _, err := c.api.Refunds.New(params); err != nil {
		return fmt.Errorf("create refund: %w", err)
	}
	return nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
func (c *StripeClient) ParseWebhook(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return fromStripeEvent(event, payload)
}

// DecodeEvent decodes a stored event payload without signature checks.
func DecodeEvent(payload []byte) (*Event, error) {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return fromStripeEvent(event, payload)
}

func fromStripeEvent(event stripe.Event, raw []byte) (*Event, error) {
	decoded := &Event{
		ID:   event.ID,
		Type: string(event.Type),
		Raw:  json.RawMessage(raw),
	}
	if decoded.Type != EventCheckoutCompleted {
		return decoded, nil
	}
	if event.Data == nil {
		return nil, errors.New("checkout event without data")
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}

	email := session.CustomerEmail
	if email == "" && session.CustomerDetails != nil {
		email = session.CustomerDetails.Email
	}
	decoded.Checkout = &CompletedCheckout{
		SessionID:     session.ID,
		Metadata:      session.Metadata,
		CustomerEmail: email,
	}
	return decoded, nil
}

func buildCheckoutParams(req CheckoutRequest) *stripe.CheckoutSessionParams {
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(req.ProductName),
	}
	if req.Description != "" {
		product.Description = stripe.String(req.Description)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(req.Currency),
					ProductData: product,
					UnitAmount:  stripe.Int64(req.UnitAmount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}
	return params
}
