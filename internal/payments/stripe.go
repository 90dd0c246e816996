package payments

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/stripe/stripe-go/v84"
)

const stripeReferenceKey = "checkout_reference"

// SessionAPI is the slice of pkg/stripe.Client the gateway uses.
type SessionAPI interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
}

// StripeGateway takes payments through Stripe Checkout Sessions.
type StripeGateway struct {
	api SessionAPI
}

func NewStripeGateway(api SessionAPI) (*StripeGateway, error) {
	if api == nil {
		return nil, fmt.Errorf("stripe session api required")
	}
	return &StripeGateway{api: api}, nil
}

func (g *StripeGateway) Name() string { return ProviderStripe }

func (g *StripeGateway) CreateIntention(ctx context.Context, req IntentionRequest) (*Intention, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	currency := strings.ToLower(req.Currency)

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items)+1)
	for _, item := range req.Items {
		lineItems = append(lineItems, stripeLine(currency, item.Title, item.UnitPriceCents, item.Quantity))
	}
	if req.ShippingFeeCents > 0 {
		lineItems = append(lineItems, stripeLine(currency, "Shipping", req.ShippingFeeCents, 1))
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.Reference),
		SuccessURL:        stripe.String(withSessionPlaceholder(req.SuccessURL)),
		LineItems:         lineItems,
	}
	if req.CancelURL != "" {
		params.CancelURL = stripe.String(req.CancelURL)
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata(stripeReferenceKey, req.Reference)

	session, err := g.api.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &Intention{
		ID:          session.ID,
		Reference:   req.Reference,
		RedirectURL: session.URL,
		AmountCents: req.AmountCents,
		Currency:    currency,
	}, nil
}

// Confirm reads the session named by the session_id callback parameter.
func (g *StripeGateway) Confirm(ctx context.Context, callback url.Values) (*Confirmation, error) {
	sessionID := strings.TrimSpace(callback.Get("session_id"))
	if sessionID == "" {
		return nil, fmt.Errorf("session_id missing from callback")
	}
	session, err := g.api.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get checkout session: %w", err)
	}

	reference := session.ClientReferenceID
	if reference == "" {
		reference = session.Metadata[stripeReferenceKey]
	}
	transactionID := session.ID
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		transactionID = session.PaymentIntent.ID
	}
	method := "card"
	if len(session.PaymentMethodTypes) > 0 {
		method = session.PaymentMethodTypes[0]
	}
	return &Confirmation{
		Reference:     reference,
		TransactionID: transactionID,
		AmountMinor:   session.AmountTotal,
		Currency:      strings.ToLower(string(session.Currency)),
		Method:        method,
		Success:       session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}, nil
}

func stripeLine(currency, name string, unitCents int64, qty int) *stripe.CheckoutSessionLineItemParams {
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency: stripe.String(currency),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
			UnitAmount: stripe.Int64(unitCents),
		},
		Quantity: stripe.Int64(int64(qty)),
	}
}

// Stripe substitutes {CHECKOUT_SESSION_ID} in the success URL.
func withSessionPlaceholder(raw string) string {
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return raw + sep + "session_id={CHECKOUT_SESSION_ID}"
}
