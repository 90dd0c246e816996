package payments

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/angelmondragon/bookstall-backend/pkg/config"
)

const (
	ProviderStripe   = "stripe"
	ProviderRedirect = "redirect"
)

// LineItem is one priced line shown on the hosted payment page.
type LineItem struct {
	Title          string
	UnitPriceCents int64
	Quantity       int
}

// IntentionRequest asks the gateway to prepare a payment for a checkout.
type IntentionRequest struct {
	// Reference is the checkout id; the gateway echoes it back on confirmation.
	Reference        string
	AmountCents      int64
	Currency         string
	CustomerEmail    string
	CustomerName     string
	Items            []LineItem
	ShippingFeeCents int64
	SuccessURL       string
	CancelURL        string
}

// Intention is the prepared payment the client is redirected to.
type Intention struct {
	ID          string `json:"id"`
	Reference   string `json:"reference"`
	RedirectURL string `json:"redirect_url"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// Confirmation is the gateway's verdict on a payment, parsed from the callback.
type Confirmation struct {
	Reference     string
	TransactionID string
	AmountMinor   int64
	Currency      string
	Method        string
	Success       bool
}

// Gateway is the payment provider boundary.
type Gateway interface {
	Name() string
	CreateIntention(ctx context.Context, req IntentionRequest) (*Intention, error)
	Confirm(ctx context.Context, callback url.Values) (*Confirmation, error)
}

// NewGateway selects the configured provider.
func NewGateway(cfg config.PaymentsConfig, stripeAPI SessionAPI) (Gateway, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderStripe:
		if stripeAPI == nil {
			return nil, fmt.Errorf("stripe client required for provider %q", ProviderStripe)
		}
		return NewStripeGateway(stripeAPI)
	case ProviderRedirect:
		return NewRedirectGateway(cfg.RedirectBaseURL, cfg.RedirectSecret)
	default:
		return nil, fmt.Errorf("unknown payments provider %q", cfg.Provider)
	}
}

func (r IntentionRequest) validate() error {
	if strings.TrimSpace(r.Reference) == "" {
		return fmt.Errorf("payment reference required")
	}
	if r.AmountCents <= 0 {
		return fmt.Errorf("payment amount must be positive")
	}
	if strings.TrimSpace(r.Currency) == "" {
		return fmt.Errorf("currency required")
	}
	if r.SuccessURL == "" {
		return fmt.Errorf("success url required")
	}
	return nil
}
