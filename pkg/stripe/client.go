// Package stripe holds the Checkout Session calls the payment gateway makes.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"

	"github.com/angelmondragon/bookstall-backend/pkg/config"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

// keyPrefixes lists the secret and restricted key prefixes each mode accepts.
var keyPrefixes = map[string][]string{
	testEnv: {"sk_test_", "rk_test_"},
	liveEnv: {"sk_live_", "rk_live_"},
}

var (
	errAPIKeyRequired   = errors.New("stripe: api key is required")
	errParamsRequired   = errors.New("stripe: checkout session params are required")
	errSessionIDMissing = errors.New("stripe: checkout session id is required")
)

// Client talks to Checkout Sessions with its own key, leaving stripe.Key alone.
type Client struct {
	sessions session.Client
	mode     string
}

func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	mode, err := checkMode(cfg.Environment())
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(cfg.APIKey)
	if err := checkKey(mode, key); err != nil {
		return nil, err
	}

	c := &Client{
		sessions: session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: key},
		mode:     mode,
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "stripe_mode", mode), "stripe.ready")
	}
	return c, nil
}

// Mode is "test" or "live".
func (c *Client) Mode() string {
	if c == nil {
		return ""
	}
	return c.mode
}

func (c *Client) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params == nil {
		return nil, errParamsRequired
	}
	params.Context = ctx
	return c.sessions.New(params)
}

// GetCheckoutSession expands payment_intent so callers can read the charge id.
func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errSessionIDMissing
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")
	return c.sessions.Get(id, params)
}

func checkMode(raw string) (string, error) {
	mode := strings.ToLower(strings.TrimSpace(raw))
	if mode == "" {
		mode = testEnv
	}
	if _, ok := keyPrefixes[mode]; !ok {
		return "", fmt.Errorf("stripe: unknown mode %q, want %q or %q", raw, testEnv, liveEnv)
	}
	return mode, nil
}

func checkKey(mode, key string) error {
	if key == "" {
		return errAPIKeyRequired
	}
	prefixes := keyPrefixes[mode]
	if slices.ContainsFunc(prefixes, func(p string) bool { return strings.HasPrefix(key, p) }) {
		return nil
	}
	return fmt.Errorf("stripe: %s mode needs a key starting with %s", mode, strings.Join(prefixes, " or "))
}
