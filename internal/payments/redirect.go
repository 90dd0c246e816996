package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// RedirectGateway hands the buyer to a generic hosted payment page. The page
// calls back with reference, transaction_id, amount_cents, currency, method,
// success and an HMAC signature over those fields.
type RedirectGateway struct {
	baseURL *url.URL
	secret  []byte
}

func NewRedirectGateway(baseURL, secret string) (*RedirectGateway, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("redirect gateway base url required")
	}
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("redirect gateway secret required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid redirect gateway base url %q", baseURL)
	}
	return &RedirectGateway{baseURL: u, secret: []byte(secret)}, nil
}

func (g *RedirectGateway) Name() string { return ProviderRedirect }

func (g *RedirectGateway) CreateIntention(_ context.Context, req IntentionRequest) (*Intention, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	currency := strings.ToLower(req.Currency)
	id := uuid.NewString()

	q := g.baseURL.Query()
	q.Set("intention", id)
	q.Set("reference", req.Reference)
	q.Set("amount_cents", strconv.FormatInt(req.AmountCents, 10))
	q.Set("currency", currency)
	q.Set("return_url", req.SuccessURL)
	if req.CancelURL != "" {
		q.Set("cancel_url", req.CancelURL)
	}
	if req.CustomerEmail != "" {
		q.Set("email", req.CustomerEmail)
	}
	q.Set("signature", g.sign(id, req.Reference, strconv.FormatInt(req.AmountCents, 10), currency))

	redirect := *g.baseURL
	redirect.RawQuery = q.Encode()
	return &Intention{
		ID:          id,
		Reference:   req.Reference,
		RedirectURL: redirect.String(),
		AmountCents: req.AmountCents,
		Currency:    currency,
	}, nil
}

func (g *RedirectGateway) Confirm(_ context.Context, callback url.Values) (*Confirmation, error) {
	reference := callback.Get("reference")
	txn := callback.Get("transaction_id")
	amountRaw := callback.Get("amount_cents")
	currency := strings.ToLower(callback.Get("currency"))
	method := callback.Get("method")
	successRaw := callback.Get("success")

	if reference == "" || txn == "" || amountRaw == "" {
		return nil, fmt.Errorf("callback missing reference, transaction_id or amount_cents")
	}
	expected := g.sign(reference, txn, amountRaw, currency, method, successRaw)
	if !hmac.Equal([]byte(expected), []byte(callback.Get("signature"))) {
		return nil, fmt.Errorf("callback signature mismatch")
	}
	amount, err := strconv.ParseInt(amountRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid amount_cents %q", amountRaw)
	}
	success, err := strconv.ParseBool(successRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid success flag %q", successRaw)
	}
	if method == "" {
		method = "card"
	}
	return &Confirmation{
		Reference:     reference,
		TransactionID: txn,
		AmountMinor:   amount,
		Currency:      currency,
		Method:        method,
		Success:       success,
	}, nil
}

// SignCallback produces the signature the hosted page attaches to a callback.
func (g *RedirectGateway) SignCallback(c Confirmation) string {
	return g.sign(c.Reference, c.TransactionID, strconv.FormatInt(c.AmountMinor, 10), strings.ToLower(c.Currency), c.Method, strconv.FormatBool(c.Success))
}

func (g *RedirectGateway) sign(fields ...string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}
