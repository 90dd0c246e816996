package redis

import "strings"

// Every key lives under bs:<kind>:... so one Redis can be shared with other apps.
const keyNamespace = "bs"

const (
	kindIdempotency = "idempotency"
	kindRateLimit   = "rate_limit"
	kindCheckout    = "checkout"
	kindLock        = "lock"
	kindSession     = "session"
)

func (c *Client) IdempotencyKey(scope, id string) string {
	return buildKey(kindIdempotency, scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return buildKey(kindRateLimit, scope)
}

// CheckoutKey addresses a pending checkout by its gateway reference.
func (c *Client) CheckoutKey(reference string) string {
	return buildKey(kindCheckout, reference)
}

func (c *Client) AccessSessionKey(accessID string) string {
	return buildKey(kindSession, accessID)
}

func (c *Client) LockKey(name string) string {
	return buildKey(kindLock, name)
}

// buildKey joins the trimmed non-blank parts under the namespace.
func buildKey(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}
