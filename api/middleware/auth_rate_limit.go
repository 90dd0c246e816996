package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/bookstall-backend/api/responses"
	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
	"github.com/angelmondragon/bookstall-backend/pkg/redis"
)

// maxAuthBody bounds how much of a login or register body is buffered to find the email.
const maxAuthBody = 64 << 10

// windowLimiter is the fixed-window counter of pkg/redis.Client.
type windowLimiter interface {
	FixedWindow(ctx context.Context, scope string, limit int64, window time.Duration) (redis.Window, error)
}

// AuthRateLimitPolicy throttles one auth surface by client IP and by submitted email.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

// limitCheck is one counter consulted for a request.
type limitCheck struct {
	dimension string
	subject   string
	limit     int
}

func (p AuthRateLimitPolicy) scope(c limitCheck) string {
	return c.dimension + ":" + p.name + ":" + c.subject
}

// AuthRateLimit rejects a request with 429 once any of its counters exceeds the policy.
// The IP counter is checked before the body is read.
func AuthRateLimit(policy AuthRateLimitPolicy, limiter windowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if ip := clientIP(r); policy.ipLimit > 0 && ip != "" {
				if !enforce(ctx, w, logg, limiter, policy, limitCheck{dimension: "ip", subject: ip, limit: policy.ipLimit}) {
					return
				}
			}

			if policy.emailLimit > 0 && r.Body != nil {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxAuthBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				if email := extractEmail(body); email != "" {
					if !enforce(ctx, w, logg, limiter, policy, limitCheck{dimension: "email", subject: hashValue(email), limit: policy.emailLimit}) {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// enforce counts the request against c and reports whether it may proceed.
// It writes the error response itself when it returns false.
func enforce(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, limiter windowLimiter, policy AuthRateLimitPolicy, c limitCheck) bool {
	win, err := limiter.FixedWindow(ctx, policy.scope(c), int64(c.limit), policy.window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
		return false
	}
	if win.Allowed {
		return true
	}

	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"dimension":      c.dimension,
			"subject":        c.subject,
			"policy":         policy.name,
			"attempts":       win.Count,
			"limit":          c.limit,
			"window_seconds": int(policy.window.Seconds()),
		})
		logg.Warn(logCtx, "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(win.ResetIn, policy.window)))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
	return false
}

// retryAfterSeconds rounds the time left in the window up to whole seconds.
func retryAfterSeconds(resetIn, window time.Duration) int {
	if resetIn <= 0 {
		resetIn = window
	}
	return max(1, int((resetIn+time.Second-1)/time.Second))
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// extractEmail returns the normalized email field of a JSON body, or "" if absent.
func extractEmail(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
