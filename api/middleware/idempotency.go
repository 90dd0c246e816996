package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/bookstall-backend/api/responses"
	pkgerrors "github.com/angelmondragon/bookstall-backend/pkg/errors"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/bookstall-backend/pkg/redis"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"
	maxIdempotencyKeyLen = 255
	// pendingTTL bounds how long a crashed request can block its key.
	pendingTTL = 2 * time.Minute
)

// IdempotencyPolicy decides how long a replayable response is kept and
// whether clients must send Idempotency-Key.
type IdempotencyPolicy struct {
	TTL      time.Duration
	Required bool
}

var (
	// IdempotencyOptional suits ordinary creates.
	IdempotencyOptional = IdempotencyPolicy{TTL: 24 * time.Hour}
	// IdempotencyRequired guards endpoints where a replay could charge twice.
	IdempotencyRequired = IdempotencyPolicy{TTL: 7 * 24 * time.Hour, Required: true}
)

// ResponseStore is satisfied by pkg/redis.Client.
type ResponseStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Idempotency replays the first completed response for a (user, method, path, key)
// tuple. 5xx responses are not stored so the client can retry with the same key.
type Idempotency struct {
	store ResponseStore
	logg  *logger.Logger
}

// NewIdempotency returns nil when store is nil; a nil guard passes requests through.
func NewIdempotency(store ResponseStore, logg *logger.Logger) *Idempotency {
	if store == nil {
		return nil
	}
	return &Idempotency{store: store, logg: logg}
}

// storedResponse is the Redis value. Pending entries carry only the request hash.
type storedResponse struct {
	Pending     bool   `json:"pending,omitempty"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

func (i *Idempotency) Guard(policy IdempotencyPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if i == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
			switch {
			case clientKey == "" && policy.Required:
				responses.WriteError(ctx, i.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			case clientKey == "":
				next.ServeHTTP(w, r)
				return
			case len(clientKey) > maxIdempotencyKeyLen:
				responses.WriteError(ctx, i.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, i.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := requestHash(body)
			key := i.store.IdempotencyKey(requestScope(r), clientKey)

			claimed, err := i.claim(ctx, key, hash)
			if err != nil {
				responses.WriteError(ctx, i.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency claim"))
				return
			}
			if !claimed {
				i.replay(w, r, key, hash)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)
			i.finish(ctx, key, hash, policy, capture)
		})
	}
}

// claim reserves key with a pending marker. It reports false when the key is
// already held by an earlier or concurrent request.
func (i *Idempotency) claim(ctx context.Context, key, hash string) (bool, error) {
	pending, err := json.Marshal(storedResponse{Pending: true, RequestHash: hash})
	if err != nil {
		return false, err
	}
	return i.store.SetNX(ctx, key, string(pending), pendingTTL)
}

func (i *Idempotency) replay(w http.ResponseWriter, r *http.Request, key, hash string) {
	ctx := r.Context()
	raw, err := i.store.Get(ctx, key)
	if errors.Is(err, pkgredis.ErrNotFound) {
		// the pending marker expired between claim and read
		responses.WriteError(ctx, i.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this Idempotency-Key is still in progress"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, i.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency lookup"))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, i.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case stored.RequestHash != hash:
		responses.WriteError(ctx, i.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "Idempotency-Key reused with a different request body"))
	case stored.Pending:
		responses.WriteError(ctx, i.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this Idempotency-Key is still in progress"))
	default:
		if stored.ContentType != "" {
			w.Header().Set("Content-Type", stored.ContentType)
		}
		w.Header().Set(replayedHeader, "true")
		w.WriteHeader(stored.Status)
		_, _ = w.Write(stored.Body)
	}
}

func (i *Idempotency) finish(ctx context.Context, key, hash string, policy IdempotencyPolicy, capture *responseCapture) {
	status := capture.statusCode()
	if status >= http.StatusInternalServerError {
		if err := i.store.Del(ctx, key); err != nil && i.logg != nil {
			i.logg.Error(ctx, "idempotency release failed", err)
		}
		return
	}

	payload, err := json.Marshal(storedResponse{
		RequestHash: hash,
		Status:      status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
	})
	if err == nil {
		err = i.store.Set(ctx, key, string(payload), policy.TTL)
	}
	if err != nil && i.logg != nil {
		i.logg.Error(ctx, "idempotency record not saved", err)
	}
}

// requestScope ties a key to the caller and the target so two users, or one
// user on two endpoints, never share a stored response.
func requestScope(r *http.Request) string {
	return strings.Join([]string{UserIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
}

func requestHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
