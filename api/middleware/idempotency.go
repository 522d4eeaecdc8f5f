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

	"github.com/redis/go-redis/v9"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/api/responses"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/api/validators"
	pkgerrors "github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/errors"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/logger"
	pkgredis "github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"

	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	// inFlightTTL caps how long a crashed request can block its key.
	inFlightTTL = 30 * time.Second
)

// ResponseStore is the Redis surface the middleware needs.
type ResponseStore interface {
	pkgredis.IdempotencyStore
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type idempotencyRule struct {
	method string
	match  func(path string) bool
	ttl    time.Duration
}

// Customer cancels and return requests keep their keys for a week, admin
// actions for a day.
var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, match: pathWithin("/api/v1/orders/", "/cancel"), ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, match: pathWithin("/api/v1/orders/", "/returns"), ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, match: pathWithin("/api/v1/admin/orders/", ""), ttl: defaultIdempotencyTTL},
}

// storedResponse is either an in-flight reservation or the finished response.
type storedResponse struct {
	InFlight    bool   `json:"in_flight,omitempty"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency replays the first response for a repeated Idempotency-Key on
// order mutations. The key is reserved before the handler runs so concurrent
// duplicates get a 409 instead of a second cancel or return request. 5xx
// responses release the key so the client can retry.
func Idempotency(store ResponseStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// chi has not resolved the route pattern yet at this level
			ttl, ok := routeTTL(r.Method, r.URL.Path)
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if !ok || store == nil || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			body, err := io.ReadAll(validators.LimitBody(w, r))
			if err != nil {
				if tooLarge := validators.BodyTooLarge(err); tooLarge != nil {
					responses.WriteError(ctx, logg, w, tooLarge)
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := requestHash(body)
			key := store.IdempotencyKey(requestScope(r), clientKey)

			claimed, err := reserve(ctx, store, key, hash)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !claimed {
				replayOrReject(ctx, store, key, hash, w, logg)
				return
			}

			completed := false
			defer func() {
				if completed {
					return
				}
				if delErr := store.Del(context.WithoutCancel(ctx), key); delErr != nil {
					logError(ctx, logg, "release idempotency key", delErr)
				}
			}()

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.statusCode()
			if status >= http.StatusInternalServerError {
				return
			}
			payload, err := json.Marshal(storedResponse{
				RequestHash: hash,
				Status:      status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
			if err != nil {
				logError(ctx, logg, "marshal idempotent response", err)
				return
			}
			if err := store.Set(context.WithoutCancel(ctx), key, string(payload), ttl); err != nil {
				logError(ctx, logg, "store idempotent response", err)
				return
			}
			completed = true
		})
	}
}

func reserve(ctx context.Context, store ResponseStore, key, hash string) (bool, error) {
	marker, err := json.Marshal(storedResponse{InFlight: true, RequestHash: hash})
	if err != nil {
		return false, err
	}
	return store.SetNX(ctx, key, string(marker), inFlightTTL)
}

func replayOrReject(ctx context.Context, store ResponseStore, key, hash string, w http.ResponseWriter, logg *logger.Logger) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// reservation expired between SetNX and Get
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency key"))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotent response"))
		return
	}
	switch {
	case stored.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case stored.InFlight:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
	default:
		if stored.ContentType != "" {
			w.Header().Set("Content-Type", stored.ContentType)
		}
		w.Header().Set(replayedHeader, "true")
		w.WriteHeader(stored.Status)
		_, _ = w.Write(stored.Body)
	}
}

// requestScope keeps keys from colliding across callers and orders.
func requestScope(r *http.Request) string {
	return strings.Join([]string{callerKey(r.Context()), r.Method, r.URL.Path}, "|")
}

func requestHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func routeTTL(method, path string) (time.Duration, bool) {
	for _, rule := range idempotencyRules {
		if rule.method == method && rule.match(path) {
			return rule.ttl, true
		}
	}
	return 0, false
}

func pathWithin(prefix, suffix string) func(string) bool {
	return func(path string) bool {
		return strings.HasPrefix(path, prefix) && strings.HasSuffix(path, suffix)
	}
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
