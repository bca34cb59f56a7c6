package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/trato-app/trato-backend/api/responses"
	pkgerrors "github.com/trato-app/trato-backend/pkg/errors"
	"github.com/trato-app/trato-backend/pkg/logger"
	pkgredis "github.com/trato-app/trato-backend/pkg/redis"
)

// Order mutations keep their replay window for a week so a mobile client
// retrying after a long offline stretch still gets the stored response.
// Catalog and notification writes only need a day.
const (
	catalogReplayTTL = 24 * time.Hour
	orderReplayTTL   = 7 * 24 * time.Hour
)

// replayRule matches a chi route pattern. Exact wins when set; otherwise the
// pattern must carry both prefix and suffix (the middle is the {id} segment).
type replayRule struct {
	method string
	exact  string
	prefix string
	suffix string
	ttl    time.Duration
}

func (rule replayRule) matches(method, pattern string) bool {
	if rule.method != method {
		return false
	}
	if rule.exact != "" {
		return pattern == rule.exact
	}
	return strings.HasPrefix(pattern, rule.prefix) && strings.HasSuffix(pattern, rule.suffix)
}

var replayRules = []replayRule{
	{method: http.MethodPost, exact: "/api/v1/orders", ttl: orderReplayTTL},
	{method: http.MethodPost, prefix: "/api/v1/orders/", suffix: "/cancel", ttl: orderReplayTTL},
	{method: http.MethodPost, prefix: "/api/v1/seller/orders/", suffix: "/accept", ttl: orderReplayTTL},
	{method: http.MethodPost, prefix: "/api/v1/seller/orders/", suffix: "/ready", ttl: orderReplayTTL},
	{method: http.MethodPost, prefix: "/api/v1/seller/orders/", suffix: "/deliver", ttl: orderReplayTTL},
	{method: http.MethodPost, prefix: "/api/v1/driver/orders/", suffix: "/claim", ttl: orderReplayTTL},
	{method: http.MethodPost, prefix: "/api/v1/driver/orders/", suffix: "/pickup", ttl: orderReplayTTL},
	{method: http.MethodPost, prefix: "/api/v1/driver/orders/", suffix: "/transit", ttl: orderReplayTTL},
	{method: http.MethodPost, prefix: "/api/v1/driver/orders/", suffix: "/deliver", ttl: orderReplayTTL},

	{method: http.MethodPost, exact: "/api/v1/seller/products", ttl: catalogReplayTTL},
	{method: http.MethodPut, prefix: "/api/v1/seller/products/", suffix: "/stock", ttl: catalogReplayTTL},
	{method: http.MethodPost, exact: "/api/v1/seller/daily-products", ttl: catalogReplayTTL},
	{method: http.MethodPost, prefix: "/api/v1/seller/daily-products/", suffix: "/close", ttl: catalogReplayTTL},
	{method: http.MethodPost, prefix: "/api/v1/notifications/", suffix: "/read", ttl: catalogReplayTTL},
	{method: http.MethodPost, exact: "/api/v1/notifications/read-all", ttl: catalogReplayTTL},
}

func replayTTL(method, pattern string) (time.Duration, bool) {
	if pattern == "" {
		return 0, false
	}
	for _, rule := range replayRules {
		if rule.matches(method, pattern) {
			return rule.ttl, true
		}
	}
	return 0, false
}

// storedResponse is what a replay returns: the original status and body plus
// the hash that pins the key to one request payload.
type storedResponse struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency enforces Idempotency-Key on mutating routes. First use runs the
// handler and stores its response; repeats with the same body replay it, and
// repeats with a different body are rejected.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := replayTTL(r.Method, chiRoutePattern(r))
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if clientKey == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			digest := sha256.Sum256(body)
			requestHash := hex.EncodeToString(digest[:])

			// Scope keys per user so two members can reuse the same key value.
			scope := strings.Join([]string{UserIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
			key := store.IdempotencyKey(scope, clientKey)

			stored, err := store.Get(r.Context(), key)
			switch {
			case err != nil && !errors.Is(err, redis.Nil):
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			case stored != "":
				var prior storedResponse
				if err := json.Unmarshal([]byte(stored), &prior); err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
					return
				}
				if prior.RequestHash != requestHash {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				replay(w, prior)
				return
			}

			buffered := &bufferingWriter{ResponseWriter: w}
			next.ServeHTTP(buffered, r)

			snapshot := storedResponse{
				Status:      buffered.statusOr(http.StatusOK),
				Body:        base64.StdEncoding.EncodeToString(buffered.body.Bytes()),
				RequestHash: requestHash,
			}
			if ct := buffered.Header().Get("Content-Type"); ct != "" {
				snapshot.Headers = map[string]string{"Content-Type": ct}
			}

			payload, err := json.Marshal(snapshot)
			if err != nil {
				if logg != nil {
					logg.Error(r.Context(), "marshal idempotency record", err)
				}
				return
			}
			if _, err := store.SetNX(r.Context(), key, string(payload), ttl); err != nil && logg != nil {
				logg.Error(r.Context(), "persist idempotency record", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, prior storedResponse) {
	if ct := prior.Headers["Content-Type"]; ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(prior.Status)
	if decoded, err := base64.StdEncoding.DecodeString(prior.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

// chiRoutePattern normalizes away the trailing slash chi leaves on patterns
// registered as r.Post("/") inside a Route block.
func chiRoutePattern(r *http.Request) string {
	pattern := r.URL.Path
	if ctx := chi.RouteContext(r.Context()); ctx != nil && ctx.RoutePattern() != "" {
		pattern = ctx.RoutePattern()
	}
	if len(pattern) > 1 {
		pattern = strings.TrimSuffix(pattern, "/")
	}
	return pattern
}

type bufferingWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (b *bufferingWriter) statusOr(fallback int) int {
	if b.status == 0 {
		return fallback
	}
	return b.status
}

func (b *bufferingWriter) WriteHeader(code int) {
	b.status = code
	b.ResponseWriter.WriteHeader(code)
}

func (b *bufferingWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	b.body.Write(p)
	return b.ResponseWriter.Write(p)
}
