package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/wholesale-backend/api/responses"
	pkgerrors "github.com/angelmondragon/wholesale-backend/pkg/errors"
	"github.com/angelmondragon/wholesale-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/wholesale-backend/pkg/redis"
)

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour

	idempotencyHeader = "Idempotency-Key"
)

// idempotentRoutes lists the mutating endpoints that honor an
// Idempotency-Key, keyed by "METHOD path". Checkout records live longest
// because a replayed checkout would place a second order.
var idempotentRoutes = map[string]time.Duration{
	http.MethodPost + " /api/v1/checkout":        criticalIdempotencyTTL,
	http.MethodPost + " /api/v1/payments/verify": defaultIdempotencyTTL,
	http.MethodPost + " /api/v1/cart/items":      defaultIdempotencyTTL,
}

// storedResponse is the JSON document kept in redis per key. Body is
// base64 encoded by encoding/json.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	BodySHA256  string `json:"request_hash"`
}

// Idempotency replays the first non-5xx response recorded for a
// (user, route, Idempotency-Key) triple. A key reused with a different body
// is rejected with IDEMPOTENCY_KEY_REUSED. Requests without a key, and all
// requests when no store is configured, pass through untouched.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, requestPath(r))
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if !ok || store == nil || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			fail := func(err error) { responses.WriteError(ctx, logg, w, err) }

			body, err := io.ReadAll(r.Body)
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			digest := sha256.Sum256(body)
			bodyHash := hex.EncodeToString(digest[:])

			key := store.IdempotencyKey(UserIDFromContext(ctx)+"|"+r.Method+"|"+requestPath(r), clientKey)
			prior, err := lookup(r, store, key)
			if err != nil {
				fail(err)
				return
			}
			if prior != nil {
				if prior.BodySHA256 != bodyHash {
					fail(pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				prior.replay(w)
				return
			}

			capture := &responseCapture{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)
			if capture.status >= http.StatusInternalServerError {
				return
			}

			payload, err := json.Marshal(storedResponse{
				Status:      capture.status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
				BodySHA256:  bodyHash,
			})
			if err == nil {
				_, err = store.SetNX(ctx, key, string(payload), ttl)
			}
			if err != nil && logg != nil {
				logg.Error(ctx, "persist idempotency record", err)
			}
		})
	}
}

func lookup(r *http.Request, store pkgredis.IdempotencyStore, key string) (*storedResponse, error) {
	raw, err := store.Get(r.Context(), key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return &stored, nil
}

func (s *storedResponse) replay(w http.ResponseWriter) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

// requestPath is the concrete path with any trailing slash removed.
// Middleware on a sub-router runs before chi resolves the full route
// pattern, so rules match on the path itself.
func requestPath(r *http.Request) string {
	path := r.URL.Path
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

func routeTTL(method, path string) (time.Duration, bool) {
	ttl, ok := idempotentRoutes[method+" "+path]
	return ttl, ok
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
