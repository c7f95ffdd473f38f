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

	"github.com/angelmondragon/rxexchange-backend/api/responses"
	"github.com/angelmondragon/rxexchange-backend/api/validators"
	pkgerrors "github.com/angelmondragon/rxexchange-backend/pkg/errors"
	"github.com/angelmondragon/rxexchange-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/rxexchange-backend/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"

	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	// inFlightTTL bounds how long a crashed request can block its key.
	inFlightTTL = 2 * time.Minute
)

// idempotentRoute matches mutating order routes by method and path shape.
// An empty suffix means an exact match on prefix.
type idempotentRoute struct {
	method string
	prefix string
	suffix string
	ttl    time.Duration
}

var idempotentRoutes = []idempotentRoute{
	{http.MethodPost, "/api/v1/orders", "", criticalIdempotencyTTL},
	{http.MethodPost, "/api/v1/orders/", "/cancel", criticalIdempotencyTTL},
	{http.MethodPost, "/api/v1/supplier/orders/", "/cancel", criticalIdempotencyTTL},
	{http.MethodPost, "/api/v1/supplier/orders/", "/reject", criticalIdempotencyTTL},
	{http.MethodPost, "/api/v1/supplier/orders/", "/ship", defaultIdempotencyTTL},
}

func (rt idempotentRoute) matches(method, path string) bool {
	if rt.method != method {
		return false
	}
	if rt.suffix == "" {
		return path == rt.prefix
	}
	return strings.HasPrefix(path, rt.prefix) && strings.HasSuffix(path, rt.suffix)
}

func routeTTL(method, path string) (time.Duration, bool) {
	for _, rt := range idempotentRoutes {
		if rt.matches(method, path) {
			return rt.ttl, true
		}
	}
	return 0, false
}

// storedResponse is what gets persisted per key. Pending marks a request that
// has claimed the key but not finished yet.
type storedResponse struct {
	Pending     bool   `json:"pending,omitempty"`
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency guards order mutations keyed by the Idempotency-Key header.
// The first request claims the key, later ones with the same body replay its
// response, and ones with a different body are rejected.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := routeTTL(r.Method, strings.TrimSuffix(r.URL.Path, "/"))
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, validators.MaxBodyBytes))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request body too large").
						WithDetails(map[string]any{"limit": validators.MaxBodyBytes}))
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := fingerprintOf(body)
			key := store.IdempotencyKey(scopeOf(r), clientKey)

			claim, _ := json.Marshal(storedResponse{Pending: true, Fingerprint: fingerprint})
			claimed, err := store.SetNX(ctx, key, string(claim), inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replayExisting(w, r, store, logg, key, fingerprint)
				return
			}

			completed := false
			defer func() {
				if completed {
					return
				}
				// handler panicked; free the key before the recoverer sees it
				if err := store.Del(ctx, key); err != nil {
					logg.Error(ctx, "release idempotency key", err)
				}
			}()

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)
			completed = true

			status := capture.statusCode()
			if status >= http.StatusInternalServerError {
				// release the claim so the client can retry
				if err := store.Del(ctx, key); err != nil {
					logg.Error(ctx, "release idempotency key", err)
				}
				return
			}

			final, _ := json.Marshal(storedResponse{
				Fingerprint: fingerprint,
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err := store.Set(ctx, key, string(final), ttl); err != nil {
				logg.Error(ctx, "persist idempotency record", err)
			}
		})
	}
}

func replayExisting(w http.ResponseWriter, r *http.Request, store pkgredis.IdempotencyStore, logg *logger.Logger, key, fingerprint string) {
	ctx := r.Context()
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// claim expired or was released between SetNX and Get
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request in progress, retry"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case stored.Fingerprint != fingerprint:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case stored.Pending:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is still in progress"))
	default:
		if stored.ContentType != "" {
			w.Header().Set("Content-Type", stored.ContentType)
		}
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(stored.Status)
		_, _ = w.Write(stored.Body)
	}
}

// scopeOf binds a client key to the caller and route so two tenants can
// reuse the same key value.
func scopeOf(r *http.Request) string {
	return strings.Join([]string{
		TenantIDFromContext(r.Context()),
		UserIDFromContext(r.Context()),
		r.Method,
		r.URL.Path,
	}, "|")
}

func fingerprintOf(body []byte) string {
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
