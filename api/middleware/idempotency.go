package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/gigbridge-backend/api/responses"
	pkgerrors "github.com/angelmondragon/gigbridge-backend/pkg/errors"
	"github.com/angelmondragon/gigbridge-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/gigbridge-backend/pkg/redis"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"

	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	// pendingTTL bounds how long a crashed request can block its key.
	pendingTTL = 2 * time.Minute
)

// guardedRoutes lists the POST templates that require an Idempotency-Key.
// Settlement-bearing routes keep their replay record for a week.
var guardedRoutes = map[string]time.Duration{
	"/api/v1/projects/{projectId}/engagements":       defaultIdempotencyTTL,
	"/api/v1/engagements/{engagementId}/content":     defaultIdempotencyTTL,
	"/api/v1/engagements/{engagementId}/discussions": defaultIdempotencyTTL,
	"/api/v1/uploads/presign":                        defaultIdempotencyTTL,
	"/api/v1/notifications/{notificationId}/read":    defaultIdempotencyTTL,
	"/api/v1/notifications/read-all":                 defaultIdempotencyTTL,
	"/api/v1/engagements/{engagementId}/status":      criticalIdempotencyTTL,
	"/api/v1/engagements/{engagementId}/reject":      criticalIdempotencyTTL,
}

// idempotencyRecord is what lives under the key. A record without a status
// marks a request still being served.
type idempotencyRecord struct {
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body,omitempty"`
}

func (r idempotencyRecord) pending() bool { return r.Status == 0 }

// Idempotency replays the stored response for a repeated (caller, route, key)
// triple. A repeat with a different body, or one that arrives while the first
// is still running, is rejected with IDEMPOTENCY_KEY_REUSED. Server errors are
// not stored so the client can retry them.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := routeTTL(r.Method, routePattern(r))
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := hashBody(body)
			key := store.IdempotencyKey(idempotencyScope(r), clientKey)

			reserved, err := reserve(ctx, store, key, hash)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if !reserved {
				replay(ctx, store, key, hash, logg, w)
				return
			}

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			var captured bytes.Buffer
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			// the request is finished; its bookkeeping must survive a client disconnect
			storeCtx := context.WithoutCancel(ctx)
			if status >= http.StatusInternalServerError {
				if err := store.Del(storeCtx, key); err != nil {
					logg.Error(ctx, "release idempotency reservation", err)
				}
				return
			}
			record := idempotencyRecord{
				RequestHash: hash,
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        base64.StdEncoding.EncodeToString(captured.Bytes()),
			}
			if err := save(storeCtx, store, key, record, ttl); err != nil {
				logg.Error(ctx, "persist idempotency record", err)
			}
		})
	}
}

// reserve claims key with a pending record. It reports false when a record
// already exists.
func reserve(ctx context.Context, store pkgredis.IdempotencyStore, key, hash string) (bool, error) {
	payload, _ := json.Marshal(idempotencyRecord{RequestHash: hash})
	ok, err := store.SetNX(ctx, key, string(payload), pendingTTL)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key")
	}
	return ok, nil
}

// save replaces the pending record in place so the key never goes missing
// between reservation and replay.
func save(ctx context.Context, store pkgredis.IdempotencyStore, key string, record idempotencyRecord, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return store.Set(ctx, key, string(payload), ttl)
}

func replay(ctx context.Context, store pkgredis.IdempotencyStore, key, hash string, logg *logger.Logger, w http.ResponseWriter) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// released between SETNX and GET: the first request hit a server error and may be retried
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key just completed, retry"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case record.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case record.pending():
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still in progress"))
	default:
		body, err := base64.StdEncoding.DecodeString(record.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
			return
		}
		if record.ContentType != "" {
			w.Header().Set("Content-Type", record.ContentType)
		}
		w.Header().Set(ReplayedHeader, "true")
		w.WriteHeader(record.Status)
		_, _ = w.Write(body)
	}
}

// idempotencyScope keeps one caller's keys from colliding with another's or
// with the same key sent to a different route.
func idempotencyScope(r *http.Request) string {
	owner := "anonymous"
	if caller, ok := CallerFrom(r.Context()); ok {
		owner = caller.UserID.String()
	}
	return owner + "|" + r.Method + "|" + r.URL.Path
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.RawStdEncoding.EncodeToString(sum[:])
}

// routePattern prefers the chi pattern but falls back to the raw path while
// routing is still in progress (pattern ends in "/*").
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" && !strings.Contains(pattern, "*") {
			return pattern
		}
	}
	return r.URL.Path
}

func routeTTL(method, pattern string) (time.Duration, bool) {
	if method != http.MethodPost || pattern == "" {
		return 0, false
	}
	for template, ttl := range guardedRoutes {
		if matchTemplate(template, pattern) {
			return ttl, true
		}
	}
	return 0, false
}

// matchTemplate compares path segments, treating {param} segments as
// non-empty wildcards.
func matchTemplate(template, path string) bool {
	want := strings.Split(strings.Trim(template, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(got) != len(want) {
		return false
	}
	for i, segment := range want {
		isParam := strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}")
		if (isParam && got[i] == "") || (!isParam && got[i] != segment) {
			return false
		}
	}
	return true
}
