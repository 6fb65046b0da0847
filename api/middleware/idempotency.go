package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/carrental-backend/api/responses"
	pkgerrors "github.com/angelmondragon/carrental-backend/pkg/errors"
	"github.com/angelmondragon/carrental-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/carrental-backend/pkg/redis"
)

const (
	idempotencyHeader      = "Idempotency-Key"
	replayedHeader         = "Idempotency-Replayed"
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	inFlightTTL            = 30 * time.Second
	maxIdempotencyKeyLen   = 255
)

type idempotencyRule struct {
	method string
	route  string
	ttl    time.Duration
}

// Writes that move money or a car get the long window. A rule segment written
// as "*" matches any single path segment.
var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, route: "/api/public/register", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, route: "/api/v1/cars", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, route: "/api/v1/customers", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, route: "/api/v1/contracts", ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, route: "/api/v1/contracts/*/cancel", ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, route: "/api/v1/payments", ttl: criticalIdempotencyTTL},
}

type idempotencyRecord struct {
	Pending     bool              `json:"pending,omitempty"`
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency replays the stored response when a client retries a covered
// write with the same Idempotency-Key. The key is optional; requests without
// it run normally. Server errors are not stored so a retry runs again.
// minTTL raises the replay window of every covered route to at least that long.
func Idempotency(store pkgredis.IdempotencyStore, minTTL time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, covered := routeTTL(r.Method, r.URL.Path)
			idemKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if !covered || store == nil || idemKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if minTTL > ttl {
				ttl = minTTL
			}
			ctx := r.Context()
			if len(idemKey) > maxIdempotencyKeyLen {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(body)
			key := store.IdempotencyKey(buildScope(r), idemKey)

			pending, _ := json.Marshal(idempotencyRecord{Pending: true, RequestHash: requestHash})
			claimed, err := store.SetNX(ctx, key, string(pending), inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replay(w, r, store, key, requestHash, logg)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := defaultStatus(rec.status)
			if status >= http.StatusInternalServerError {
				if delErr := store.Del(ctx, key); delErr != nil && logg != nil {
					logg.Error(ctx, "release idempotency key", delErr)
				}
				return
			}
			record := idempotencyRecord{
				Status:      status,
				Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
				RequestHash: requestHash,
			}
			if ct := rec.Header().Get("Content-Type"); ct != "" {
				record.Headers = map[string]string{"Content-Type": ct}
			}
			payload, err := json.Marshal(record)
			if err == nil {
				err = store.Set(ctx, key, string(payload), ttl)
			}
			if err != nil && logg != nil {
				logg.Error(ctx, "persist idempotency record", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, r *http.Request, store pkgredis.IdempotencyStore, key, requestHash string, logg *logger.Logger) {
	ctx := r.Context()
	stored, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.RequestHash != requestHash {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "Idempotency-Key reused with a different request body"))
		return
	}
	if record.Pending {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
		return
	}

	if ct := record.Headers["Content-Type"]; ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

// buildScope keeps keys from different callers apart; guests share one
// scope per path.
func buildScope(r *http.Request) string {
	caller := "guest"
	if p := PrincipalFromContext(r.Context()); !p.IsGuest() {
		caller = p.UserID.String()
	}
	return strings.Join([]string{caller, r.Method, r.URL.Path}, "|")
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func defaultStatus(value int) int {
	if value == 0 {
		return http.StatusOK
	}
	return value
}

func routeTTL(method, path string) (time.Duration, bool) {
	for _, rule := range idempotencyRules {
		if rule.method == method && matchRoute(rule.route, path) {
			return rule.ttl, true
		}
	}
	return 0, false
}

func matchRoute(rule, path string) bool {
	want := strings.Split(strings.Trim(rule, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] == "*" {
			continue
		}
		if want[i] != got[i] {
			return false
		}
	}
	return true
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
