package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/carrental-backend/internal/policy"
	"github.com/angelmondragon/carrental-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carrental-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func idemRequest(method, url, key, body string) *http.Request {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	return req
}

func errorCode(t *testing.T, body io.Reader) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&payload))
	return payload.Error.Code
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{http.MethodPost, "/api/v1/contracts", criticalIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/contracts/7c1e9a52-0c4b-4f7e-9d1a-2b3c4d5e6f70/cancel", criticalIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/contracts/3f0c/cancel", criticalIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/payments", criticalIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/cars", defaultIdempotencyTTL, true},
		{http.MethodPost, "/api/public/register", defaultIdempotencyTTL, true},
		{http.MethodPatch, "/api/v1/contracts/{contractID}", 0, false},
		{http.MethodPost, "/api/public/login", 0, false},
		{http.MethodPost, "/api/v1/contracts/abc/cancel/extra", 0, false},
	}
	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, ttl, tt.path)
	}
}

func TestIdempotencyWithoutKeyPassesThrough(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, 0, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, idemRequest(http.MethodPost, "/api/v1/contracts", "", `{}`))
		assert.Equal(t, http.StatusCreated, resp.Code)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, 0, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"c-1"}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, idemRequest(http.MethodPost, "/api/v1/contracts", "abc", `{"car_id":"x"}`))
	require.Equal(t, http.StatusCreated, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, idemRequest(http.MethodPost, "/api/v1/contracts", "abc", `{"car_id":"x"}`))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, "true", second.Header().Get(replayedHeader))
	assert.JSONEq(t, `{"data":{"id":"c-1"}}`, second.Body.String())
	assert.Equal(t, 1, calls)

	for key, ttl := range store.ttls {
		assert.Equal(t, criticalIdempotencyTTL, ttl, key)
	}
}

func TestIdempotencyRejectsBodyChange(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, 0, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), idemRequest(http.MethodPost, "/api/v1/payments", "xyz", `{"amount":"10"}`))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, idemRequest(http.MethodPost, "/api/v1/payments", "xyz", `{"amount":"99"}`))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, resp.Body))
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, 0, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, idemRequest(http.MethodPost, "/api/v1/contracts", "k1", `{}`))
	assert.Equal(t, http.StatusServiceUnavailable, first.Code)
	assert.Empty(t, store.data)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, idemRequest(http.MethodPost, "/api/v1/contracts", "k1", `{}`))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyReportsInFlightRequest(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, 0, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner := httptest.NewRecorder()
		Idempotency(store, 0, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("duplicate request must not reach the handler")
		})).ServeHTTP(inner, idemRequest(http.MethodPost, "/api/v1/contracts", "dup", `{}`))
		assert.Equal(t, http.StatusConflict, inner.Code)
		w.WriteHeader(http.StatusCreated)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, idemRequest(http.MethodPost, "/api/v1/contracts", "dup", `{}`))
	assert.Equal(t, http.StatusCreated, resp.Code)
}

func TestIdempotencyScopesKeysByCaller(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, 0, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		req := idemRequest(http.MethodPost, "/api/v1/payments", "same", `{}`)
		req = req.WithContext(WithPrincipal(req.Context(), policy.Principal{UserID: uuid.New(), Role: enums.RoleCustomer}))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 2, calls)
}
