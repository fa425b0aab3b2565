package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/tradeinz-backend/pkg/errors"
)

type fakeIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]string
	ttls    map[string]time.Duration
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{
		entries: map[string]string{},
		ttls:    map[string]time.Duration{},
	}
}

func (f *fakeIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.entries[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeIdempotencyStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.entries[key]; exists {
		return false, nil
	}
	f.entries[key] = value.(string)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "tz:idem:" + scope + ":" + id
}

func (f *fakeIdempotencyStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.entries, key)
	}
	return nil
}

func claimRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/partner/orders/7f000001-0000-0000-0000-000000000001/claim", strings.NewReader(body))
	req = req.WithContext(WithUserID(req.Context(), "user-1"))
	req = req.WithContext(WithPartnerID(req.Context(), "partner-1"))
	return req
}

func TestIdempotencyRequiresKeyOnGuardedRoute(t *testing.T) {
	handler := Idempotency(newFakeIdempotencyStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a key")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, claimRequest(""))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestIdempotencySkipsUnguardedRoutes(t *testing.T) {
	var calls int
	handler := Idempotency(newFakeIdempotencyStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/partner/orders/available", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || calls != 1 {
		t.Fatalf("expected pass-through, got %d calls %d", rec.Code, calls)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeIdempotencyStore()
	var calls int
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"status":"pending_acceptance"}}`))
	}))

	first := claimRequest("")
	first.Header.Set("Idempotency-Key", "claim-attempt-1")
	firstRec := httptest.NewRecorder()
	handler.ServeHTTP(firstRec, first)

	second := claimRequest("")
	second.Header.Set("Idempotency-Key", "claim-attempt-1")
	secondRec := httptest.NewRecorder()
	handler.ServeHTTP(secondRec, second)

	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if secondRec.Code != http.StatusOK {
		t.Fatalf("expected replayed 200, got %d", secondRec.Code)
	}
	if firstRec.Body.String() != secondRec.Body.String() {
		t.Fatalf("replayed body differs: %q vs %q", firstRec.Body.String(), secondRec.Body.String())
	}
	if ct := secondRec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type not replayed, got %q", ct)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newFakeIdempotencyStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRequest(http.MethodPatch, "/api/v1/orders/7f000001-0000-0000-0000-000000000001/status", strings.NewReader(`{"status":"picked"}`))
	first = first.WithContext(WithUserID(first.Context(), "user-1"))
	first.Header.Set("Idempotency-Key", "transition-1")
	handler.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPatch, "/api/v1/orders/7f000001-0000-0000-0000-000000000001/status", strings.NewReader(`{"status":"paid"}`))
	second = second.WithContext(WithUserID(second.Context(), "user-1"))
	second.Header.Set("Idempotency-Key", "transition-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, second)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("unexpected code: %s", payload.Error.Code)
	}
}

func TestIdempotencyUsesLongTTLForClaimRoutes(t *testing.T) {
	store := newFakeIdempotencyStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := claimRequest("")
	req.Header.Set("Idempotency-Key", "claim-attempt-ttl")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.ttls) != 1 {
		t.Fatalf("expected one stored record, got %d", len(store.ttls))
	}
	for _, ttl := range store.ttls {
		if ttl != criticalIdempotencyTTL {
			t.Fatalf("expected claim TTL %s, got %s", criticalIdempotencyTTL, ttl)
		}
	}
}

func TestIdempotencyGuardsNestedChiRoutes(t *testing.T) {
	store := newFakeIdempotencyStore()
	var calls int

	// Same mounting as the production router: the middleware sits on a
	// parent Route group, the guarded endpoint on a nested one.
	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		r.Use(Idempotency(store, nil))
		r.Route("/v1/partner/orders", func(r chi.Router) {
			r.Post("/{orderId}/claim", func(w http.ResponseWriter, _ *http.Request) {
				calls++
				w.WriteHeader(http.StatusOK)
			})
		})
	})

	missing := httptest.NewRequest(http.MethodPost, "/api/v1/partner/orders/7f000001-0000-0000-0000-000000000001/claim", nil)
	missingRec := httptest.NewRecorder()
	router.ServeHTTP(missingRec, missing)
	if missingRec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a key, got %d", missingRec.Code)
	}
	if calls != 0 {
		t.Fatalf("handler ran %d times without a key", calls)
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/partner/orders/7f000001-0000-0000-0000-000000000001/claim", nil)
		req.Header.Set("Idempotency-Key", "routed-claim-1")
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 1 {
		t.Fatalf("expected one execution and one replay, handler ran %d times", calls)
	}
}

func TestIdempotencyScopesKeysPerUser(t *testing.T) {
	store := newFakeIdempotencyStore()
	var calls int
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	first := claimRequest("")
	first.Header.Set("Idempotency-Key", "shared-key")
	handler.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/partner/orders/7f000001-0000-0000-0000-000000000001/claim", strings.NewReader(""))
	second = second.WithContext(WithUserID(second.Context(), "user-2"))
	second = second.WithContext(WithPartnerID(second.Context(), "partner-2"))
	second.Header.Set("Idempotency-Key", "shared-key")
	handler.ServeHTTP(httptest.NewRecorder(), second)

	if calls != 2 {
		t.Fatalf("expected both users to reach the handler, got %d calls", calls)
	}
}
