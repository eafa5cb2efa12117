package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-order-workflows/internal/apperr"
	"github.com/ariefcatur/go-order-workflows/internal/auth"
	"github.com/ariefcatur/go-order-workflows/internal/cart"
	"github.com/ariefcatur/go-order-workflows/internal/catalog"
	"github.com/ariefcatur/go-order-workflows/internal/config"
	"github.com/ariefcatur/go-order-workflows/internal/federated"
	"github.com/ariefcatur/go-order-workflows/internal/orders"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var errNotStubbed = errors.New("not stubbed")

type stubOrders struct {
	create   func(ctx context.Context, userID string, in orders.PlaceInput) (*orders.Order, error)
	cancel   func(ctx context.Context, userID string, id uuid.UUID) error
	listMine func(ctx context.Context, userID string) ([]orders.Order, error)
	get      func(ctx context.Context, userID string, id uuid.UUID) (*orders.Order, error)
}

func (s *stubOrders) Create(ctx context.Context, userID string, in orders.PlaceInput) (*orders.Order, error) {
	if s.create == nil {
		return nil, errNotStubbed
	}
	return s.create(ctx, userID, in)
}

func (s *stubOrders) Cancel(ctx context.Context, userID string, id uuid.UUID) error {
	if s.cancel == nil {
		return errNotStubbed
	}
	return s.cancel(ctx, userID, id)
}

func (s *stubOrders) ListMine(ctx context.Context, userID string) ([]orders.Order, error) {
	if s.listMine == nil {
		return nil, errNotStubbed
	}
	return s.listMine(ctx, userID)
}

func (s *stubOrders) Get(ctx context.Context, userID string, id uuid.UUID) (*orders.Order, error) {
	if s.get == nil {
		return nil, errNotStubbed
	}
	return s.get(ctx, userID, id)
}

type stubCart struct {
	add func(ctx context.Context, userID string, productID uuid.UUID, quantity int) error
}

func (s *stubCart) Get(ctx context.Context, userID string) (*cart.View, error) {
	return &cart.View{Items: []cart.Item{}}, nil
}

func (s *stubCart) Add(ctx context.Context, userID string, productID uuid.UUID, quantity int) error {
	if s.add == nil {
		return errNotStubbed
	}
	return s.add(ctx, userID, productID, quantity)
}

func (s *stubCart) Update(ctx context.Context, userID string, id uuid.UUID, quantity int) error {
	return nil
}

func (s *stubCart) Remove(ctx context.Context, userID string, id uuid.UUID) error {
	return cart.ErrNotInCart
}

func (s *stubCart) Clear(ctx context.Context, userID string) error { return nil }

type stubCatalog struct {
	create func(ctx context.Context, in catalog.NewProduct) (*catalog.Product, error)
}

func (s *stubCatalog) List(ctx context.Context, params catalog.ListParams) (*catalog.Page, error) {
	return &catalog.Page{Products: []catalog.Product{}, Total: 45, Limit: params.Limit, Offset: params.Offset}, nil
}

func (s *stubCatalog) Get(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return nil, apperr.Wrap(apperr.CodeNotFound, catalog.ErrNotFound, "Product not found")
}

func (s *stubCatalog) Create(ctx context.Context, in catalog.NewProduct) (*catalog.Product, error) {
	if s.create == nil {
		return nil, errNotStubbed
	}
	return s.create(ctx, in)
}

func (s *stubCatalog) Update(ctx context.Context, id uuid.UUID, patch catalog.ProductPatch) (*catalog.Product, error) {
	return nil, errNotStubbed
}

type stubFederated struct {
	create func(ctx context.Context, in federated.CreateInput) (*federated.EnrichedOrder, error)
	update func(ctx context.Context, id int64, in federated.UpdateInput) (*federated.EnrichedOrder, error)
	list   func(ctx context.Context) ([]federated.EnrichedOrder, error)
	delete func(ctx context.Context, id int64) error
}

func (s *stubFederated) Create(ctx context.Context, in federated.CreateInput) (*federated.EnrichedOrder, error) {
	return s.create(ctx, in)
}

func (s *stubFederated) Get(ctx context.Context, id int64) (*federated.EnrichedOrder, error) {
	return nil, federated.ErrOrderNotFound
}

func (s *stubFederated) Update(ctx context.Context, id int64, in federated.UpdateInput) (*federated.EnrichedOrder, error) {
	return s.update(ctx, id, in)
}

func (s *stubFederated) List(ctx context.Context) ([]federated.EnrichedOrder, error) {
	return s.list(ctx)
}

func (s *stubFederated) Delete(ctx context.Context, id int64) error {
	return s.delete(ctx, id)
}

// memRedis backs both the idempotency store and the limiter in tests.
type memRedis struct {
	mu     sync.Mutex
	data   map[string]string
	counts map[string]int64
	down   bool
}

func newMemRedis() *memRedis {
	return &memRedis{data: map[string]string{}, counts: map[string]int64{}}
}

func (m *memRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memRedis) SetNX(ctx context.Context, key string, value any, exp time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = string(value.([]byte))
	return redis.NewBoolResult(true, nil)
}

func (m *memRedis) Set(ctx context.Context, key string, value any, exp time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (m *memRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *memRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return redis.NewIntResult(0, errors.New("dial tcp: connection refused"))
	}
	m.counts[key]++
	return redis.NewIntResult(m.counts[key], nil)
}

func (m *memRedis) Expire(ctx context.Context, key string, exp time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

var testJWT = config.JWTConfig{Secret: "test-secret", Issuer: "shop-test", TTL: time.Hour}

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := auth.Mint(testJWT, time.Now(), userID, role)
	require.NoError(t, err)
	return "Bearer " + token
}

type response struct {
	Status int
	Header http.Header
	Body   map[string]any
	Raw    string
}

func do(t *testing.T, h http.Handler, method, path, authz, body string, headers ...string) response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	res := response{Status: rec.Code, Header: rec.Header(), Raw: rec.Body.String()}
	if strings.HasPrefix(strings.TrimSpace(res.Raw), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res.Body))
	}
	return res
}
