package federated

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// upstream is a fake user or product service. Ids missing from records
// answer 404; status overrides force other responses.
type upstream struct {
	srv  *httptest.Server
	hits atomic.Int64

	mu      sync.Mutex
	records map[int64]any
	status  int
	delay   time.Duration
}

func newUpstream(t *testing.T, prefix string) *upstream {
	t.Helper()
	u := &upstream{records: map[int64]any{}}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		u.mu.Lock()
		status, delay := u.status, u.delay
		u.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if status != 0 {
			w.WriteHeader(status)
			return
		}

		id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, prefix), 10, 64)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		u.mu.Lock()
		rec, ok := u.records[id]
		u.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rec)
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) set(id int64, rec any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.records[id] = rec
}

func (u *upstream) remove(id int64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.records, id)
}

func (u *upstream) fail(status int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status = status
}

func (u *upstream) slow(d time.Duration) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.delay = d
}

type fixture struct {
	users    *upstream
	products *upstream
	store    *memStore
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:    newUpstream(t, "/users/"),
		products: newUpstream(t, "/products/"),
		store:    newMemStore(),
	}
	f.svc = NewService(f.store,
		NewUserClient(f.users.srv.URL, 200*time.Millisecond, f.users.srv.Client(), nil),
		NewProductClient(f.products.srv.URL, 200*time.Millisecond, f.products.srv.Client(), nil),
		WithEnrichLimit(4),
	)
	f.users.set(1, User{ID: 1, Name: "Ayu", Email: "ayu@example.com"})
	f.users.set(2, User{ID: 2, Name: "Budi", Email: "budi@example.com"})
	f.products.set(10, map[string]any{"id": 10, "name": "Kopi", "price": "10.00"})
	f.products.set(11, map[string]any{"id": 11, "name": "Teh", "price": 4.5})
	return f
}

type memStore struct {
	mu     sync.Mutex
	nextID int64
	clock  time.Time
	rows   map[int64]Order

	updates int
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]Order{}, clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memStore) Insert(ctx context.Context, o *Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.clock = m.clock.Add(time.Second)
	o.ID = m.nextID
	o.CreatedAt = m.clock
	m.rows[o.ID] = *o
	return nil
}

func (m *memStore) Get(ctx context.Context, id int64) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[id]
	if !ok {
		return nil, ErrOrderMissing
	}
	return &o, nil
}

func (m *memStore) List(ctx context.Context) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Order, 0, len(m.rows))
	for _, o := range m.rows {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) Update(ctx context.Context, id int64, expected Status, patch Patch) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[id]
	if !ok {
		return nil, ErrOrderMissing
	}
	if o.Status != expected {
		return nil, ErrStatusChanged
	}
	if patch.Quantity != nil {
		o.Quantity = *patch.Quantity
	}
	if patch.TotalPrice != nil {
		o.TotalPrice = *patch.TotalPrice
	}
	if patch.Status != nil {
		o.Status = *patch.Status
	}
	m.rows[id] = o
	m.updates++
	return &o, nil
}

func (m *memStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return ErrOrderMissing
	}
	delete(m.rows, id)
	return nil
}

func (m *memStore) seed(userID, productID int64, qty int, total string, status Status) int64 {
	o := &Order{UserID: userID, ProductID: productID, Quantity: qty, TotalPrice: decimal.RequireFromString(total), Status: status}
	if err := m.Insert(context.Background(), o); err != nil {
		panic(fmt.Sprintf("seed: %v", err))
	}
	return o.ID
}

func ptr[T any](v T) *T { return &v }
