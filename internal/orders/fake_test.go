package orders

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type memProduct struct {
	name  string
	price decimal.Decimal
	stock int
}

type memCartKey struct {
	user    string
	product uuid.UUID
}

type memState struct {
	products map[uuid.UUID]memProduct
	cart     map[memCartKey]int
	orders   map[uuid.UUID]Order
	items    map[uuid.UUID][]OrderItem
}

func (s memState) clone() memState {
	out := memState{
		products: make(map[uuid.UUID]memProduct, len(s.products)),
		cart:     make(map[memCartKey]int, len(s.cart)),
		orders:   make(map[uuid.UUID]Order, len(s.orders)),
		items:    make(map[uuid.UUID][]OrderItem, len(s.items)),
	}
	for k, v := range s.products {
		out.products[k] = v
	}
	for k, v := range s.cart {
		out.cart[k] = v
	}
	for k, v := range s.orders {
		out.orders[k] = v
	}
	for k, v := range s.items {
		out.items[k] = append([]OrderItem(nil), v...)
	}
	return out
}

// memStore serializes units of work with one mutex, which is the strongest
// form of the row locking the Postgres repo relies on. A failed unit of work
// restores the snapshot taken when it began.
type memStore struct {
	mu    sync.Mutex
	state memState

	failInsertItem error
	clock          time.Time
	// afterLock runs once rows are locked, before any write.
	afterLock func()
}

func newMemStore() *memStore {
	return &memStore{clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), state: memState{
		products: map[uuid.UUID]memProduct{},
		cart:     map[memCartKey]int{},
		orders:   map[uuid.UUID]Order{},
		items:    map[uuid.UUID][]OrderItem{},
	}}
}

func (m *memStore) addProduct(name string, price string, stock int) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.state.products[id] = memProduct{name: name, price: decimal.RequireFromString(price), stock: stock}
	return id
}

func (m *memStore) addToCart(user string, product uuid.UUID, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.cart[memCartKey{user, product}] += qty
}

func (m *memStore) setPrice(product uuid.UUID, price string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.state.products[product]
	p.price = decimal.RequireFromString(price)
	m.state.products[product] = p
}

func (m *memStore) stock(product uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.products[product].stock
}

func (m *memStore) cartSize(user string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.state.cart {
		if k.user == user {
			n++
		}
	}
	return n
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.orders)
}

func (m *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// pgx refuses to begin or commit on a finished context.
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := m.state.clone()
	err := fn(&memTx{m: m})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *memStore) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Order{}
	for _, o := range m.state.orders {
		if o.UserID == userID {
			o.ItemCount = len(m.state.items[o.ID])
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) Get(ctx context.Context, orderID uuid.UUID, userID string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.state.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, ErrOrderNotFound
	}
	o.Items = append([]OrderItem(nil), m.state.items[orderID]...)
	o.ItemCount = len(o.Items)
	return &o, nil
}

type memTx struct{ m *memStore }

func (t *memTx) LockCart(ctx context.Context, userID string) ([]CartLine, error) {
	var lines []CartLine
	for k, qty := range t.m.state.cart {
		if k.user != userID {
			continue
		}
		p := t.m.state.products[k.product]
		lines = append(lines, CartLine{
			ProductID:     k.product,
			ProductName:   p.name,
			Quantity:      qty,
			Price:         p.price,
			StockQuantity: p.stock,
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID.String() < lines[j].ProductID.String() })
	t.locked()
	return lines, nil
}

func (t *memTx) locked() {
	if t.m.afterLock != nil {
		t.m.afterLock()
	}
}

func (t *memTx) InsertOrder(ctx context.Context, o *Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.ID = uuid.New()
	t.m.clock = t.m.clock.Add(time.Second)
	o.CreatedAt = t.m.clock
	o.UpdatedAt = o.CreatedAt
	stored := *o
	stored.Items = nil
	t.m.state.orders[o.ID] = stored
	return nil
}

func (t *memTx) InsertItem(ctx context.Context, it *OrderItem) error {
	if t.m.failInsertItem != nil && len(t.m.state.items[it.OrderID]) > 0 {
		return t.m.failInsertItem
	}
	it.ID = uuid.New()
	t.m.state.items[it.OrderID] = append(t.m.state.items[it.OrderID], *it)
	return nil
}

func (t *memTx) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) error {
	p := t.m.state.products[productID]
	if p.stock < qty {
		return errors.New("stock would go negative")
	}
	p.stock -= qty
	t.m.state.products[productID] = p
	return nil
}

func (t *memTx) ClearCart(ctx context.Context, userID string) error {
	for k := range t.m.state.cart {
		if k.user == userID {
			delete(t.m.state.cart, k)
		}
	}
	return nil
}

func (t *memTx) LockOrder(ctx context.Context, orderID uuid.UUID, userID string) (*Order, error) {
	o, ok := t.m.state.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, ErrOrderNotFound
	}
	t.locked()
	return &o, nil
}

func (t *memTx) Items(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	return append([]OrderItem(nil), t.m.state.items[orderID]...), nil
}

func (t *memTx) RestoreStock(ctx context.Context, productID uuid.UUID, qty int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, ok := t.m.state.products[productID]
	if !ok {
		return errors.New("product missing")
	}
	p.stock += qty
	t.m.state.products[productID] = p
	return nil
}

func (t *memTx) SetStatus(ctx context.Context, orderID uuid.UUID, status Status) error {
	o := t.m.state.orders[orderID]
	o.Status = status
	t.m.state.orders[orderID] = o
	return nil
}
