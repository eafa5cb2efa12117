package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-order-workflows/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrOrderNotFound = errors.New("order not found")

// Tx is the statement set a placement or cancellation runs inside one unit of work.
type Tx interface {
	LockCart(ctx context.Context, userID string) ([]CartLine, error)
	InsertOrder(ctx context.Context, o *Order) error
	InsertItem(ctx context.Context, item *OrderItem) error
	DecrementStock(ctx context.Context, productID uuid.UUID, qty int) error
	ClearCart(ctx context.Context, userID string) error

	LockOrder(ctx context.Context, orderID uuid.UUID, userID string) (*Order, error)
	Items(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error)
	RestoreStock(ctx context.Context, productID uuid.UUID, qty int) error
	SetStatus(ctx context.Context, orderID uuid.UUID, status Status) error
}

type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	Get(ctx context.Context, orderID uuid.UUID, userID string) (*Order, error)
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return postgres.WithTx(ctx, r.DB, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT o.id, o.user_id, o.total_amount, o.shipping_address, o.payment_method, o.status,
		       o.created_at, o.updated_at,
		       (SELECT COUNT(*) FROM order_items WHERE order_id = o.id) AS item_count
		FROM orders o
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.ShippingAddress, &o.PaymentMethod, &o.Status,
			&o.CreatedAt, &o.UpdatedAt, &o.ItemCount); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, orderID uuid.UUID, userID string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, selectOrder+` WHERE id = $1 AND user_id = $2`, orderID, userID))
	if err != nil {
		return nil, err
	}
	items, err := queryItems(ctx, r.DB, orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	o.ItemCount = len(items)
	return o, nil
}

const selectOrder = `SELECT id, user_id, total_amount, shipping_address, payment_method, status, created_at, updated_at FROM orders`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.ShippingAddress, &o.PaymentMethod, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryItems(ctx context.Context, q querier, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.price
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.product_id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

type pgTx struct{ tx pgx.Tx }

// LockCart reads the cart joined with its products and takes row locks on
// those products. Locks are taken in product id order so two placements that
// share products cannot deadlock.
func (t *pgTx) LockCart(ctx context.Context, userID string) ([]CartLine, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT c.product_id, p.name, c.quantity, p.price, p.stock_quantity
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY p.id
		FOR UPDATE OF p`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []CartLine
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.Quantity, &l.Price, &l.StockQuantity); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (t *pgTx) InsertOrder(ctx context.Context, o *Order) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return t.tx.QueryRow(ctx, `
		INSERT INTO orders(id, user_id, total_amount, shipping_address, payment_method, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		o.ID, o.UserID, o.TotalAmount, o.ShippingAddress, o.PaymentMethod, o.Status,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
}

func (t *pgTx) InsertItem(ctx context.Context, it *OrderItem) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO order_items(id, order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5)`,
		it.ID, it.OrderID, it.ProductID, it.Quantity, it.Price)
	return err
}

func (t *pgTx) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE products SET stock_quantity = stock_quantity - $2, updated_at = now()
		WHERE id = $1 AND stock_quantity >= $2`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("decrement stock for %s: row changed under lock", productID)
	}
	return nil
}

func (t *pgTx) ClearCart(ctx context.Context, userID string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return err
}

func (t *pgTx) LockOrder(ctx context.Context, orderID uuid.UUID, userID string) (*Order, error) {
	return scanOrder(t.tx.QueryRow(ctx, selectOrder+` WHERE id = $1 AND user_id = $2 FOR UPDATE`, orderID, userID))
}

func (t *pgTx) Items(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	return queryItems(ctx, t.tx, orderID)
}

func (t *pgTx) RestoreStock(ctx context.Context, productID uuid.UUID, qty int) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE products SET stock_quantity = stock_quantity + $2, updated_at = now()
		WHERE id = $1`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("restore stock for %s: product missing", productID)
	}
	return nil
}

func (t *pgTx) SetStatus(ctx context.Context, orderID uuid.UUID, status Status) error {
	_, err := t.tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`, orderID, status)
	return err
}
