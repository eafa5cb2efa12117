package cart

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-order-workflows/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrItemNotFound    = errors.New("cart item not found")
)

type Tx interface {
	Product(ctx context.Context, productID uuid.UUID) (*ProductStock, error)
	Entry(ctx context.Context, userID string, productID uuid.UUID) (*Entry, error)
	EntryByID(ctx context.Context, userID string, id uuid.UUID) (*Entry, error)
	Insert(ctx context.Context, userID string, productID uuid.UUID, qty int) error
	SetQuantity(ctx context.Context, id uuid.UUID, qty int) error
}

type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Items(ctx context.Context, userID string) ([]Item, error)
	Remove(ctx context.Context, userID string, id uuid.UUID) error
	Clear(ctx context.Context, userID string) error
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return postgres.WithTx(ctx, r.DB, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

func (r *Repo) Items(ctx context.Context, userID string) ([]Item, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT c.id, c.product_id, p.name, p.price, p.stock_quantity, c.quantity, c.created_at
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.created_at, c.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Name, &it.Price, &it.StockQuantity, &it.Quantity, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *Repo) Remove(ctx context.Context, userID string, id uuid.UUID) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *Repo) Clear(ctx context.Context, userID string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return err
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) Product(ctx context.Context, productID uuid.UUID) (*ProductStock, error) {
	var p ProductStock
	err := t.tx.QueryRow(ctx, `SELECT id, name, stock_quantity FROM products WHERE id = $1`, productID).
		Scan(&p.ID, &p.Name, &p.StockQuantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Entry returns nil without error when the user has no line for the product.
func (t *pgTx) Entry(ctx context.Context, userID string, productID uuid.UUID) (*Entry, error) {
	e, err := scanEntry(t.tx.QueryRow(ctx, `
		SELECT c.id, c.product_id, c.quantity, p.stock_quantity
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1 AND c.product_id = $2
		FOR UPDATE OF c`, userID, productID))
	if errors.Is(err, ErrItemNotFound) {
		return nil, nil
	}
	return e, err
}

func (t *pgTx) EntryByID(ctx context.Context, userID string, id uuid.UUID) (*Entry, error) {
	return scanEntry(t.tx.QueryRow(ctx, `
		SELECT c.id, c.product_id, c.quantity, p.stock_quantity
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.id = $1 AND c.user_id = $2
		FOR UPDATE OF c`, id, userID))
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.ProductID, &e.Quantity, &e.StockQuantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (t *pgTx) Insert(ctx context.Context, userID string, productID uuid.UUID, qty int) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO cart_items(id, user_id, product_id, quantity) VALUES ($1, $2, $3, $4)`,
		uuid.New(), userID, productID, qty)
	return err
}

func (t *pgTx) SetQuantity(ctx context.Context, id uuid.UUID, qty int) error {
	_, err := t.tx.Exec(ctx, `UPDATE cart_items SET quantity = $2 WHERE id = $1`, id, qty)
	return err
}
