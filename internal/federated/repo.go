package federated

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrOrderMissing  = errors.New("order not found")
	ErrStatusChanged = errors.New("order status changed concurrently")
)

type Store interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	// Update writes patch in one statement, provided the order is still in
	// the expected status.
	Update(ctx context.Context, id int64, expected Status, patch Patch) (*Order, error)
	Delete(ctx context.Context, id int64) error
}

type Repo struct{ DB *pgxpool.Pool }

const orderColumns = `id, user_id, product_id, quantity, total_price, status, created_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.ProductID, &o.Quantity, &o.TotalPrice, &o.Status, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderMissing
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repo) Insert(ctx context.Context, o *Order) error {
	if o.Status == "" {
		o.Status = StatusPending
	}
	return r.DB.QueryRow(ctx, `
		INSERT INTO orders(user_id, product_id, quantity, total_price, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		o.UserID, o.ProductID, o.Quantity, o.TotalPrice, o.Status,
	).Scan(&o.ID, &o.CreatedAt)
}

func (r *Repo) Get(ctx context.Context, id int64) (*Order, error) {
	return scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

func (r *Repo) List(ctx context.Context) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *Repo) Update(ctx context.Context, id int64, expected Status, patch Patch) (*Order, error) {
	if patch.Empty() {
		return r.Get(ctx, id)
	}

	sets := make([]string, 0, 3)
	args := []any{id, expected}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Quantity != nil {
		add("quantity", *patch.Quantity)
	}
	if patch.TotalPrice != nil {
		add("total_price", *patch.TotalPrice)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}

	o, err := scanOrder(r.DB.QueryRow(ctx,
		`UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE id = $1 AND status = $2 RETURNING `+orderColumns,
		args...))
	if !errors.Is(err, ErrOrderMissing) {
		return o, err
	}

	// Nothing matched: either the row is gone or its status moved.
	if _, getErr := r.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrStatusChanged
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderMissing
	}
	return nil
}
