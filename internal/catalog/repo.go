package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("product not found")

type Repo struct{ DB *pgxpool.Pool }

const productColumns = `id, sku, name, COALESCE(description, ''), price, stock_quantity, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Price, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) List(ctx context.Context, params ListParams) ([]Product, int, error) {
	where := ""
	args := []any{}
	if s := strings.TrimSpace(params.Search); s != "" {
		where = ` WHERE name ILIKE $1 OR description ILIKE $1`
		args = append(args, "%"+s+"%")
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY sku LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)+1, len(args)+2)
	rows, err := r.DB.Query(ctx, q, append(args, params.Limit, params.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := make([]Product, 0, params.Limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *Repo) Create(ctx context.Context, in NewProduct) (*Product, error) {
	return scanProduct(r.DB.QueryRow(ctx, `
		INSERT INTO products(id, sku, name, description, price, stock_quantity)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		RETURNING `+productColumns,
		uuid.New(), in.SKU, in.Name, in.Description, in.Price, in.StockQuantity,
	))
}

func (r *Repo) Update(ctx context.Context, id uuid.UUID, patch ProductPatch) (*Product, error) {
	sets := []string{}
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Price != nil {
		add("price", *patch.Price)
	}
	if patch.StockQuantity != nil {
		add("stock_quantity", *patch.StockQuantity)
	}
	sets = append(sets, "updated_at = now()")

	p, err := scanProduct(r.DB.QueryRow(ctx,
		`UPDATE products SET `+strings.Join(sets, ", ")+` WHERE id = $1 RETURNING `+productColumns, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}
