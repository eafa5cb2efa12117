// Package pgtest opens a migrated Postgres pool for integration tests. Tests
// are skipped unless the DSN variable for the set points at a disposable
// database. The two sets need separate databases since both own an orders table.
package pgtest

import (
	"context"
	"os"
	"testing"

	"github.com/ariefcatur/go-order-workflows/internal/config"
	"github.com/ariefcatur/go-order-workflows/internal/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

var envBySet = map[string]string{
	postgres.SetShop:   "TEST_SHOP_POSTGRES_DSN",
	postgres.SetOrders: "TEST_ORDERS_POSTGRES_DSN",
}

var truncateBySet = map[string]string{
	postgres.SetShop:   `TRUNCATE order_items, orders, cart_items, products CASCADE`,
	postgres.SetOrders: `TRUNCATE orders RESTART IDENTITY`,
}

func Pool(t *testing.T, set string) *pgxpool.Pool {
	t.Helper()

	env := envBySet[set]
	dsn := os.Getenv(env)
	if dsn == "" {
		t.Skipf("%s is not set", env)
	}

	ctx := context.Background()
	pool, err := postgres.Connect(ctx, config.DBConfig{DSN: dsn, MaxConns: 8})
	if err != nil {
		t.Fatalf("connect test db: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := postgres.Migrate(ctx, pool, set, "up"); err != nil {
		t.Fatalf("migrate %s: %v", set, err)
	}
	if _, err := pool.Exec(ctx, truncateBySet[set]); err != nil {
		t.Fatalf("truncate %s: %v", set, err)
	}
	return pool
}
