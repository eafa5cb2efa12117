package postgres

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrationsFS embed.FS

const (
	SetShop   = "shop"
	SetOrders = "orders"
)

func migrationDir(set string) (string, error) {
	switch set {
	case SetShop, SetOrders:
		return "migrations/" + set, nil
	default:
		return "", fmt.Errorf("unknown migration set %q", set)
	}
}

// Migrate runs a goose command (up, down, status, version, ...) for one embedded set.
func Migrate(ctx context.Context, pool *pgxpool.Pool, set, command string, args ...string) error {
	dir, err := migrationDir(set)
	if err != nil {
		return err
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s %s: %w", command, set, err)
	}
	return nil
}
