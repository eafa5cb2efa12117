// Command migrate applies the embedded goose migrations.
//
//	migrate -set shop up
//	migrate -set orders status
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ariefcatur/go-order-workflows/internal/config"
	"github.com/ariefcatur/go-order-workflows/internal/postgres"
	"github.com/joho/godotenv"
)

func main() {
	set := flag.String("set", postgres.SetShop, "migration set: shop or orders")
	flag.Parse()

	command := "up"
	var args []string
	if flag.NArg() > 0 {
		command, args = flag.Arg(0), flag.Args()[1:]
	}

	if err := run(*set, command, args); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(set, command string, args []string) error {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := postgres.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	return postgres.Migrate(ctx, db, set, command, args...)
}
