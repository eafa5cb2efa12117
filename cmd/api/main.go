package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-order-workflows/internal/cart"
	"github.com/ariefcatur/go-order-workflows/internal/catalog"
	"github.com/ariefcatur/go-order-workflows/internal/config"
	"github.com/ariefcatur/go-order-workflows/internal/httpx"
	"github.com/ariefcatur/go-order-workflows/internal/logger"
	"github.com/ariefcatur/go-order-workflows/internal/metrics"
	"github.com/ariefcatur/go-order-workflows/internal/orders"
	"github.com/ariefcatur/go-order-workflows/internal/postgres"
	"github.com/ariefcatur/go-order-workflows/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Options{
		ServiceName: cfg.App.ServiceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.WarnStack,
	})
	if err := run(cfg, log); err != nil {
		log.Error(context.Background(), "api.exit", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	db, err := postgres.Connect(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	// Redis backs idempotent order creation and the rate limiter.
	rdb := redisx.New(cfg.Redis)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		return err
	}

	m := metrics.New(cfg.App.ServiceName)
	router := httpx.NewShopRouter(httpx.ShopDeps{
		Log:         log,
		Metrics:     m,
		JWT:         cfg.JWT,
		Orders:      orders.NewService(&orders.Repo{DB: db}, log, m),
		Cart:        cart.NewService(&cart.Repo{DB: db}),
		Catalog:     catalog.NewService(&catalog.Repo{DB: db}),
		Idempotency: redisx.NewIdempotency(rdb, cfg.Idempotency.TTL),
		Limiter:     redisx.NewLimiter(rdb, "shop", cfg.RateLimit.Window, cfg.RateLimit.Max),
	})

	return serve(ctx, log, &http.Server{
		Addr:              cfg.App.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	})
}

// serve blocks until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, log *logger.Logger, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info(log.WithField(ctx, "addr", srv.Addr), "http.listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	log.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
