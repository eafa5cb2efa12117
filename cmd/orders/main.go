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

	"github.com/ariefcatur/go-order-workflows/internal/config"
	"github.com/ariefcatur/go-order-workflows/internal/federated"
	"github.com/ariefcatur/go-order-workflows/internal/httpx"
	"github.com/ariefcatur/go-order-workflows/internal/logger"
	"github.com/ariefcatur/go-order-workflows/internal/metrics"
	"github.com/ariefcatur/go-order-workflows/internal/postgres"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.DB)
	if err != nil {
		log.Error(ctx, "db.connect", err)
		os.Exit(1)
	}
	defer db.Close()

	m := metrics.New(cfg.App.ServiceName)
	// Per-call deadlines come from COLLABORATOR_TIMEOUT; the client only pools connections.
	hc := &http.Client{Transport: http.DefaultTransport}
	svc := federated.NewService(
		&federated.Repo{DB: db},
		federated.NewUserClient(cfg.Collaborators.UserServiceURL, cfg.Collaborators.Timeout, hc, m),
		federated.NewProductClient(cfg.Collaborators.ProductServiceURL, cfg.Collaborators.Timeout, hc, m),
		federated.WithEnrichLimit(cfg.Collaborators.EnrichConcurrency),
		federated.WithLogger(log),
		federated.WithMetrics(m),
	)

	srv := &http.Server{
		Addr:              cfg.App.HTTPAddr,
		Handler:           httpx.NewOrdersRouter(log, m, svc),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info(log.WithField(ctx, "addr", srv.Addr), "http.listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "http.listen", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "http.shutdown", err)
	}
}
