package httpx

import (
	"net/http"
	"time"

	"github.com/ariefcatur/go-order-workflows/internal/apperr"
	"github.com/ariefcatur/go-order-workflows/internal/config"
	"github.com/ariefcatur/go-order-workflows/internal/logger"
	"github.com/ariefcatur/go-order-workflows/internal/metrics"
	"github.com/ariefcatur/go-order-workflows/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter returns a router with the middleware every binary shares and the
// health and metrics endpoints mounted.
func NewRouter(log *logger.Logger, m *metrics.Metrics, healthPath string) *chi.Mux {
	if log == nil {
		log = logger.Nop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, Logging(log, m), Recoverer(log))
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get(healthPath, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(r.Context(), log, w, apperr.New(apperr.CodeNotFound, "Route not found"))
	})
	return r
}

type ShopDeps struct {
	Log     *logger.Logger
	Metrics *metrics.Metrics
	JWT     config.JWTConfig

	Orders  OrderService
	Cart    CartService
	Catalog CatalogService

	// Optional; nil disables the feature.
	Idempotency *redisx.Idempotency
	Limiter     *redisx.Limiter
}

// NewShopRouter wires the shop API: public catalog reads, admin catalog
// writes and the authenticated, rate limited cart and order routes.
func NewShopRouter(d ShopDeps) *chi.Mux {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	r := NewRouter(d.Log, d.Metrics, "/healthz")

	products := &ProductsHandler{Catalog: d.Catalog, Log: d.Log}
	products.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(d.JWT, d.Log))

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin(d.Log))
			products.RegisterAdmin(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(RateLimit(d.Limiter, d.Log))
			(&CartHandler{Cart: d.Cart, Log: d.Log}).Register(r)
			(&OrdersHandler{Orders: d.Orders, Log: d.Log}).Register(r, Idempotent(d.Idempotency, d.Log))
		})
	})
	return r
}

// NewOrdersRouter wires the federated order service.
func NewOrdersRouter(log *logger.Logger, m *metrics.Metrics, svc FederatedService) *chi.Mux {
	if log == nil {
		log = logger.Nop()
	}
	r := NewRouter(log, m, "/health")
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	(&FederatedHandler{Orders: svc, Log: log}).Register(r)
	return r
}
