package federated

import (
	"context"
	"errors"
	"strconv"

	"github.com/ariefcatur/go-order-workflows/internal/apperr"
	"github.com/ariefcatur/go-order-workflows/internal/logger"
	"github.com/ariefcatur/go-order-workflows/internal/metrics"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoFields      = apperr.New(apperr.CodeValidation, "No valid fields to update")
	ErrOrderNotFound = apperr.New(apperr.CodeNotFound, "Order not found")
	ErrConcurrentRW  = apperr.New(apperr.CodeConflict, "Order was modified by another request")
)

type Service struct {
	store    Store
	users    Users
	products Products
	log      *logger.Logger
	metrics  *metrics.Metrics

	enrichLimit int
}

type Option func(*Service)

// WithEnrichLimit bounds how many orders List decorates at once.
func WithEnrichLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.enrichLimit = n
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, users Users, products Products, opts ...Option) *Service {
	s := &Service{
		store:       store,
		users:       users,
		products:    products,
		log:         logger.Nop(),
		enrichLimit: 8,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create resolves the user and the product concurrently, prices the order
// from the fetched product and stores it as pending. Nothing is written when
// either lookup fails. There is no cross-service transaction to undo.
func (s *Service) Create(ctx context.Context, in CreateInput) (*EnrichedOrder, error) {
	// Lookups and the insert finish even if the caller goes away; each
	// collaborator call still carries its own timeout.
	ctx = context.WithoutCancel(ctx)
	if in.UserID <= 0 || in.ProductID <= 0 {
		return nil, apperr.New(apperr.CodeValidation, "userId and productId must be positive integers")
	}
	if in.Quantity < 1 {
		return nil, apperr.New(apperr.CodeValidation, "quantity must be greater than or equal to 1")
	}

	var (
		user                *User
		product             *Product
		userErr, productErr error
		g                   errgroup.Group
	)
	g.Go(func() error {
		user, userErr = s.users.User(ctx, in.UserID)
		return nil
	})
	g.Go(func() error {
		product, productErr = s.products.Product(ctx, in.ProductID)
		return nil
	})
	_ = g.Wait()

	// User failures win so the reported error does not depend on timing.
	if userErr != nil {
		return nil, userErr
	}
	if productErr != nil {
		return nil, productErr
	}

	order := &Order{
		UserID:     in.UserID,
		ProductID:  in.ProductID,
		Quantity:   in.Quantity,
		TotalPrice: product.Price.Mul(decimal.NewFromInt(int64(in.Quantity))),
		Status:     StatusPending,
	}
	if err := s.store.Insert(ctx, order); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "Error creating order")
	}

	s.log.Info(s.log.WithOrderID(ctx, strconv.FormatInt(order.ID, 10)), "order.created")
	return &EnrichedOrder{Order: *order, User: user, Product: product, Enrichment: Enriched}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*EnrichedOrder, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "Error fetching order")
	}
	out := s.enrich(ctx, *o)
	return &out, nil
}

// Update changes quantity and/or status. A quantity change re-prices the order
// from the product's current price, unlike Create which prices at order time.
// A failed product lookup aborts before anything is written.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*EnrichedOrder, error) {
	ctx = context.WithoutCancel(ctx)
	if in.Quantity == nil && in.Status == nil {
		return nil, ErrNoFields
	}
	if in.Quantity != nil && *in.Quantity < 1 {
		return nil, apperr.New(apperr.CodeValidation, "quantity must be greater than or equal to 1")
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, apperr.New(apperr.CodeValidation, "status must be one of [pending, processing, completed, cancelled]")
	}

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "Error updating order")
	}

	var patch Patch
	if in.Quantity != nil && *in.Quantity != current.Quantity {
		product, err := s.products.Product(ctx, current.ProductID)
		if err != nil {
			return nil, err
		}
		total := product.Price.Mul(decimal.NewFromInt(int64(*in.Quantity)))
		patch.Quantity = in.Quantity
		patch.TotalPrice = &total
	}
	if in.Status != nil {
		if *in.Status != current.Status && !CanTransition(current.Status, *in.Status) {
			return nil, apperr.Newf(apperr.CodeState, "Cannot change order status from %s to %s", current.Status, *in.Status)
		}
		patch.Status = in.Status
	}
	if patch.Empty() {
		return nil, ErrNoFields
	}

	updated, err := s.store.Update(ctx, id, current.Status, patch)
	if errors.Is(err, ErrStatusChanged) {
		return nil, ErrConcurrentRW
	}
	if err != nil {
		return nil, storeError(err, "Error updating order")
	}

	out := s.enrich(ctx, *updated)
	return &out, nil
}

// List returns every stored order, newest first. Decoration is best effort:
// an order whose lookups fail comes back bare and is never dropped.
func (s *Service) List(ctx context.Context) ([]EnrichedOrder, error) {
	rows, err := s.store.List(ctx)
	if err != nil {
		return nil, storeError(err, "Error fetching orders")
	}

	out := make([]EnrichedOrder, len(rows))
	var g errgroup.Group
	g.SetLimit(s.enrichLimit)
	for i := range rows {
		g.Go(func() error {
			out[i] = s.enrich(ctx, rows[i])
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return storeError(err, "Error deleting order")
	}
	return nil
}

func (s *Service) enrich(ctx context.Context, o Order) EnrichedOrder {
	var (
		user    *User
		product *Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.users.User(gctx, o.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		product, err = s.products.Product(gctx, o.ProductID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.metrics.Enrichment(string(Bare))
		s.log.Warn(s.log.WithFields(ctx, map[string]any{
			"order_id": o.ID,
			"error":    err.Error(),
		}), "order.enrich_skipped")
		return bare(o)
	}
	s.metrics.Enrichment(string(Enriched))
	return EnrichedOrder{Order: o, User: user, Product: product, Enrichment: Enriched}
}

// storeError maps a missing row to 404 and anything else to an internal
// error, which the HTTP layer logs when it answers.
func storeError(err error, msg string) error {
	if errors.Is(err, ErrOrderMissing) {
		return ErrOrderNotFound
	}
	return apperr.Wrap(apperr.CodeInternal, err, msg)
}
