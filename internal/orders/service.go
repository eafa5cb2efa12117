package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/ariefcatur/go-order-workflows/internal/apperr"
	"github.com/ariefcatur/go-order-workflows/internal/logger"
	"github.com/ariefcatur/go-order-workflows/internal/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart     = apperr.New(apperr.CodeValidation, "Cart is empty")
	ErrNotPending    = apperr.New(apperr.CodeState, "Only pending orders can be cancelled")
	ErrNotFound      = apperr.New(apperr.CodeNotFound, "Order not found")
	ErrMissingFields = apperr.New(apperr.CodeValidation, "Shipping address and payment method are required")
)

type Service struct {
	store   Store
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewService(store Store, log *logger.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, log: log, metrics: m}
}

// Create converts the user's cart into a pending order. Every read and write
// happens inside one transaction holding row locks on the touched products;
// any failure leaves stock, cart and orders as they were.
func (s *Service) Create(ctx context.Context, userID string, in PlaceInput) (*Order, error) {
	// Once started, a placement commits or rolls back regardless of the caller.
	ctx = context.WithoutCancel(ctx)
	in.ShippingAddress = strings.TrimSpace(in.ShippingAddress)
	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	if in.ShippingAddress == "" || in.PaymentMethod == "" {
		return nil, ErrMissingFields
	}

	var placed *Order
	err := s.store.InTx(ctx, func(tx Tx) error {
		lines, err := tx.LockCart(ctx, userID)
		if err != nil {
			return apperr.Wrap(apperr.CodeInternal, err, "Error placing order")
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		total := decimal.Zero
		for _, l := range lines {
			if l.StockQuantity < l.Quantity {
				return insufficientStock(l)
			}
			total = total.Add(l.Subtotal())
		}

		order := &Order{
			UserID:          userID,
			TotalAmount:     total,
			ShippingAddress: in.ShippingAddress,
			PaymentMethod:   in.PaymentMethod,
			Status:          StatusPending,
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return apperr.Wrap(apperr.CodeInternal, err, "Error placing order")
		}
		for _, l := range lines {
			item := OrderItem{
				OrderID:     order.ID,
				ProductID:   l.ProductID,
				ProductName: l.ProductName,
				Quantity:    l.Quantity,
				Price:       l.Price,
			}
			if err := tx.InsertItem(ctx, &item); err != nil {
				return apperr.Wrap(apperr.CodeInternal, err, "Error placing order")
			}
			if err := tx.DecrementStock(ctx, l.ProductID, l.Quantity); err != nil {
				return apperr.Wrap(apperr.CodeInternal, err, "Error placing order")
			}
			order.Items = append(order.Items, item)
		}
		if err := tx.ClearCart(ctx, userID); err != nil {
			return apperr.Wrap(apperr.CodeInternal, err, "Error placing order")
		}
		order.ItemCount = len(order.Items)
		placed = order
		return nil
	})
	if err != nil {
		s.metrics.Placement(outcomeOf(err))
		return nil, asInternal(err, "Error placing order")
	}

	s.metrics.Placement("placed")
	s.log.Info(s.log.WithOrderID(ctx, placed.ID.String()), "order.created")
	return placed, nil
}

// Cancel restores exactly the quantities recorded on the order lines and marks
// the order cancelled. Only the owner may cancel, and only while pending.
func (s *Service) Cancel(ctx context.Context, userID string, orderID uuid.UUID) error {
	ctx = context.WithoutCancel(ctx)
	err := s.store.InTx(ctx, func(tx Tx) error {
		order, err := tx.LockOrder(ctx, orderID, userID)
		if errors.Is(err, ErrOrderNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return apperr.Wrap(apperr.CodeInternal, err, "Error cancelling order")
		}
		if !CanTransition(order.Status, StatusCancelled) {
			return ErrNotPending
		}

		items, err := tx.Items(ctx, orderID)
		if err != nil {
			return apperr.Wrap(apperr.CodeInternal, err, "Error cancelling order")
		}
		for _, it := range items {
			if err := tx.RestoreStock(ctx, it.ProductID, it.Quantity); err != nil {
				return apperr.Wrap(apperr.CodeInternal, err, "Error cancelling order")
			}
		}
		if err := tx.SetStatus(ctx, orderID, StatusCancelled); err != nil {
			return apperr.Wrap(apperr.CodeInternal, err, "Error cancelling order")
		}
		return nil
	})
	if err != nil {
		s.metrics.Cancellation(outcomeOf(err))
		return asInternal(err, "Error cancelling order")
	}

	s.metrics.Cancellation("cancelled")
	s.log.Info(s.log.WithOrderID(ctx, orderID.String()), "order.cancelled")
	return nil
}

func (s *Service) ListMine(ctx context.Context, userID string) ([]Order, error) {
	out, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, asInternal(err, "Error fetching orders")
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, userID string, orderID uuid.UUID) (*Order, error) {
	o, err := s.store.Get(ctx, orderID, userID)
	if errors.Is(err, ErrOrderNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, asInternal(err, "Error fetching order")
	}
	return o, nil
}

// asInternal types untyped errors as internal; typed ones pass through. The
// HTTP layer logs internal errors when it writes the response.
func asInternal(err error, msg string) error {
	if apperr.As(err) == nil {
		return apperr.Wrap(apperr.CodeInternal, err, msg)
	}
	return err
}

func insufficientStock(l CartLine) error {
	return apperr.Newf(apperr.CodeValidation, "Insufficient stock for %s. Available: %d", l.ProductName, l.StockQuantity).
		WithDetails(StockShortage{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Available:   l.StockQuantity,
			Requested:   l.Quantity,
		})
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrNotPending):
		return "not_pending"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	}
	switch apperr.CodeOf(err) {
	case apperr.CodeValidation:
		return "insufficient_stock"
	default:
		return "error"
	}
}
