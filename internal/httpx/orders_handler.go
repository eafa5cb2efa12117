package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-order-workflows/internal/logger"
	"github.com/ariefcatur/go-order-workflows/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type OrderService interface {
	Create(ctx context.Context, userID string, in orders.PlaceInput) (*orders.Order, error)
	Cancel(ctx context.Context, userID string, orderID uuid.UUID) error
	ListMine(ctx context.Context, userID string) ([]orders.Order, error)
	Get(ctx context.Context, userID string, orderID uuid.UUID) (*orders.Order, error)
}

type CreateOrderReq struct {
	ShippingAddress string `json:"shipping_address" validate:"required,max=500"`
	PaymentMethod   string `json:"payment_method" validate:"required,max=50"`
}

// OrdersHandler serves the transactional order routes. Every route runs
// behind Authenticate.
type OrdersHandler struct {
	Orders OrderService
	Log    *logger.Logger
}

// Register mounts the routes; createMW wraps only order creation.
func (h *OrdersHandler) Register(r chi.Router, createMW ...func(http.Handler) http.Handler) {
	r.With(createMW...).Post("/orders/create", h.createOrder)
	r.Put("/orders/cancel/{id}", h.cancelOrder)
	r.Get("/orders/my-orders", h.myOrders)
	r.Get("/orders/{id}", h.getOrder)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := DecodeJSONBody(w, r, &req); err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}

	order, err := h.Orders.Create(r.Context(), userID(r.Context()), orders.PlaceInput{
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"message": "Order placed successfully",
		"orderId": order.ID,
		"total":   order.TotalAmount,
	})
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", "order")
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	if err := h.Orders.Cancel(r.Context(), userID(r.Context()), id); err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"message": "Order cancelled successfully"})
}

func (h *OrdersHandler) myOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListMine(r.Context(), userID(r.Context()))
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"orders": list})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", "order")
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	order, err := h.Orders.Get(r.Context(), userID(r.Context()), id)
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	items := order.Items
	order.Items = nil
	writeOK(w, http.StatusOK, map[string]any{"order": order, "items": items})
}
