package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-order-workflows/internal/cart"
	"github.com/ariefcatur/go-order-workflows/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type CartService interface {
	Get(ctx context.Context, userID string) (*cart.View, error)
	Add(ctx context.Context, userID string, productID uuid.UUID, quantity int) error
	Update(ctx context.Context, userID string, id uuid.UUID, quantity int) error
	Remove(ctx context.Context, userID string, id uuid.UUID) error
	Clear(ctx context.Context, userID string) error
}

type AddToCartReq struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"min=1,max=99"`
}

type UpdateCartReq struct {
	Quantity int `json:"quantity" validate:"min=1,max=99"`
}

type CartHandler struct {
	Cart CartService
	Log  *logger.Logger
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/cart", h.getCart)
	r.Post("/cart/add", h.add)
	r.Put("/cart/update/{id}", h.update)
	r.Delete("/cart/remove/{id}", h.remove)
	r.Delete("/cart/clear", h.clear)
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.Cart.Get(r.Context(), userID(r.Context()))
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"cart":      view.Items,
		"subtotal":  view.Subtotal,
		"itemCount": view.ItemCount,
	})
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var req AddToCartReq
	if err := DecodeJSONBody(w, r, &req); err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	if err := h.Cart.Add(r.Context(), userID(r.Context()), req.ProductID, req.Quantity); err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"message": "Item added to cart"})
}

func (h *CartHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", "cart")
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	var req UpdateCartReq
	if err := DecodeJSONBody(w, r, &req); err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	if err := h.Cart.Update(r.Context(), userID(r.Context()), id, req.Quantity); err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"message": "Cart updated"})
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", "cart")
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	if err := h.Cart.Remove(r.Context(), userID(r.Context()), id); err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"message": "Item removed from cart"})
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Cart.Clear(r.Context(), userID(r.Context())); err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"message": "Cart cleared"})
}
