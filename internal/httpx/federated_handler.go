package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-order-workflows/internal/federated"
	"github.com/ariefcatur/go-order-workflows/internal/logger"
	"github.com/go-chi/chi/v5"
)

type FederatedService interface {
	Create(ctx context.Context, in federated.CreateInput) (*federated.EnrichedOrder, error)
	Get(ctx context.Context, id int64) (*federated.EnrichedOrder, error)
	Update(ctx context.Context, id int64, in federated.UpdateInput) (*federated.EnrichedOrder, error)
	List(ctx context.Context) ([]federated.EnrichedOrder, error)
	Delete(ctx context.Context, id int64) error
}

type FederatedCreateReq struct {
	UserID    int64 `json:"userId" validate:"required,gt=0"`
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
}

type FederatedUpdateReq struct {
	Quantity *int    `json:"quantity" validate:"omitempty,min=1"`
	Status   *string `json:"status" validate:"omitempty,oneof=pending processing completed cancelled"`
}

// FederatedHandler serves the order service. Bodies are the bare order
// objects, not the shop's success envelope.
type FederatedHandler struct {
	Orders FederatedService
	Log    *logger.Logger
}

func (h *FederatedHandler) Register(r chi.Router) {
	r.Post("/orders", h.create)
	r.Get("/orders", h.list)
	r.Get("/orders/{id}", h.get)
	r.Put("/orders/{id}", h.update)
	r.Delete("/orders/{id}", h.delete)
}

func (h *FederatedHandler) create(w http.ResponseWriter, r *http.Request) {
	var req FederatedCreateReq
	if err := DecodeJSONBody(w, r, &req); err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	order, err := h.Orders.Create(r.Context(), federated.CreateInput{
		UserID:    req.UserID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *FederatedHandler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.List(r.Context())
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *FederatedHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id", "order")
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	order, err := h.Orders.Get(r.Context(), id)
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *FederatedHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id", "order")
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	var req FederatedUpdateReq
	if err := DecodeJSONBody(w, r, &req); err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	in := federated.UpdateInput{Quantity: req.Quantity}
	if req.Status != nil {
		s := federated.Status(*req.Status)
		in.Status = &s
	}
	order, err := h.Orders.Update(r.Context(), id, in)
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *FederatedHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id", "order")
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	if err := h.Orders.Delete(r.Context(), id); err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
