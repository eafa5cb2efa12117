package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-order-workflows/internal/catalog"
	"github.com/ariefcatur/go-order-workflows/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CatalogService interface {
	List(ctx context.Context, params catalog.ListParams) (*catalog.Page, error)
	Get(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
	Create(ctx context.Context, in catalog.NewProduct) (*catalog.Product, error)
	Update(ctx context.Context, id uuid.UUID, patch catalog.ProductPatch) (*catalog.Product, error)
}

type CreateProductReq struct {
	SKU           string          `json:"sku" validate:"required,max=64"`
	Name          string          `json:"name" validate:"required,max=200"`
	Description   string          `json:"description" validate:"max=2000"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity" validate:"min=0"`
}

type UpdateProductReq struct {
	Name          *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description   *string          `json:"description" validate:"omitempty,max=2000"`
	Price         *decimal.Decimal `json:"price"`
	StockQuantity *int             `json:"stock_quantity" validate:"omitempty,min=0"`
}

type ProductsHandler struct {
	Catalog CatalogService
	Log     *logger.Logger
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Get("/products", h.list)
	r.Get("/products/{id}", h.get)
}

// RegisterAdmin mounts the mutating routes; callers put them behind RequireAdmin.
func (h *ProductsHandler) RegisterAdmin(r chi.Router) {
	r.Post("/products", h.create)
	r.Put("/products/{id}", h.update)
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1, 1, 1<<20)
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	limit, err := queryInt(r, "limit", 20, 1, 100)
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}

	res, err := h.Catalog.List(r.Context(), catalog.ListParams{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	totalPages := (res.Total + limit - 1) / limit
	writeOK(w, http.StatusOK, map[string]any{
		"products": res.Products,
		"pagination": map[string]any{
			"page":       page,
			"limit":      limit,
			"total":      res.Total,
			"totalPages": totalPages,
			"hasMore":    page < totalPages,
		},
	})
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", "product")
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	p, err := h.Catalog.Get(r.Context(), id)
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"product": p})
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductReq
	if err := DecodeJSONBody(w, r, &req); err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	p, err := h.Catalog.Create(r.Context(), catalog.NewProduct{
		SKU:           strings.TrimSpace(req.SKU),
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{"product": p})
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", "product")
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	var req UpdateProductReq
	if err := DecodeJSONBody(w, r, &req); err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	p, err := h.Catalog.Update(r.Context(), id, catalog.ProductPatch{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		WriteError(r.Context(), h.Log, w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"product": p})
}
