package catalog

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-order-workflows/internal/apperr"
	"github.com/google/uuid"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Store is the persistence surface of the catalog; *Repo implements it.
type Store interface {
	List(ctx context.Context, params ListParams) ([]Product, int, error)
	Get(ctx context.Context, id uuid.UUID) (*Product, error)
	Create(ctx context.Context, in NewProduct) (*Product, error)
	Update(ctx context.Context, id uuid.UUID, patch ProductPatch) (*Product, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context, params ListParams) (*Page, error) {
	if params.Limit <= 0 {
		params.Limit = defaultLimit
	}
	if params.Limit > maxLimit {
		params.Limit = maxLimit
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	products, total, err := s.store.List(ctx, params)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "Error fetching products")
	}
	return &Page{Products: products, Total: total, Limit: params.Limit, Offset: params.Offset}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "Error fetching product")
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, in NewProduct) (*Product, error) {
	if in.Price.IsNegative() {
		return nil, apperr.New(apperr.CodeValidation, "Price must not be negative")
	}
	if in.StockQuantity < 0 {
		return nil, apperr.New(apperr.CodeValidation, "Stock quantity must not be negative")
	}
	p, err := s.store.Create(ctx, in)
	if err != nil {
		if apperr.IsUniqueViolation(err) {
			return nil, apperr.Wrap(apperr.CodeConflict, err, "SKU already exists")
		}
		return nil, apperr.Wrap(apperr.CodeInternal, err, "Error creating product")
	}
	return p, nil
}

// Update applies an administrative change. Existing orders keep the prices
// captured on their lines.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch ProductPatch) (*Product, error) {
	if patch.Empty() {
		return nil, apperr.New(apperr.CodeValidation, "No valid fields to update")
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return nil, apperr.New(apperr.CodeValidation, "Price must not be negative")
	}
	if patch.StockQuantity != nil && *patch.StockQuantity < 0 {
		return nil, apperr.New(apperr.CodeValidation, "Stock quantity must not be negative")
	}
	p, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, mapStoreError(err, "Error updating product")
	}
	return p, nil
}

func mapStoreError(err error, msg string) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.Wrap(apperr.CodeNotFound, err, "Product not found")
	}
	return apperr.Wrap(apperr.CodeInternal, err, msg)
}
