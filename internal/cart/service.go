package cart

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-order-workflows/internal/apperr"
	"github.com/google/uuid"
)

var (
	ErrQuantityRange = apperr.Newf(apperr.CodeValidation, "Quantity must be %d-%d", MinQuantity, MaxQuantity)
	ErrNotInCart     = apperr.New(apperr.CodeNotFound, "Cart item not found")
	ErrNoProduct     = apperr.New(apperr.CodeNotFound, "Product not found")
)

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Get(ctx context.Context, userID string) (*View, error) {
	items, err := s.store.Items(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "Error fetching cart")
	}
	return newView(items), nil
}

// Add puts quantity units of a product in the cart. A repeated add merges into
// the existing line and the merged quantity is checked against stock again.
func (s *Service) Add(ctx context.Context, userID string, productID uuid.UUID, quantity int) error {
	if quantity < MinQuantity || quantity > MaxQuantity {
		return ErrQuantityRange
	}
	err := s.store.InTx(ctx, func(tx Tx) error {
		p, err := tx.Product(ctx, productID)
		if errors.Is(err, ErrProductNotFound) {
			return ErrNoProduct
		}
		if err != nil {
			return err
		}
		if p.StockQuantity < quantity {
			return apperr.Newf(apperr.CodeValidation, "Only %d items available in stock", p.StockQuantity)
		}

		existing, err := tx.Entry(ctx, userID, productID)
		if err != nil {
			return err
		}
		if existing == nil {
			return tx.Insert(ctx, userID, productID, quantity)
		}
		merged := existing.Quantity + quantity
		if p.StockQuantity < merged {
			return apperr.Newf(apperr.CodeValidation, "Cannot add more. Only %d items available", p.StockQuantity)
		}
		return tx.SetQuantity(ctx, existing.ID, merged)
	})
	return mapError(err, "Error adding to cart")
}

func (s *Service) Update(ctx context.Context, userID string, id uuid.UUID, quantity int) error {
	if quantity < MinQuantity || quantity > MaxQuantity {
		return ErrQuantityRange
	}
	err := s.store.InTx(ctx, func(tx Tx) error {
		e, err := tx.EntryByID(ctx, userID, id)
		if errors.Is(err, ErrItemNotFound) {
			return ErrNotInCart
		}
		if err != nil {
			return err
		}
		if e.StockQuantity < quantity {
			return apperr.Newf(apperr.CodeValidation, "Only %d items available", e.StockQuantity)
		}
		return tx.SetQuantity(ctx, id, quantity)
	})
	return mapError(err, "Error updating cart")
}

func (s *Service) Remove(ctx context.Context, userID string, id uuid.UUID) error {
	err := s.store.Remove(ctx, userID, id)
	if errors.Is(err, ErrItemNotFound) {
		return ErrNotInCart
	}
	return mapError(err, "Error removing from cart")
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return mapError(s.store.Clear(ctx, userID), "Error clearing cart")
}

func mapError(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case apperr.As(err) != nil:
		return err
	case apperr.IsUniqueViolation(err):
		// Two adds for the same product raced past the lookup.
		return apperr.Wrap(apperr.CodeConflict, err, "Item is already being added to the cart")
	default:
		return apperr.Wrap(apperr.CodeInternal, err, msg)
	}
}
