package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/ariefcatur/go-order-workflows/internal/apperr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	list      func(ctx context.Context, params ListParams) ([]Product, int, error)
	get       func(ctx context.Context, id uuid.UUID) (*Product, error)
	create    func(ctx context.Context, in NewProduct) (*Product, error)
	update    func(ctx context.Context, id uuid.UUID, patch ProductPatch) (*Product, error)
	lastParam ListParams
}

func (s *stubStore) List(ctx context.Context, params ListParams) ([]Product, int, error) {
	s.lastParam = params
	if s.list != nil {
		return s.list(ctx, params)
	}
	return nil, 0, nil
}

func (s *stubStore) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	return s.get(ctx, id)
}

func (s *stubStore) Create(ctx context.Context, in NewProduct) (*Product, error) {
	return s.create(ctx, in)
}

func (s *stubStore) Update(ctx context.Context, id uuid.UUID, patch ProductPatch) (*Product, error) {
	return s.update(ctx, id, patch)
}

func TestListClampsPaging(t *testing.T) {
	store := &stubStore{}
	svc := NewService(store)

	page, err := svc.List(context.Background(), ListParams{Limit: 1000, Offset: -5})
	require.NoError(t, err)
	assert.Equal(t, maxLimit, page.Limit)
	assert.Equal(t, 0, page.Offset)

	_, err = svc.List(context.Background(), ListParams{})
	require.NoError(t, err)
	assert.Equal(t, defaultLimit, store.lastParam.Limit)
}

func TestGetMapsNotFound(t *testing.T) {
	svc := NewService(&stubStore{get: func(context.Context, uuid.UUID) (*Product, error) {
		return nil, ErrNotFound
	}})

	_, err := svc.Get(context.Background(), uuid.New())
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestUpdateRequiresAField(t *testing.T) {
	svc := NewService(&stubStore{})

	_, err := svc.Update(context.Background(), uuid.New(), ProductPatch{})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
	assert.Equal(t, "No valid fields to update", apperr.As(err).Message())
}

func TestUpdateRejectsNegativePrice(t *testing.T) {
	svc := NewService(&stubStore{})
	price := decimal.RequireFromString("-1.00")

	_, err := svc.Update(context.Background(), uuid.New(), ProductPatch{Price: &price})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestCreateDuplicateSKUIsConflict(t *testing.T) {
	svc := NewService(&stubStore{create: func(context.Context, NewProduct) (*Product, error) {
		return nil, &pgconn.PgError{Code: "23505"}
	}})

	_, err := svc.Create(context.Background(), NewProduct{SKU: "A-1", Name: "A", Price: decimal.NewFromInt(1)})
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
}

func TestCreateHidesStoreFailure(t *testing.T) {
	svc := NewService(&stubStore{create: func(context.Context, NewProduct) (*Product, error) {
		return nil, errors.New("conn refused")
	}})

	_, err := svc.Create(context.Background(), NewProduct{SKU: "A-1", Name: "A", Price: decimal.NewFromInt(1)})
	assert.Equal(t, apperr.CodeInternal, apperr.CodeOf(err))
}
