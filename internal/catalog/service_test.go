package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarflow/solarshop-backend/pkg/db/dbtest"
	"github.com/solarflow/solarshop-backend/pkg/enums"
	pkgerrors "github.com/solarflow/solarshop-backend/pkg/errors"
	"github.com/solarflow/solarshop-backend/pkg/pagination"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t).DB()))
	require.NoError(t, err)
	return svc
}

func TestProductLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	created, err := svc.CreateProduct(ctx, ProductInput{
		SKU:            "PNL-400",
		Name:           "Mono 400W panel",
		Category:       enums.ProductCategoryPanel,
		Price:          decimal.RequireFromString("189.999"),
		Stock:          40,
		WarrantyMonths: 300,
		Specifications: map[string]string{"watts": "400"},
	})
	require.NoError(t, err)
	assert.Equal(t, "190", created.Price.String())
	assert.True(t, created.IsActive)

	_, err = svc.CreateProduct(ctx, ProductInput{SKU: "PNL-400", Name: "dup", Category: enums.ProductCategoryPanel, Price: decimal.NewFromInt(1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	inactive := false
	updated, err := svc.UpdateProduct(ctx, created.ID, ProductUpdate{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	page, err := svc.ListProducts(ctx, ProductFilters{}, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = svc.ListProducts(ctx, ProductFilters{IncludeInactive: true, Search: "mono"}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "400", page.Items[0].Specifications["watts"])

	got, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "PNL-400", got.SKU)
}

func TestCreateProductValidation(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.CreateProduct(context.Background(), ProductInput{SKU: "X", Name: "X", Category: "rocket", Price: decimal.NewFromInt(1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.CreateProduct(context.Background(), ProductInput{SKU: "X", Name: "X", Category: enums.ProductCategoryBattery, Price: decimal.Zero})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListSystemsPaginates(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	for _, slug := range []string{"home-5kw", "home-8kw", "farm-20kw"} {
		_, err := svc.CreateSystem(ctx, SystemInput{
			Slug:       slug,
			Name:       slug,
			CapacityKW: decimal.NewFromInt(5),
			Price:      decimal.NewFromInt(9000),
			Features:   []string{"monitoring"},
		})
		require.NoError(t, err)
	}

	first, err := svc.ListSystems(ctx, SystemFilters{}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.ListSystems(ctx, SystemFilters{}, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Empty(t, second.NextCursor)

	seen := map[string]bool{}
	for _, s := range append(first.Items, second.Items...) {
		seen[s.Slug] = true
	}
	assert.Len(t, seen, 3)

	_, err = svc.ListSystems(ctx, SystemFilters{}, pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetSystemNotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetSystem(context.Background(), [16]byte{9})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
