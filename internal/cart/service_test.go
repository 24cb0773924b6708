package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/solarflow/solarshop-backend/pkg/db/dbtest"
	"github.com/solarflow/solarshop-backend/pkg/db/models"
	"github.com/solarflow/solarshop-backend/pkg/enums"
	pkgerrors "github.com/solarflow/solarshop-backend/pkg/errors"
)

type fixture struct {
	db      *gorm.DB
	svc     Service
	panel   models.Product
	system  models.SolarSystem
	retired models.Product
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()

	f := fixture{db: conn}
	f.panel = models.Product{SKU: "PNL", Name: "Panel", Category: enums.ProductCategoryPanel, Price: decimal.NewFromInt(100), Stock: 5, IsActive: true}
	f.retired = models.Product{SKU: "OLD", Name: "Old inverter", Category: enums.ProductCategoryInverter, Price: decimal.NewFromInt(50), Stock: 5}
	f.system = models.SolarSystem{Slug: "home", Name: "Home kit", CapacityKW: decimal.NewFromInt(5), Price: decimal.NewFromInt(5000), IsActive: true}
	require.NoError(t, conn.Create(&f.panel).Error)
	require.NoError(t, conn.Create(&f.retired).Error)
	require.NoError(t, conn.Model(&f.retired).Update("is_active", false).Error)
	require.NoError(t, conn.Create(&f.system).Error)

	svc, err := NewService(NewRepository(conn), client, nil)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestOwnerMustBeExclusive(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	_, err := f.svc.Get(context.Background(), Owner{UserID: &id, SessionID: "s"})
	assert.ErrorIs(t, err, ErrInvalidOwner)
	_, err = f.svc.Get(context.Background(), Owner{})
	assert.ErrorIs(t, err, ErrInvalidOwner)
}

func TestAddItemMergesLinesAndTotals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := Owner{SessionID: "guest-1"}

	empty, err := f.svc.Get(ctx, owner)
	require.NoError(t, err)
	assert.Nil(t, empty.ID)
	assert.Empty(t, empty.Items)

	_, err = f.svc.AddItem(ctx, owner, AddItemInput{ProductID: &f.panel.ID, Quantity: 2})
	require.NoError(t, err)
	c, err := f.svc.AddItem(ctx, owner, AddItemInput{ProductID: &f.panel.ID, Quantity: 1})
	require.NoError(t, err)
	c, err = f.svc.AddItem(ctx, owner, AddItemInput{SolarSystemID: &f.system.ID, Quantity: 1})
	require.NoError(t, err)

	require.Len(t, c.Items, 2)
	assert.Equal(t, 4, c.ItemCount)
	assert.True(t, c.Subtotal.Equal(decimal.NewFromInt(5300)), c.Subtotal.String())
}

func TestAddItemRejectsInvalidTargets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := Owner{SessionID: "guest-2"}

	_, err := f.svc.AddItem(ctx, owner, AddItemInput{ProductID: &f.panel.ID, SolarSystemID: &f.system.ID, Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.AddItem(ctx, owner, AddItemInput{ProductID: &f.retired.ID, Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = f.svc.AddItem(ctx, owner, AddItemInput{ProductID: &f.panel.ID, Quantity: 6})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	missing := uuid.New()
	_, err = f.svc.AddItem(ctx, owner, AddItemInput{SolarSystemID: &missing, Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := uuid.New()
	owner := Owner{UserID: &userID}

	c, err := f.svc.AddItem(ctx, owner, AddItemInput{ProductID: &f.panel.ID, Quantity: 1})
	require.NoError(t, err)
	itemID := c.Items[0].ID

	c, err = f.svc.UpdateItem(ctx, owner, itemID, UpdateItemInput{Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, c.Items[0].Quantity)

	_, err = f.svc.UpdateItem(ctx, owner, uuid.New(), UpdateItemInput{Quantity: 1})
	assert.ErrorIs(t, err, ErrItemNotFound)

	c, err = f.svc.UpdateItem(ctx, owner, itemID, UpdateItemInput{Quantity: 0})
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	_, err = f.svc.AddItem(ctx, owner, AddItemInput{SolarSystemID: &f.system.ID, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, f.svc.Clear(ctx, owner))
	c, err = f.svc.Get(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestMergeGuest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := uuid.New()
	user := Owner{UserID: &userID}
	guest := Owner{SessionID: "guest-3"}

	_, err := f.svc.AddItem(ctx, user, AddItemInput{ProductID: &f.panel.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, guest, AddItemInput{ProductID: &f.panel.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, guest, AddItemInput{SolarSystemID: &f.system.ID, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, f.svc.MergeGuest(ctx, "guest-3", userID))

	merged, err := f.svc.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, merged.Items, 2)
	assert.Equal(t, 4, merged.ItemCount)

	left, err := f.svc.Get(ctx, guest)
	require.NoError(t, err)
	assert.Nil(t, left.ID)
}

func TestSnapshotSkipsUnavailableLines(t *testing.T) {
	active := models.Product{Name: "Panel", Price: decimal.NewFromInt(10), IsActive: true}
	inactive := models.Product{Name: "Gone", Price: decimal.NewFromInt(10)}
	lines := Snapshot(&models.Cart{Items: []models.CartItem{
		{Quantity: 2, Product: &active},
		{Quantity: 1, Product: &inactive},
		{Quantity: 1},
	}})
	require.Len(t, lines, 1)
	assert.Equal(t, enums.OrderItemTypeProduct, lines[0].Type)
	assert.Equal(t, 2, lines[0].Quantity)
}
