package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/solarflow/solarshop-backend/internal/policy"
	"github.com/solarflow/solarshop-backend/pkg/db/dbtest"
	"github.com/solarflow/solarshop-backend/pkg/db/models"
	"github.com/solarflow/solarshop-backend/pkg/enums"
)

type memCache struct {
	values map[string]string
	gets   int
	down   bool
}

func newMemCache() *memCache { return &memCache{values: map[string]string{}} }

func (m *memCache) Get(_ context.Context, key string) (string, error) {
	m.gets++
	if m.down {
		return "", errors.New("connection refused")
	}
	v, ok := m.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	if m.down {
		return errors.New("connection refused")
	}
	m.values[key] = value.(string)
	return nil
}

func (m *memCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memCache) SettingsKey(name string) string { return "settings:" + name }

var admin = policy.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()
	rows := []models.CompanySetting{
		{Key: KeyCompanyName, Value: "SolarShop", IsPublic: true},
		{Key: KeyCompanyEmail, Value: "hello@solarshop.io", IsPublic: true},
		{Key: KeyTaxID, Value: "TX-99"},
	}
	require.NoError(t, db.Create(&rows).Error)
}

func TestPublicServesFromCache(t *testing.T) {
	ctx := context.Background()
	client := dbtest.Open(t)
	seed(t, client.DB())
	cache := newMemCache()
	svc, err := NewService(NewRepository(client.DB()), cache, time.Minute, nil, nil)
	require.NoError(t, err)

	public, err := svc.Public(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{KeyCompanyName: "SolarShop", KeyCompanyEmail: "hello@solarshop.io"}, public)
	require.Contains(t, cache.values, "settings:all")

	require.NoError(t, client.DB().Model(&models.CompanySetting{}).Where("key = ?", KeyCompanyName).Update("value", "Changed").Error)
	public, err = svc.Public(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SolarShop", public[KeyCompanyName], "cached snapshot is served until invalidated")

	require.NoError(t, svc.Invalidate(ctx))
	public, err = svc.Public(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Changed", public[KeyCompanyName])
}

func TestCacheOutageFallsBackToDatabase(t *testing.T) {
	client := dbtest.Open(t)
	seed(t, client.DB())
	cache := newMemCache()
	cache.down = true
	svc, err := NewService(NewRepository(client.DB()), cache, time.Minute, nil, nil)
	require.NoError(t, err)

	company, err := svc.Company(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SolarShop", company.Name)
	assert.Equal(t, "TX-99", company.TaxID)
}

func TestSetUpsertsAndInvalidates(t *testing.T) {
	ctx := context.Background()
	client := dbtest.Open(t)
	seed(t, client.DB())
	cache := newMemCache()
	svc, err := NewService(NewRepository(client.DB()), cache, time.Minute, nil, nil)
	require.NoError(t, err)

	_, err = svc.Public(ctx)
	require.NoError(t, err)

	public := true
	got, err := svc.Set(ctx, admin, "Company_Phone", SetRequest{Value: "+1 555 0100", IsPublic: &public})
	require.NoError(t, err)
	assert.Equal(t, "company_phone", got.Key)
	assert.NotContains(t, cache.values, "settings:all")

	value, ok, err := svc.Get(ctx, KeyCompanyPhone)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "+1 555 0100", value)

	got, err = svc.Set(ctx, admin, KeyTaxID, SetRequest{Value: "TX-100"})
	require.NoError(t, err)
	assert.False(t, got.IsPublic, "visibility is kept when omitted")

	list, err := svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, list, 4)
}

func TestSetRequiresAdmin(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()), nil, time.Minute, nil, nil)
	require.NoError(t, err)

	customer := policy.Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer}
	_, err = svc.Set(context.Background(), customer, KeyCompanyName, SetRequest{Value: "x"})
	assert.ErrorIs(t, err, policy.ErrAdminRequired)
	_, err = svc.Set(context.Background(), admin, "../bad", SetRequest{Value: "x"})
	require.Error(t, err)
}
