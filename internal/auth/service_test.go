package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgAuth "github.com/solarflow/solarshop-backend/pkg/auth"
	"github.com/solarflow/solarshop-backend/pkg/auth/session"
	"github.com/solarflow/solarshop-backend/pkg/config"
	"github.com/solarflow/solarshop-backend/pkg/db/dbtest"
	"github.com/solarflow/solarshop-backend/pkg/db/models"
	"github.com/solarflow/solarshop-backend/pkg/enums"
	pkgerrors "github.com/solarflow/solarshop-backend/pkg/errors"
	"github.com/solarflow/solarshop-backend/pkg/outbox"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memStore) AccessSessionKey(accessID string) string {
	return "session:" + accessID
}

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "solarshop", ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60}

var testPassword = config.PasswordConfig{ArgonMemoryKB: 64, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

func newTestService(t *testing.T) (*service, *memStore) {
	t.Helper()
	client := dbtest.Open(t)
	store := &memStore{data: map[string]string{}}
	manager, err := session.NewManager(store, testJWT)
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		DB:             client,
		Outbox:         outbox.NewService(outbox.NewRepository(client.DB()), nil),
		SessionManager: manager,
		JWTConfig:      testJWT,
		PasswordConfig: testPassword,
	})
	require.NoError(t, err)
	return svc.(*service), store
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestRegisterCreatesUserAndEvent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	sess, err := svc.Register(ctx, RegisterRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "Ada@Solar.io",
		Password:  "correct horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, sess.AccessToken)
	require.NotEmpty(t, sess.RefreshToken)
	assert.Equal(t, "ada@solar.io", sess.User.Email)
	assert.Equal(t, enums.UserRoleCustomer, sess.User.Role)

	var events []models.OutboxEvent
	require.NoError(t, svc.db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventUserRegistered, events[0].EventType)
	assert.Equal(t, sess.User.ID, events[0].AggregateID)

	_, err = svc.Register(ctx, RegisterRequest{FirstName: "A", LastName: "L", Email: "ada@solar.io", Password: "another pass"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Register(ctx, RegisterRequest{FirstName: "A", LastName: "B", Email: "a@solar.io", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "a@solar.io", Password: "wrong-password"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Login(ctx, LoginRequest{Email: "missing@solar.io", Password: "password1"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	sess, err := svc.Login(ctx, LoginRequest{Email: " A@SOLAR.IO ", Password: "password1"})
	require.NoError(t, err)
	require.NotNil(t, sess.User.LastLoginAt)

	claims, err := pkgAuth.ParseAccessToken(testJWT, sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, claims.UserID)
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	first, err := svc.Register(ctx, RegisterRequest{FirstName: "A", LastName: "B", Email: "r@solar.io", Password: "password1"})
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, RefreshRequest{AccessToken: first.AccessToken, RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = svc.Refresh(ctx, RefreshRequest{AccessToken: first.AccessToken, RefreshToken: first.RefreshToken})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "old refresh token must be rejected")

	claims, err := pkgAuth.ParseAccessToken(testJWT, second.AccessToken)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, claims.ID))
	assert.Empty(t, store.data)

	_, err = svc.Refresh(ctx, RefreshRequest{AccessToken: "garbage", RefreshToken: second.RefreshToken})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestMe(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	sess, err := svc.Register(ctx, RegisterRequest{FirstName: "M", LastName: "E", Email: "me@solar.io", Password: "password1"})
	require.NoError(t, err)

	me, err := svc.Me(ctx, sess.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "me@solar.io", me.Email)

	_, err = svc.Me(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
