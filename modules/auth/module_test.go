package auth

import (
	"context"
	"testing"
	"time"

	"github.com/example/todo-evolution/config"
	"github.com/example/todo-evolution/domain/apperr"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

func newStartedModule(t *testing.T) *AuthModule {
	t.Helper()
	m := NewModuleWithRepository(NewMemoryUserRepository(), NewPasswordHasherWithCost(bcrypt.MinCost), testJWTConfig(), &mockLogger{})
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { _ = m.Stop(context.Background()) })
	return m
}

func TestAuthModule_StartWithSQLite(t *testing.T) {
	m := NewModule(
		config.StoreConfig{Driver: config.DriverSQLite, DBPath: ":memory:"},
		config.JWTConfig{SecretKey: "s", Algorithm: "HS384", Issuer: "test", TTL: time.Hour},
		&mockLogger{},
	)
	assert.Equal(t, "auth", m.Name())
	assert.False(t, m.Health(context.Background()).Healthy)

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop(context.Background())

	health := m.Health(context.Background())
	assert.True(t, health.Healthy, health.Message)
	assert.Equal(t, "HS384", m.jwtCfg.Algorithm)
}

func TestAuthModule_StartUnknownDriver(t *testing.T) {
	m := NewModule(config.StoreConfig{Driver: "mongo"}, config.JWTConfig{}, &mockLogger{})
	assert.Error(t, m.Start(context.Background()))
}

func TestAuthModule_RegisterLoginValidate(t *testing.T) {
	m := newStartedModule(t)
	ctx := context.Background()

	name := "Ada"
	reg, err := m.handleRegister(ctx, RegisterRequest{Email: "a@x.com", Password: "password123", FullName: &name}, nil)
	require.NoError(t, err)
	require.Nil(t, reg.Error)
	assert.Equal(t, "a@x.com", reg.User.Email)
	assert.True(t, reg.User.IsActive)

	dup, err := m.handleRegister(ctx, RegisterRequest{Email: "a@x.com", Password: "password123"}, nil)
	require.NoError(t, err)
	require.NotNil(t, dup.Error)
	assert.Equal(t, apperr.KindAlreadyExists, dup.Error.Kind)

	bad, err := m.handleLogin(ctx, LoginRequest{Email: "a@x.com", Password: "wrong-password"}, nil)
	require.NoError(t, err)
	require.NotNil(t, bad.Error)
	assert.Equal(t, apperr.KindAuthentication, bad.Error.Kind)

	login, err := m.handleLogin(ctx, LoginRequest{Email: "a@x.com", Password: "password123"}, nil)
	require.NoError(t, err)
	require.Nil(t, login.Error)
	assert.Equal(t, "bearer", login.TokenType)
	assert.NotEmpty(t, login.AccessToken)

	valid, err := m.handleValidateToken(ctx, ValidateTokenRequest{Token: login.AccessToken}, nil)
	require.NoError(t, err)
	assert.True(t, valid.Valid)
	assert.Equal(t, reg.User.ID, valid.UserID)

	invalid, err := m.handleValidateToken(ctx, ValidateTokenRequest{Token: "garbage"}, nil)
	require.NoError(t, err)
	assert.False(t, invalid.Valid)
	require.NotNil(t, invalid.Error)
	assert.Equal(t, apperr.KindAuthentication, invalid.Error.Kind)
}

func TestAuthModule_GetAndUpdateUser(t *testing.T) {
	m := newStartedModule(t)
	ctx := context.Background()

	reg, _ := m.handleRegister(ctx, RegisterRequest{Email: "a@x.com", Password: "password123"}, nil)
	require.Nil(t, reg.Error)

	got, err := m.handleGetUser(ctx, GetUserRequest{UserID: reg.User.ID}, nil)
	require.NoError(t, err)
	require.Nil(t, got.Error)
	assert.Nil(t, got.User.FullName)

	name := "Ada Lovelace"
	updated, err := m.handleUpdateUser(ctx, UpdateUserRequest{UserID: reg.User.ID, FullName: &name}, nil)
	require.NoError(t, err)
	require.Nil(t, updated.Error)
	require.NotNil(t, updated.User.FullName)
	assert.Equal(t, name, *updated.User.FullName)

	missing, err := m.handleGetUser(ctx, GetUserRequest{UserID: "missing"}, nil)
	require.NoError(t, err)
	require.NotNil(t, missing.Error)
	assert.Equal(t, apperr.KindNotFound, missing.Error.Kind)
}
