package application

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"mtaaspace/domain"
	"mtaaspace/errors"
	"mtaaspace/store"
)

func newSessionService(kv domain.KeyValueStore) (*SessionService, *domain.ChangeBus) {
	logger := logrus.New()
	bus := domain.NewChangeBus()
	backend := NewLocalAuthBackend(kv, []byte("test-secret"), time.Minute, logger)
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	return NewSessionService(kv, backend, bus, tracer, logger), bus
}

func signup(name, email string) *domain.SignupRequest {
	return &domain.SignupRequest{
		Name:     name,
		Email:    email,
		Password: "hunter22",
		Role:     domain.RenterRole,
	}
}

func TestSignup_PersistsTokenAndUserTogether(t *testing.T) {
	kv := store.NewMemoryStore()
	service, _ := newSessionService(kv)
	ctx := context.Background()

	session, err := service.Signup(ctx, signup("Wanjiku", "wanjiku@example.com"))
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	assert.True(t, service.IsAuthenticated())

	var token string
	ok, err := store.Load(ctx, kv, domain.KeyToken, &token)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, session.Token, token)

	var user domain.User
	ok, err = store.Load(ctx, kv, domain.KeyUser, &user)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "wanjiku@example.com", user.Email)
	assert.Equal(t, domain.RenterRole, user.Role)
}

func TestSignup_DuplicateEmailFails(t *testing.T) {
	kv := store.NewMemoryStore()
	service, _ := newSessionService(kv)
	ctx := context.Background()

	_, err := service.Signup(ctx, signup("Wanjiku", "wanjiku@example.com"))
	require.NoError(t, err)
	service.Logout(ctx)

	_, err = service.Signup(ctx, signup("Other", "wanjiku@example.com"))
	assert.True(t, errors.IsAuth(err))
	assert.EqualError(t, err, errors.EmailAlreadyExist)
}

func TestSignup_RejectsBadRequests(t *testing.T) {
	service, _ := newSessionService(store.NewMemoryStore())
	ctx := context.Background()

	bad := signup("Wanjiku", "not-an-email")
	_, err := service.Signup(ctx, bad)
	assert.True(t, errors.IsValidation(err))

	short := signup("Wanjiku", "wanjiku@example.com")
	short.Password = "abc"
	_, err = service.Signup(ctx, short)
	assert.True(t, errors.IsValidation(err))
}

func TestLogin_WrongPasswordLeavesNothingPersisted(t *testing.T) {
	kv := store.NewMemoryStore()
	service, _ := newSessionService(kv)
	ctx := context.Background()

	_, err := service.Signup(ctx, signup("Wanjiku", "wanjiku@example.com"))
	require.NoError(t, err)
	service.Logout(ctx)

	_, err = service.Login(ctx, &domain.Credentials{Email: "wanjiku@example.com", Password: "wrong"})
	assert.True(t, errors.IsAuth(err))
	assert.False(t, service.IsAuthenticated())

	raw, err := kv.Get(ctx, domain.KeyToken)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestLogin_UnknownEmailFailsWithSameMessage(t *testing.T) {
	service, _ := newSessionService(store.NewMemoryStore())

	_, err := service.Login(context.Background(), &domain.Credentials{Email: "ghost@example.com", Password: "whatever"})
	assert.True(t, errors.IsAuth(err))
	assert.EqualError(t, err, errors.InvalidCredentials)
}

func TestLogin_EmailMatchIsCaseInsensitive(t *testing.T) {
	kv := store.NewMemoryStore()
	service, _ := newSessionService(kv)
	ctx := context.Background()

	_, err := service.Signup(ctx, signup("Wanjiku", "Wanjiku@Example.com"))
	require.NoError(t, err)
	service.Logout(ctx)

	session, err := service.Login(ctx, &domain.Credentials{Email: "wanjiku@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "Wanjiku", session.User.Name)
}

func TestLogout_ClearsEverythingAndIsIdempotent(t *testing.T) {
	kv := store.NewMemoryStore()
	service, _ := newSessionService(kv)
	ctx := context.Background()

	_, err := service.Signup(ctx, signup("Wanjiku", "wanjiku@example.com"))
	require.NoError(t, err)

	service.Logout(ctx)
	service.Logout(ctx)

	assert.False(t, service.IsAuthenticated())
	assert.Nil(t, service.Current())

	raw, err := kv.Get(ctx, domain.KeyToken)
	require.NoError(t, err)
	assert.Nil(t, raw)
	raw, err = kv.Get(ctx, domain.KeyUser)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestHydrate_RestoresSessionFromPersistedToken(t *testing.T) {
	kv := store.NewMemoryStore()
	first, _ := newSessionService(kv)

	session, err := first.Signup(context.Background(), signup("Wanjiku", "wanjiku@example.com"))
	require.NoError(t, err)

	second, _ := newSessionService(kv)
	require.True(t, second.IsAuthenticated())
	assert.Equal(t, session.User.ID, second.Current().User.ID)
	assert.Equal(t, session.Token, second.Current().Token)
}

func TestHydrate_StaleTokenIsClearedFailClosed(t *testing.T) {
	kv := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, kv, domain.KeyToken, "not.a.jwt"))
	require.NoError(t, kv.Set(ctx, domain.KeyUser, json.RawMessage(`{"id":"1","email":"x@example.com"}`)))

	service, _ := newSessionService(kv)
	assert.False(t, service.IsAuthenticated())

	raw, err := kv.Get(ctx, domain.KeyToken)
	require.NoError(t, err)
	assert.Nil(t, raw)
	raw, err = kv.Get(ctx, domain.KeyUser)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestHydrate_ExpiredTokenIsRejected(t *testing.T) {
	kv := store.NewMemoryStore()
	logger := logrus.New()
	backend := NewLocalAuthBackend(kv, []byte("test-secret"), time.Nanosecond, logger)
	bus := domain.NewChangeBus()
	tracer := trace.NewNoopTracerProvider().Tracer("test")

	first := NewSessionService(kv, backend, bus, tracer, logger)
	_, err := first.Signup(context.Background(), signup("Wanjiku", "wanjiku@example.com"))
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	second := NewSessionService(kv, backend, bus, tracer, logger)
	assert.False(t, second.IsAuthenticated())
}

func TestLoginAndLogoutPublishSessionChanges(t *testing.T) {
	kv := store.NewMemoryStore()
	service, bus := newSessionService(kv)
	ctx := context.Background()

	changes := 0
	bus.Subscribe(func(kind domain.ChangeKind) {
		if kind == domain.SessionChanged {
			changes++
		}
	})

	_, err := service.Signup(ctx, signup("Wanjiku", "wanjiku@example.com"))
	require.NoError(t, err)
	service.Logout(ctx)
	service.Logout(ctx)

	assert.Equal(t, 2, changes)
}

func TestLogin_MissingCredentialsAreRejectedBeforeBackend(t *testing.T) {
	service, _ := newSessionService(store.NewMemoryStore())

	_, err := service.Login(context.Background(), &domain.Credentials{Email: "wanjiku@example.com"})
	assert.True(t, errors.IsValidation(err))

	_, err = service.Login(context.Background(), nil)
	assert.True(t, errors.IsValidation(err))
}
