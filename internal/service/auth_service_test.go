package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"promptdoumi/internal/featureflags"
	"promptdoumi/internal/models"
	"promptdoumi/internal/notifications"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "test-secret-key-at-least-32-characters"
	testPassword = "Sup3r-Secret!pw"
)

func newAuthService(t *testing.T, rdb *redis.Client, flags string) (*AuthService, *memoryAdminRepo) {
	t.Helper()
	repo := newMemoryAdminRepo()
	bus := notifications.NewBus(notifications.NewBroker(), notifications.NewNotifier(nil))
	return NewAuthService(repo, rdb, featureflags.NewManager(flags), bus, testSecret), repo
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	return appErr.Code
}

func nextEvent(t *testing.T, ch <-chan notifications.AuthEvent) notifications.AuthEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for auth event")
		return notifications.AuthEvent{}
	}
}

func TestAuthService_SignUpGatedByFlag(t *testing.T) {
	svc, repo := newAuthService(t, nil, "")

	session, err := svc.SignUp(context.Background(), "admin@example.com", testPassword)
	assert.Nil(t, session)
	assert.Equal(t, models.CodeForbidden, codeOf(t, err))

	n, _ := repo.Count(context.Background())
	assert.Zero(t, n)
}

func TestAuthService_SignUpAndSignIn(t *testing.T) {
	svc, repo := newAuthService(t, nil, "admin_signup=on")
	ctx := context.Background()

	events, unsubscribe := svc.Subscribe(ctx)
	defer unsubscribe()

	session, err := svc.SignUp(ctx, "  Admin@Example.com ", testPassword)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "admin@example.com", session.Email)
	assert.NotEmpty(t, session.AccessToken)
	assert.Equal(t, notifications.EventSignedUp, nextEvent(t, events).Type)

	stored, err := repo.GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, testPassword, stored.Password)

	session, err = svc.SignIn(ctx, "admin@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, session.UserID)
	assert.Equal(t, notifications.EventSignedIn, nextEvent(t, events).Type)

	stored, _ = repo.GetByEmail(ctx, "admin@example.com")
	assert.NotNil(t, stored.LastLoginAt)
}

func TestAuthService_SignUpValidation(t *testing.T) {
	svc, _ := newAuthService(t, nil, "admin_signup=on")
	ctx := context.Background()

	_, err := svc.SignUp(ctx, "not-an-email", testPassword)
	assert.Equal(t, models.CodeValidation, codeOf(t, err))

	_, err = svc.SignUp(ctx, "admin@example.com", "short")
	assert.Equal(t, models.CodeValidation, codeOf(t, err))

	_, err = svc.SignUp(ctx, "admin@example.com", testPassword)
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, "admin@example.com", testPassword)
	assert.Equal(t, models.CodeValidation, codeOf(t, err))
}

func TestAuthService_SignInFailures(t *testing.T) {
	svc, repo := newAuthService(t, nil, "")
	ctx := context.Background()
	_, err := svc.CreateAdmin(ctx, "admin@example.com", testPassword)
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, "admin@example.com", "Wrong-Passw0rd!")
	assert.Equal(t, models.CodeUnauthorized, codeOf(t, err))

	_, err = svc.SignIn(ctx, "nobody@example.com", testPassword)
	assert.Equal(t, models.CodeUnauthorized, codeOf(t, err))

	_, err = svc.SignIn(ctx, "", "")
	assert.Equal(t, models.CodeValidation, codeOf(t, err))

	repo.getErr = errors.New("connection refused")
	_, err = svc.SignIn(ctx, "admin@example.com", testPassword)
	assert.Equal(t, models.CodeCollaborator, codeOf(t, err))
	assert.EqualError(t, err, "connection refused")
}

func TestAuthService_GetSession(t *testing.T) {
	svc, _ := newAuthService(t, nil, "")
	ctx := context.Background()
	_, err := svc.CreateAdmin(ctx, "admin@example.com", testPassword)
	require.NoError(t, err)
	issued, err := svc.SignIn(ctx, "admin@example.com", testPassword)
	require.NoError(t, err)

	t.Run("empty token is signed out", func(t *testing.T) {
		session, err := svc.GetSession(ctx, "")
		assert.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("valid token", func(t *testing.T) {
		session, err := svc.GetSession(ctx, issued.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, issued.UserID, session.UserID)
		assert.Equal(t, issued.TokenID, session.TokenID)
		assert.Equal(t, "admin@example.com", session.Email)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.GetSession(ctx, "not.a.jwt")
		assert.Equal(t, models.CodeUnauthorized, codeOf(t, err))
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, _ := newAuthService(t, nil, "")
		other.secret = []byte("another-secret-key-at-least-32-chars")
		_, err := other.GetSession(ctx, issued.AccessToken)
		assert.Equal(t, models.CodeUnauthorized, codeOf(t, err))
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := jwt.MapClaims{
			"sub": "1",
			"iss": TokenIssuer,
			"aud": "someone-else",
			"exp": time.Now().Add(time.Hour).Unix(),
			"jti": "x",
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = svc.GetSession(ctx, token)
		assert.Equal(t, models.CodeUnauthorized, codeOf(t, err))
	})

	t.Run("expired", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(DefaultSessionTTL + time.Hour) }
		defer func() { svc.now = time.Now }()
		_, err := svc.GetSession(ctx, issued.AccessToken)
		assert.Equal(t, models.CodeUnauthorized, codeOf(t, err))
	})
}

func TestAuthService_SignOutRevokesInMemory(t *testing.T) {
	svc, _ := newAuthService(t, nil, "")
	ctx := context.Background()
	_, err := svc.CreateAdmin(ctx, "admin@example.com", testPassword)
	require.NoError(t, err)
	session, err := svc.SignIn(ctx, "admin@example.com", testPassword)
	require.NoError(t, err)

	out, err := svc.SignOut(ctx, session)
	assert.NoError(t, err)
	assert.Nil(t, out)

	_, err = svc.GetSession(ctx, session.AccessToken)
	assert.Equal(t, models.CodeUnauthorized, codeOf(t, err))

	out, err = svc.SignOut(ctx, nil)
	assert.NoError(t, err)
	assert.Nil(t, out)
}

func TestAuthService_SignOutRevokesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	svc, repo := newAuthService(t, rdb, "")
	ctx := context.Background()
	_, err = svc.CreateAdmin(ctx, "admin@example.com", testPassword)
	require.NoError(t, err)
	session, err := svc.SignIn(ctx, "admin@example.com", testPassword)
	require.NoError(t, err)

	_, err = svc.SignOut(ctx, session)
	require.NoError(t, err)
	assert.True(t, mr.Exists("blacklist:"+session.TokenID))

	// A second instance sharing Redis sees the revocation.
	other := NewAuthService(repo, rdb, nil, nil, testSecret)
	_, err = other.GetSession(ctx, session.AccessToken)
	assert.Equal(t, models.CodeUnauthorized, codeOf(t, err))
}

func TestAuthService_UpdatePassword(t *testing.T) {
	svc, _ := newAuthService(t, nil, "")
	ctx := context.Background()
	_, err := svc.CreateAdmin(ctx, "admin@example.com", testPassword)
	require.NoError(t, err)
	session, err := svc.SignIn(ctx, "admin@example.com", testPassword)
	require.NoError(t, err)

	events, unsubscribe := svc.Subscribe(ctx)
	defer unsubscribe()

	_, err = svc.UpdatePassword(ctx, nil, "N3w-Password!!")
	assert.Equal(t, models.CodeUnauthorized, codeOf(t, err))

	kept, err := svc.UpdatePassword(ctx, session, "weak")
	assert.Equal(t, models.CodeValidation, codeOf(t, err))
	assert.Same(t, session, kept)

	kept, err = svc.UpdatePassword(ctx, session, "N3w-Password!!")
	require.NoError(t, err)
	assert.Same(t, session, kept)
	assert.Equal(t, notifications.EventPasswordUpdated, nextEvent(t, events).Type)

	_, err = svc.SignIn(ctx, "admin@example.com", testPassword)
	assert.Error(t, err)
	_, err = svc.SignIn(ctx, "admin@example.com", "N3w-Password!!")
	assert.NoError(t, err)
}

func TestAuthService_SubscribeUnsubscribe(t *testing.T) {
	svc, _ := newAuthService(t, nil, "")
	ctx, cancel := context.WithCancel(context.Background())

	events, unsubscribe := svc.Subscribe(ctx)
	unsubscribe()
	unsubscribe()
	_, open := <-events
	assert.False(t, open)

	events, _ = svc.Subscribe(ctx)
	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestAuthService_WSTickets(t *testing.T) {
	ctx := context.Background()

	run := func(t *testing.T, rdb *redis.Client) {
		svc, _ := newAuthService(t, rdb, "")
		_, err := svc.CreateAdmin(ctx, "admin@example.com", testPassword)
		require.NoError(t, err)
		session, err := svc.SignIn(ctx, "admin@example.com", testPassword)
		require.NoError(t, err)

		_, err = svc.IssueTicket(ctx, nil)
		assert.Error(t, err)

		ticket, err := svc.IssueTicket(ctx, session)
		require.NoError(t, err)

		resolved, err := svc.RedeemTicket(ctx, ticket)
		require.NoError(t, err)
		assert.Equal(t, session.UserID, resolved.UserID)

		_, err = svc.RedeemTicket(ctx, ticket)
		assert.Equal(t, models.CodeUnauthorized, codeOf(t, err))
	}

	t.Run("memory", func(t *testing.T) { run(t, nil) })
	t.Run("redis", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		defer mr.Close()
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer func() { _ = rdb.Close() }()
		run(t, rdb)
	})
}
