package auth

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ujjwal250802/chatapplication/internal/store"
)

func newService(t *testing.T) *Service {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewService(s)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "Arjun", "arjun@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, "secret123", u.PasswordHash)

	token, logged, err := svc.Login(ctx, "ARJUN@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)

	resolved, err := svc.UserFromToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, resolved.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Arjun", "arjun@example.com", "secret123")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "arjun@example.com", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Arjun", "arjun@example.com", "secret123")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "Someone", "arjun@example.com", "other456")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Arjun", "arjun@example.com", "secret123")
	require.NoError(t, err)
	token, _, err := svc.Login(ctx, "arjun@example.com", "secret123")
	require.NoError(t, err)

	svc.Logout(token)
	_, err = svc.UserFromToken(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)
}
