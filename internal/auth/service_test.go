package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/genba-erp/genba-erp/internal/platform/httpx"
	"github.com/genba-erp/genba-erp/internal/shared"
)

type fakeRepo struct {
	users map[string]*User
}

func (f *fakeRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (*User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, httpx.ErrNotFound
}

func seedUser(t *testing.T, email, password string, active bool) *fakeRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &fakeRepo{users: map[string]*User{
		email: {ID: 1, Email: email, PasswordHash: string(hash), IsActive: active},
	}}
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(seedUser(t, "tanaka@example.com", "correct-horse", true))

	user, err := svc.Authenticate(context.Background(), "tanaka@example.com", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, int64(1), user.ID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc := NewService(seedUser(t, "tanaka@example.com", "correct-horse", true))

	_, err := svc.Authenticate(context.Background(), "tanaka@example.com", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc := NewService(seedUser(t, "tanaka@example.com", "correct-horse", true))

	_, err := svc.Authenticate(context.Background(), "nobody@example.com", "correct-horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	svc := NewService(seedUser(t, "retired@example.com", "correct-horse", false))

	_, err := svc.Authenticate(context.Background(), "retired@example.com", "correct-horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}
