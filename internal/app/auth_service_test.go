package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"asset-catalog/internal/repository"
	"asset-catalog/internal/testutil"
)

func TestAuthService_RegisterThenLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reg, err := env.auth.Register(ctx, RegisterInput{Username: " alice ", Email: "Alice@X.com", Password: "Secret123"})
	require.NoError(t, err)
	assert.Equal(t, "alice", reg.User.Username)
	assert.Equal(t, "alice@x.com", reg.User.Email)
	assert.NotEqual(t, "Secret123", reg.User.PasswordHash)
	assert.NotEmpty(t, reg.Token)

	login, err := env.auth.Login(ctx, LoginInput{Username: "alice", Password: "Secret123"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	id, err := env.auth.Verify(login.Token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: reg.User.ID, Username: "alice"}, id)
}

func TestAuthService_RegisterDuplicateUsernameConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, RegisterInput{Username: "alice", Email: "alice@x.com", Password: "Secret123"})
	require.NoError(t, err)

	_, err = env.auth.Register(ctx, RegisterInput{Username: "alice", Email: "other@x.com", Password: "Secret123"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, ErrUsernameExists)

	_, err = env.auth.Register(ctx, RegisterInput{Username: "bob", Email: "alice@x.com", Password: "Secret123"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input RegisterInput
		msg   string
	}{
		{"short username", RegisterInput{Username: "al", Email: "a@x.com", Password: "Secret123"}, "username must be at least 3 characters"},
		{"bad email", RegisterInput{Username: "alice", Email: "nope", Password: "Secret123"}, "email must be a valid email address"},
		{"short password", RegisterInput{Username: "alice", Email: "a@x.com", Password: "123"}, "password must be at least 6 characters"},
		{"missing password", RegisterInput{Username: "alice", Email: "a@x.com"}, "password is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.auth.Register(ctx, tc.input)
			assert.ErrorIs(t, err, ErrValidation)
			assert.EqualError(t, err, tc.msg)
		})
	}
}

func TestAuthService_LoginFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, RegisterInput{Username: "alice", Email: "alice@x.com", Password: "Secret123"})
	require.NoError(t, err)

	_, err = env.auth.Login(ctx, LoginInput{Username: "alice", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = env.auth.Login(ctx, LoginInput{Username: "nobody", Password: "Secret123"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthService_VerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	db := testutil.OpenDB(t)
	users := repository.NewUserRepository(db)
	ctx := context.Background()

	expired := NewAuthService(users, "secret", -time.Minute, 4)
	res, err := expired.Register(ctx, RegisterInput{Username: "alice", Email: "alice@x.com", Password: "Secret123"})
	require.NoError(t, err)
	_, err = expired.Verify(res.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	issuer := NewAuthService(users, "other-secret", time.Hour, 4)
	verifier := NewAuthService(users, "secret", time.Hour, 4)
	login, err := issuer.Login(ctx, LoginInput{Username: "alice", Password: "Secret123"})
	require.NoError(t, err)
	_, err = verifier.Verify(login.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = verifier.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthService_HashCost(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := NewAuthService(repository.NewUserRepository(db), "secret", time.Hour, 10)

	res, err := svc.Register(context.Background(), RegisterInput{Username: "alice", Email: "alice@x.com", Password: "Secret123"})
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(res.User.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, 10, cost)
}

func TestAuthService_GetUserByID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.GetUserByID(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	user := testutil.CreateUser(t, env.db, "carol")
	got, err := env.auth.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", got.Username)
}
