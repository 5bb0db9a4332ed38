package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeanMkhabela/stackgen-backend/connector"
	"github.com/SeanMkhabela/stackgen-backend/store"
)

// newAccounts 基于内存 SQLite 的账号服务
func newAccounts(t *testing.T) *Accounts {
	t.Helper()
	ctx := context.Background()

	conn, err := connector.NewSQLite(&connector.SQLiteConfig{Name: "accounts-test", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, conn.Connect(ctx))
	t.Cleanup(func() { conn.Close() })

	st, err := store.New(store.NewGormRepository(conn, nil))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx, &store.User{}))

	accounts, err := NewAccounts(st)
	require.NoError(t, err)
	return accounts
}

// TestRegisterAndAuthenticate 测试注册与登录闭环
func TestRegisterAndAuthenticate(t *testing.T) {
	accounts := newAccounts(t)
	ctx := context.Background()

	user, err := accounts.Register(ctx, "Dev@Example.com", "hunter22!")
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", user.Email, "emails are normalized to lowercase")
	assert.NotEqual(t, "hunter22!", user.PasswordHash, "passwords are never stored in the clear")

	got, err := accounts.Authenticate(ctx, "dev@example.com", "hunter22!")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = accounts.Authenticate(ctx, "dev@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// 未知邮箱与错误密码不可区分
	_, err = accounts.Authenticate(ctx, "nobody@example.com", "hunter22!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// TestRegisterValidation 测试注册入参校验与重复注册
func TestRegisterValidation(t *testing.T) {
	accounts := newAccounts(t)
	ctx := context.Background()

	_, err := accounts.Register(ctx, "not-an-email", "hunter22!")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = accounts.Register(ctx, "dev@example.com", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = accounts.Register(ctx, "dev@example.com", "hunter22!")
	require.NoError(t, err)
	_, err = accounts.Register(ctx, "dev@example.com", "hunter22!")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

// TestAccountsStoreDegraded 测试存储降级时注册与登录都拒绝
func TestAccountsStoreDegraded(t *testing.T) {
	st, err := store.New(failingRepo{})
	require.NoError(t, err)
	accounts, err := NewAccounts(st)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = accounts.Register(ctx, "dev@example.com", "hunter22!")
	assert.ErrorIs(t, err, ErrStoreDegraded)

	_, err = accounts.Authenticate(ctx, "dev@example.com", "hunter22!")
	assert.ErrorIs(t, err, ErrStoreDegraded)
}
