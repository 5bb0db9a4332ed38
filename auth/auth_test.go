package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeanMkhabela/stackgen-backend/connector"
	"github.com/SeanMkhabela/stackgen-backend/store"
	"github.com/SeanMkhabela/stackgen-backend/xerrors"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newAuthenticator(t *testing.T, cfg *Config) Authenticator {
	t.Helper()
	if cfg == nil {
		cfg = &Config{SecretKey: testSecret, Issuer: "stackgen"}
	}
	a, err := New(cfg)
	require.NoError(t, err)
	return a
}

// TestGenerateValidateRoundTrip 测试令牌签发与验证
func TestGenerateValidateRoundTrip(t *testing.T) {
	a := newAuthenticator(t, nil)
	ctx := context.Background()

	token, err := a.GenerateToken(ctx, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "dev@example.com"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := a.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", claims.Subject)
	assert.Equal(t, "stackgen", claims.Issuer)
	assert.NotNil(t, claims.ExpiresAt)
}

// TestValidateTamperedToken 测试密钥不匹配
func TestValidateTamperedToken(t *testing.T) {
	a := newAuthenticator(t, nil)
	other := newAuthenticator(t, &Config{SecretKey: strings.Repeat("x", 32)})
	ctx := context.Background()

	token, err := other.GenerateToken(ctx, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "dev@example.com"},
	})
	require.NoError(t, err)

	_, err = a.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

// TestValidateExpiredToken 测试过期令牌
func TestValidateExpiredToken(t *testing.T) {
	a := newAuthenticator(t, nil)
	ctx := context.Background()

	token, err := a.GenerateToken(ctx, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "dev@example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	require.NoError(t, err)

	_, err = a.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

// TestRefreshToken 测试刷新沿用主体并重置有效期
func TestRefreshToken(t *testing.T) {
	a := newAuthenticator(t, nil)
	ctx := context.Background()

	token, err := a.GenerateToken(ctx, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "dev@example.com"},
	})
	require.NoError(t, err)

	refreshed, err := a.RefreshToken(ctx, token)
	require.NoError(t, err)

	claims, err := a.ValidateToken(ctx, refreshed)
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", claims.Subject)

	// 过期的令牌不能刷新
	expired, err := a.GenerateToken(ctx, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "dev@example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	require.NoError(t, err)
	_, err = a.RefreshToken(ctx, expired)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

// TestConfigValidation 测试配置校验
func TestConfigValidation(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(&Config{SecretKey: "too-short"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(&Config{SecretKey: testSecret, SigningMethod: "RS256"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// newProtectedRouter 挂了认证中间件的最小路由
func newProtectedRouter(t *testing.T, a Authenticator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", a.GinMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": Subject(c)})
	})
	return r
}

// TestGinMiddleware 测试 Bearer 提取与拒绝路径
func TestGinMiddleware(t *testing.T) {
	a := newAuthenticator(t, nil)
	r := newProtectedRouter(t, a)

	token, err := a.GenerateToken(context.Background(), &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "dev@example.com"},
	})
	require.NoError(t, err)

	// 无 Header
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// 错误前缀
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token "+token)
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// 合法令牌
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dev@example.com")
}

// TestGinMiddlewareDevMode 测试显式开启的开发模式放行
func TestGinMiddlewareDevMode(t *testing.T) {
	a := newAuthenticator(t, &Config{SecretKey: testSecret, DevMode: true})
	r := newProtectedRouter(t, a)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// newKeyStore 基于内存 SQLite 的 store
func newKeyStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()

	conn, err := connector.NewSQLite(&connector.SQLiteConfig{Name: "auth-test", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, conn.Connect(ctx))
	t.Cleanup(func() { conn.Close() })

	st, err := store.New(store.NewGormRepository(conn, nil))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx, &store.APIKey{}))
	return st
}

// TestAPIKeyLifecycle 测试签发、验证、吊销
func TestAPIKeyLifecycle(t *testing.T) {
	keys, err := NewAPIKeys(newKeyStore(t))
	require.NoError(t, err)
	ctx := context.Background()

	raw, rec, err := keys.Issue(ctx, "dev@example.com", "ci")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "sg_"))
	assert.Len(t, raw, rawKeyLen)
	assert.NotEqual(t, raw, rec.Digest, "the raw key must never be persisted")

	got, err := keys.Verify(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", got.Owner)
	assert.Equal(t, "ci", got.Label)

	require.NoError(t, keys.Revoke(ctx, raw))
	_, err = keys.Verify(ctx, raw)
	assert.ErrorIs(t, err, ErrKeyRevoked)
}

// TestAPIKeyVerifyRejections 测试格式错误与未知密钥
func TestAPIKeyVerifyRejections(t *testing.T) {
	keys, err := NewAPIKeys(newKeyStore(t))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = keys.Verify(ctx, "not-a-key")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = keys.Verify(ctx, "sg_"+strings.Repeat("0", 32))
	assert.ErrorIs(t, err, ErrInvalidKey)

	err = keys.Revoke(ctx, "sg_"+strings.Repeat("0", 32))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

// failingRepo 所有操作都失败的仓储
type failingRepo struct{}

func (failingRepo) FindOne(ctx context.Context, kind string, q store.Query, dest any) error {
	return xerrors.New("db down")
}
func (failingRepo) Find(ctx context.Context, kind string, q store.Query, dest any) error {
	return xerrors.New("db down")
}
func (failingRepo) Create(ctx context.Context, kind string, record any) error {
	return xerrors.New("db down")
}
func (failingRepo) UpdateOne(ctx context.Context, kind string, q store.Query, model any, updates map[string]any) (bool, error) {
	return false, xerrors.New("db down")
}
func (failingRepo) DeleteOne(ctx context.Context, kind string, q store.Query, model any) (bool, error) {
	return false, xerrors.New("db down")
}
func (failingRepo) Migrate(ctx context.Context, models ...any) error { return nil }

// TestAPIKeyStoreDegraded 测试存储降级时拒绝而非放行
func TestAPIKeyStoreDegraded(t *testing.T) {
	st, err := store.New(failingRepo{})
	require.NoError(t, err)
	keys, err := NewAPIKeys(st)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = keys.Verify(ctx, "sg_"+strings.Repeat("a", 32))
	assert.ErrorIs(t, err, ErrStoreDegraded,
		"a degraded store must never look like a missing key")

	_, _, err = keys.Issue(ctx, "dev@example.com", "ci")
	assert.ErrorIs(t, err, ErrStoreDegraded)
}
