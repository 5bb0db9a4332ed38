package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeanMkhabela/stackgen-backend/archive"
	"github.com/SeanMkhabela/stackgen-backend/auth"
	"github.com/SeanMkhabela/stackgen-backend/breaker"
	"github.com/SeanMkhabela/stackgen-backend/cache"
	"github.com/SeanMkhabela/stackgen-backend/connector"
	"github.com/SeanMkhabela/stackgen-backend/jobs"
	"github.com/SeanMkhabela/stackgen-backend/metrics"
	"github.com/SeanMkhabela/stackgen-backend/ratelimit"
	"github.com/SeanMkhabela/stackgen-backend/stacks"
	"github.com/SeanMkhabela/stackgen-backend/store"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// newTestServer 全内存依赖组装出的服务
func newTestServer(t *testing.T, withLimiter bool) *Server {
	t.Helper()
	ctx := context.Background()

	conn, err := connector.NewSQLite(&connector.SQLiteConfig{Name: "server-test", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, conn.Connect(ctx))
	t.Cleanup(func() { conn.Close() })

	st, err := store.New(store.NewGormRepository(conn, nil))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx, &store.User{}, &store.APIKey{}))

	c, err := cache.NewStandalone(nil)
	require.NoError(t, err)
	require.NoError(t, c.Connect(ctx))

	root := t.TempDir()
	for _, rel := range []string{"react/package.json", "express/server.js"} {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))
	}
	catalog := stacks.NewCatalog(root)

	builder, err := archive.New(catalog, archive.WithCache(c))
	require.NoError(t, err)

	jobSvc, err := jobs.NewInProcess(&jobs.Config{WorkDelay: time.Millisecond}, c)
	require.NoError(t, err)
	stop, err := jobSvc.StartWorker()
	require.NoError(t, err)
	t.Cleanup(func() { stop() })

	authn, err := auth.New(&auth.Config{SecretKey: testSecret, Issuer: "stackgen"})
	require.NoError(t, err)
	accounts, err := auth.NewAccounts(st)
	require.NoError(t, err)
	keys, err := auth.NewAPIKeys(st)
	require.NoError(t, err)

	deps := Deps{
		Authenticator: authn,
		Accounts:      accounts,
		Keys:          keys,
		Catalog:       catalog,
		Archive:       builder,
		Jobs:          jobSvc,
		Breakers:      breaker.NewRegistry(),
		Meter:         metrics.Discard(),
	}
	cfg := &Config{Mode: "test"}
	if withLimiter {
		limiter, err := ratelimit.New(c, nil)
		require.NoError(t, err)
		deps.Limiter = limiter
		cfg.RateLimitRequests = 3
		cfg.RateLimitWindow = time.Minute
	}

	srv, err := New(cfg, deps)
	require.NoError(t, err)
	return srv
}

// doJSON 发送 JSON 请求
func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// obtainToken 注册并登录，返回访问令牌
func obtainToken(t *testing.T, srv *Server) string {
	t.Helper()
	creds := map[string]string{"email": "dev@example.com", "password": "hunter22!"}

	rec := doJSON(t, srv, http.MethodPost, "/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, srv, http.MethodPost, "/auth/token", "", creds)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

// TestHealthEndpoints 测试健康与熔断器快照接口
func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, false)

	rec := doJSON(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/health/breakers", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
}

// TestAuthFlow 测试注册、登录、刷新与失败路径
func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t, false)
	token := obtainToken(t, srv)

	// 刷新
	rec := doJSON(t, srv, http.MethodPost, "/auth/refresh", "", map[string]string{"token": token})
	assert.Equal(t, http.StatusOK, rec.Code)

	// 密码错误
	rec = doJSON(t, srv, http.MethodPost, "/auth/token", "",
		map[string]string{"email": "dev@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// 重复注册
	rec = doJSON(t, srv, http.MethodPost, "/auth/register", "",
		map[string]string{"email": "dev@example.com", "password": "hunter22!"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 缺字段
	rec = doJSON(t, srv, http.MethodPost, "/auth/token", "", map[string]string{"email": "x@y.z"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestKeysEndpoint 测试 API 密钥签发需要认证
func TestKeysEndpoint(t *testing.T) {
	srv := newTestServer(t, false)

	rec := doJSON(t, srv, http.MethodPost, "/keys", "", map[string]string{"label": "ci"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := obtainToken(t, srv)
	rec = doJSON(t, srv, http.MethodPost, "/keys", token, map[string]string{"label": "ci"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Key   string `json:"key"`
		Owner string `json:"owner"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Key, "sg_"))
	assert.Equal(t, "dev@example.com", resp.Owner)
}

// TestGenerateEndpoint 测试下载接口的三类响应
func TestGenerateEndpoint(t *testing.T) {
	srv := newTestServer(t, false)

	rec := doJSON(t, srv, http.MethodGet, "/generate-boilerplate/react-express", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "react-express.zip")
	assert.NotEmpty(t, rec.Body.Bytes())

	rec = doJSON(t, srv, http.MethodGet, "/generate-boilerplate/react-django", "", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Contains(t, rec.Body.String(), stacks.CodeInDevelopment)

	rec = doJSON(t, srv, http.MethodGet, "/generate-boilerplate/cobol-fortran", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), stacks.CodeNotFound)
}

// TestGenerateStreamingFailureHeaders 测试首字节前的构建失败返回干净的 JSON 500
func TestGenerateStreamingFailureHeaders(t *testing.T) {
	srv := newTestServer(t, false)

	// vue-express 组合合法，但 vue 模板目录不存在，遍历在发出首字节前失败
	rec := doJSON(t, srv, http.MethodGet, "/generate-boilerplate/vue-express", "", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "streaming_failure")

	// 错误响应不能残留下载头
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

// TestJobsFlow 测试任务入队与状态轮询
func TestJobsFlow(t *testing.T) {
	srv := newTestServer(t, false)
	token := obtainToken(t, srv)

	// 未知栈在入队前就被拒绝
	rec := doJSON(t, srv, http.MethodPost, "/jobs", token, map[string]string{"stack_id": "cobol-fortran"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/jobs", token, map[string]string{"stack_id": "react-express"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var job struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	require.NotEmpty(t, job.ID)

	require.Eventually(t, func() bool {
		rec := doJSON(t, srv, http.MethodGet, "/jobs/"+job.ID, token, nil)
		return rec.Code == http.StatusOK && strings.Contains(rec.Body.String(), `"done"`)
	}, 2*time.Second, 10*time.Millisecond, "worker must finish the job")

	rec = doJSON(t, srv, http.MethodGet, "/jobs/no-such-id", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestRateLimitMiddleware 测试全局限流
func TestRateLimitMiddleware(t *testing.T) {
	srv := newTestServer(t, true)

	var last int
	for i := 0; i < 4; i++ {
		rec := doJSON(t, srv, http.MethodGet, "/generate-boilerplate/react-express", "", nil)
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last, "the fourth request exceeds a 3/minute budget")
}
