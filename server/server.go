// Package server 组装 HTTP 层。
//
// 路由只做参数绑定、调用领域组件、按错误分类机械映射状态码：
// 校验类错误 → 400/404/501，流式构建失败 → 500，依赖降级 → 503
// （仅认证路径；读路径的降级在下层就被吞掉，永远不会到这里）。
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SeanMkhabela/stackgen-backend/archive"
	"github.com/SeanMkhabela/stackgen-backend/auth"
	"github.com/SeanMkhabela/stackgen-backend/breaker"
	"github.com/SeanMkhabela/stackgen-backend/clog"
	"github.com/SeanMkhabela/stackgen-backend/jobs"
	"github.com/SeanMkhabela/stackgen-backend/metrics"
	"github.com/SeanMkhabela/stackgen-backend/ratelimit"
	"github.com/SeanMkhabela/stackgen-backend/stacks"
	"github.com/SeanMkhabela/stackgen-backend/xerrors"
)

// Deps 服务依赖的领域组件，均为借用
type Deps struct {
	Authenticator auth.Authenticator
	Accounts      *auth.Accounts
	Keys          *auth.APIKeys
	Catalog       *stacks.Catalog
	Archive       *archive.Builder
	Jobs          *jobs.Service
	Breakers      breaker.Registry
	Meter         metrics.Meter
	Limiter       ratelimit.Limiter // 可选，不注入则不限流
}

// validate 检查必需依赖
func (d *Deps) validate() error {
	switch {
	case d.Authenticator == nil:
		return xerrors.New("server: authenticator is nil")
	case d.Accounts == nil:
		return xerrors.New("server: accounts is nil")
	case d.Keys == nil:
		return xerrors.New("server: api keys is nil")
	case d.Catalog == nil:
		return xerrors.New("server: catalog is nil")
	case d.Archive == nil:
		return xerrors.New("server: archive builder is nil")
	case d.Jobs == nil:
		return xerrors.New("server: jobs service is nil")
	case d.Breakers == nil:
		return xerrors.New("server: breaker registry is nil")
	case d.Meter == nil:
		return xerrors.New("server: meter is nil")
	}
	return nil
}

// Server HTTP 服务
type Server struct {
	cfg    *Config
	deps   Deps
	engine *gin.Engine
	http   *http.Server
	logger clog.Logger
}

// New 创建 HTTP 服务
func New(cfg *Config, deps Deps, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()

	if err := deps.validate(); err != nil {
		return nil, err
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	opt.applyDefaults()

	gin.SetMode(cfg.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		engine: engine,
		logger: opt.logger,
	}
	s.routes()

	s.http = &http.Server{
		Addr:    cfg.Addr,
		Handler: engine,
	}
	return s, nil
}

// routes 挂载全部路由
func (s *Server) routes() {
	r := s.engine

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/breakers", s.breakerHealth)
	r.GET("/metrics", gin.WrapH(s.deps.Meter.Handler()))

	api := r.Group("/")
	if s.deps.Limiter != nil {
		limit := ratelimit.Limit{
			Requests: s.cfg.RateLimitRequests,
			Window:   s.cfg.RateLimitWindow,
		}
		api.Use(ratelimit.GinMiddleware(s.deps.Limiter, nil, func(*gin.Context) ratelimit.Limit {
			return limit
		}))
	}

	api.POST("/auth/register", s.register)
	api.POST("/auth/token", s.token)
	api.POST("/auth/refresh", s.refresh)
	api.GET("/generate-boilerplate/:stack", s.generate)

	protected := api.Group("/", s.deps.Authenticator.GinMiddleware())
	protected.POST("/keys", s.issueKey)
	protected.POST("/jobs", s.enqueueJob)
	protected.GET("/jobs/:id", s.jobStatus)
}

// Handler 返回底层 http.Handler（测试用）
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 阻塞运行直到 Shutdown 或监听失败
func (s *Server) Run() error {
	s.logger.Info("http server listening", clog.String("addr", s.cfg.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return xerrors.Wrap(err, "server: listen failed")
	}
	return nil
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.http.Shutdown(ctx)
}
