// Package ratelimit 提供固定窗口限流，带本地降级。
//
// 主路径把窗口计数放在缓存门面里（多实例共享同一窗口），缓存不可用
// 时自动退到基于 golang.org/x/time/rate 的本地令牌桶 —— 限流永远不会
// 因为缓存故障而整体失效，也不会引入第二条独立的缓存访问路径。
//
// ## 基本使用
//
//	limiter, _ := ratelimit.New(cacheFacade, nil, ratelimit.WithLogger(logger))
//
//	allowed, _ := limiter.Allow(ctx, "ip:1.2.3.4", ratelimit.Limit{Requests: 60, Window: time.Minute})
//	if !allowed {
//	    // 请求被限流
//	}
//
// ## Gin 中间件
//
//	r.Use(ratelimit.GinMiddleware(limiter, nil, func(c *gin.Context) ratelimit.Limit {
//	    return ratelimit.Limit{Requests: 60, Window: time.Minute}
//	}))
package ratelimit

import (
	"context"
	"time"

	"github.com/SeanMkhabela/stackgen-backend/cache"
	"github.com/SeanMkhabela/stackgen-backend/clog"
	"github.com/SeanMkhabela/stackgen-backend/metrics"
)

// Limit 固定窗口限流规则
type Limit struct {
	Requests int           // 窗口内允许的请求数
	Window   time.Duration // 窗口长度
}

// valid 判断规则是否可用
func (l Limit) valid() bool {
	return l.Requests > 0 && l.Window > 0
}

// Limiter 限流器核心接口
type Limiter interface {
	// Allow 判定一次请求是否放行
	// key: 限流标识（如 IP、账号）
	// 返回: allowed（是否允许）, error（系统错误）
	Allow(ctx context.Context, key string, limit Limit) (bool, error)
}

// degradingLimiter 组合限流器：缓存窗口优先，本地令牌桶兜底
type degradingLimiter struct {
	cache  cache.Cache
	window *cacheWindow
	local  Limiter
	logger clog.Logger
	denied metrics.Counter
}

// New 创建限流器。
// cache 为共享窗口存储；standaloneCfg 控制降级用的本地限流器，
// 可为 nil 使用默认值。
func New(c cache.Cache, standaloneCfg *StandaloneConfig, opts ...Option) (Limiter, error) {
	if c == nil {
		return nil, ErrCacheNil
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	opt.applyDefaults()

	local, err := newStandalone(standaloneCfg, opt.logger)
	if err != nil {
		return nil, err
	}

	l := &degradingLimiter{
		cache:  c,
		window: newCacheWindow(c),
		local:  local,
		logger: opt.logger,
	}

	if l.denied, err = opt.meter.Counter("ratelimit_denied_total", "Total rate-limited requests"); err != nil {
		l.logger.Warn("failed to create denied counter", clog.Error(err))
	}

	return l, nil
}

// NewStandalone 创建纯本地限流器，不依赖缓存
func NewStandalone(cfg *StandaloneConfig, opts ...Option) (Limiter, error) {
	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	opt.applyDefaults()

	return newStandalone(cfg, opt.logger)
}

// Allow 判定请求是否放行
func (l *degradingLimiter) Allow(ctx context.Context, key string, limit Limit) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}
	if !limit.valid() {
		return false, ErrInvalidLimit
	}

	var allowed bool
	var err error
	if l.cache.IsAvailable() {
		allowed = l.window.allow(ctx, key, limit)
	} else {
		allowed, err = l.local.Allow(ctx, key, limit)
		if err != nil {
			return false, err
		}
	}

	if !allowed {
		l.logger.Debug("request rate limited", clog.String("key", key))
		if l.denied != nil {
			l.denied.Inc(ctx)
		}
	}
	return allowed, nil
}
