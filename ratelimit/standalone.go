package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/SeanMkhabela/stackgen-backend/clog"
)

// StandaloneConfig 本地限流配置
type StandaloneConfig struct {
	// CleanupInterval 清理过期限流器的间隔（默认：1 分钟）
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`

	// IdleTimeout 限流器空闲超时时间（默认：5 分钟）
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// setDefaults 设置默认值
func (c *StandaloneConfig) setDefaults() {
	if c.CleanupInterval == 0 {
		c.CleanupInterval = time.Minute
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 5 * time.Minute
	}
}

// limiterWrapper 包装 rate.Limiter 并记录最后访问时间
type limiterWrapper struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	mu       sync.Mutex
}

// standaloneLimiter 本地令牌桶限流器
type standaloneLimiter struct {
	cfg      *StandaloneConfig
	logger   clog.Logger
	limiters sync.Map // map[string]*limiterWrapper
}

// newStandalone 创建本地限流器（内部函数）
func newStandalone(cfg *StandaloneConfig, logger clog.Logger) (Limiter, error) {
	if cfg == nil {
		cfg = &StandaloneConfig{}
	}
	cfg.setDefaults()

	l := &standaloneLimiter{
		cfg:    cfg,
		logger: logger,
	}

	go l.cleanup(cfg.CleanupInterval, cfg.IdleTimeout)

	return l, nil
}

// Allow 尝试获取 1 个令牌
func (l *standaloneLimiter) Allow(ctx context.Context, key string, limit Limit) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}
	if !limit.valid() {
		return false, ErrInvalidLimit
	}

	// 固定窗口规则映射为等速率令牌桶，突发额度即窗口额度
	r := rate.Limit(float64(limit.Requests) / limit.Window.Seconds())
	wrapper := l.getLimiter(key, r, limit.Requests)

	wrapper.mu.Lock()
	wrapper.lastSeen = time.Now()
	allowed := wrapper.limiter.Allow()
	wrapper.mu.Unlock()

	return allowed, nil
}

// getLimiter 获取或创建 key 对应的限流器
func (l *standaloneLimiter) getLimiter(key string, r rate.Limit, burst int) *limiterWrapper {
	if v, ok := l.limiters.Load(key); ok {
		return v.(*limiterWrapper)
	}

	wrapper := &limiterWrapper{
		limiter:  rate.NewLimiter(r, burst),
		lastSeen: time.Now(),
	}
	actual, _ := l.limiters.LoadOrStore(key, wrapper)
	return actual.(*limiterWrapper)
}

// cleanup 周期清理空闲限流器，防止 key 无界增长
func (l *standaloneLimiter) cleanup(interval, idleTimeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-idleTimeout)
		l.limiters.Range(func(key, value any) bool {
			wrapper := value.(*limiterWrapper)
			wrapper.mu.Lock()
			idle := wrapper.lastSeen.Before(cutoff)
			wrapper.mu.Unlock()
			if idle {
				l.limiters.Delete(key)
			}
			return true
		})
	}
}
