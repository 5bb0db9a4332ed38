package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/SeanMkhabela/stackgen-backend/breaker"
	"github.com/SeanMkhabela/stackgen-backend/clog"
	"github.com/SeanMkhabela/stackgen-backend/metrics"
	"github.com/SeanMkhabela/stackgen-backend/xerrors"
)

// 可用性状态
const (
	stateDisconnected int32 = iota // Connect 尚未成功
	stateAvailable                 // 正常服务
	stateDisabled                  // 重试耗尽，进程内永久禁用
)

// 熔断器命名与参数（门面专用）
const (
	breakerGet    = "cache-get"
	breakerSet    = "cache-set"
	breakerDelete = "cache-delete"

	breakerTimeout   = 3 * time.Second
	breakerThreshold = 0.25
)

// facade Cache 接口实现
type facade struct {
	cfg      *Config
	driver   driver
	breakers breaker.Registry
	logger   clog.Logger

	state atomic.Int32

	hits     metrics.Counter
	misses   metrics.Counter
	failures metrics.Counter
}

// newFacade 创建门面实例（内部函数）
func newFacade(cfg *Config, d driver, opt *options) (Cache, error) {
	f := &facade{
		cfg:      cfg,
		driver:   d,
		breakers: opt.Breakers,
		logger:   opt.Logger,
	}

	// 预注册熔断器，统一超时与阈值
	brkCfg := &breaker.Config{
		Timeout:          breakerTimeout,
		FailureThreshold: breakerThreshold,
	}
	f.breakers.GetOrCreate(breakerGet, brkCfg)
	f.breakers.GetOrCreate(breakerSet, brkCfg)
	f.breakers.GetOrCreate(breakerDelete, brkCfg)

	// 指标创建失败只记日志
	var err error
	if f.hits, err = opt.Meter.Counter("cache_hits_total", "Total cache hits"); err != nil {
		f.logger.Warn("failed to create hits counter", clog.Error(err))
	}
	if f.misses, err = opt.Meter.Counter("cache_misses_total", "Total cache misses"); err != nil {
		f.logger.Warn("failed to create misses counter", clog.Error(err))
	}
	if f.failures, err = opt.Meter.Counter("cache_failures_total", "Total swallowed cache failures"); err != nil {
		f.logger.Warn("failed to create failures counter", clog.Error(err))
	}

	return f, nil
}

// Connect 建立底层连接，带有界指数退避。
// 连续失败 ConnectMaxAttempts 次后永久禁用。
func (f *facade) Connect(ctx context.Context) error {
	switch f.state.Load() {
	case stateAvailable:
		return nil
	case stateDisabled:
		return ErrDisabled
	}

	backoff := f.cfg.ConnectBaseBackoff
	var lastErr error

	for attempt := 1; attempt <= f.cfg.ConnectMaxAttempts; attempt++ {
		lastErr = f.driver.connect(ctx)
		if lastErr == nil {
			f.state.Store(stateAvailable)
			f.logger.Info("cache connected", clog.Int("attempt", attempt))
			return nil
		}

		f.logger.Warn("cache connect attempt failed",
			clog.Int("attempt", attempt),
			clog.Int("max_attempts", f.cfg.ConnectMaxAttempts),
			clog.Error(lastErr))

		if attempt == f.cfg.ConnectMaxAttempts {
			break
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			// 调用方取消不算耗尽，下次还可以再试
			return ctx.Err()
		}

		backoff *= 2
		if backoff > f.cfg.ConnectMaxBackoff {
			backoff = f.cfg.ConnectMaxBackoff
		}
	}

	f.state.Store(stateDisabled)
	f.logger.Error("cache permanently disabled, all connect attempts exhausted",
		clog.Int("attempts", f.cfg.ConnectMaxAttempts),
		clog.Error(lastErr))

	return xerrors.Wrap(ErrDisabled, lastErr.Error())
}

// IsAvailable 返回缓存是否可用
func (f *facade) IsAvailable() bool {
	return f.state.Load() == stateAvailable
}

// Get 读取信封值。任何失败都表现为未命中。
func (f *facade) Get(ctx context.Context, key string) (*Value, bool) {
	if !f.IsAvailable() {
		f.countMiss(ctx)
		return nil, false
	}

	// 未命中是业务结果，不计入熔断失败率
	result, err := f.breakers.Execute(ctx, breakerGet,
		func(ctx context.Context) (any, error) {
			return f.driver.get(ctx, f.cfg.Prefix+key)
		},
		breaker.WithErrorFilter(func(err error) bool {
			return !xerrors.Is(err, errMiss)
		}),
	)
	if err != nil {
		if xerrors.Is(err, errMiss) {
			f.countMiss(ctx)
		} else {
			f.reportFailure(ctx, "get", key, err)
		}
		return nil, false
	}

	data, ok := result.([]byte)
	if !ok || data == nil {
		f.countMiss(ctx)
		return nil, false
	}

	v, err := decodeValue(data)
	if err != nil {
		// 信封损坏视为未命中，同时上报
		f.reportFailure(ctx, "get", key, err)
		return nil, false
	}

	if f.hits != nil {
		f.hits.Inc(ctx)
	}
	return v, true
}

// Set 写入信封值，返回是否确认写入
func (f *facade) Set(ctx context.Context, key string, value *Value, ttl time.Duration) bool {
	if !f.IsAvailable() || value == nil {
		return false
	}

	data, err := value.encode()
	if err != nil {
		f.reportFailure(ctx, "set", key, err)
		return false
	}

	_, err = f.breakers.Execute(ctx, breakerSet, func(ctx context.Context) (any, error) {
		return nil, f.driver.set(ctx, f.cfg.Prefix+key, data, ttl)
	})
	if err != nil {
		f.reportFailure(ctx, "set", key, err)
		return false
	}
	return true
}

// Delete 删除键，返回键是否确实被删除
func (f *facade) Delete(ctx context.Context, key string) bool {
	if !f.IsAvailable() {
		return false
	}

	result, err := f.breakers.Execute(ctx, breakerDelete, func(ctx context.Context) (any, error) {
		return f.driver.delete(ctx, f.cfg.Prefix+key)
	})
	if err != nil {
		f.reportFailure(ctx, "delete", key, err)
		return false
	}

	deleted, _ := result.(bool)
	return deleted
}

// Close 释放底层资源
func (f *facade) Close() error {
	return f.driver.close()
}

// countMiss 未命中计数
func (f *facade) countMiss(ctx context.Context) {
	if f.misses != nil {
		f.misses.Inc(ctx)
	}
}

// reportFailure 上报被吞掉的失败：记日志 + 计数，绝不向调用方传播
func (f *facade) reportFailure(ctx context.Context, op, key string, err error) {
	f.logger.Warn("cache operation failed, degrading silently",
		clog.String("op", op),
		clog.String("key", key),
		clog.Error(err))

	if f.failures != nil {
		f.failures.Inc(ctx, metrics.L("op", op))
	}
}
