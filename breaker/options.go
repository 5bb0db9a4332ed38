package breaker

import (
	"context"

	"github.com/SeanMkhabela/stackgen-backend/clog"
	"github.com/SeanMkhabela/stackgen-backend/metrics"
)

// Option 注册表初始化选项函数
type Option func(*options)

// options 注册表初始化选项配置（内部使用，小写）
type options struct {
	logger clog.Logger
	meter  metrics.Meter
}

// applyDefaults 填充未设置的依赖
func (o *options) applyDefaults() {
	if o.logger == nil {
		o.logger = clog.Discard()
	}
	if o.meter == nil {
		o.meter = metrics.Discard()
	}
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
// 内部会自动添加 namespace: "breaker"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger.WithNamespace("breaker")
		}
	}
}

// WithMeter 设置指标收集器
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// FallbackFunc 降级函数类型。
// 熔断打开被拒绝、操作失败或超时时调用，返回替代结果；
// 返回 error 时错误向上传播。被过滤的错误不走降级。
type FallbackFunc func(ctx context.Context, err error) (any, error)

// ErrorFilter 错误过滤器。
// 返回 false 的错误不计入失败率，但仍然向调用方传播。
type ErrorFilter func(err error) bool

// ExecOption 单次执行的选项
type ExecOption func(*execOptions)

// execOptions 单次执行选项配置
type execOptions struct {
	fallback FallbackFunc
	filter   ErrorFilter
}

// WithFallback 设置降级函数
// 熔断打开、操作失败或超时时调用，返回替代结果
//
// 使用示例:
//
//	result, err := reg.Execute(ctx, "cache-get", op,
//		breaker.WithFallback(func(ctx context.Context, err error) (any, error) {
//			return staleValue, nil
//		}),
//	)
func WithFallback(fallback FallbackFunc) ExecOption {
	return func(o *execOptions) {
		o.fallback = fallback
	}
}

// WithFallbackValue 设置固定的降级值
func WithFallbackValue(value any) ExecOption {
	return func(o *execOptions) {
		o.fallback = func(ctx context.Context, err error) (any, error) {
			return value, nil
		}
	}
}

// WithErrorFilter 设置错误过滤器
// 例如"未找到"类业务错误不应触发熔断：
//
//	breaker.WithErrorFilter(func(err error) bool {
//		return !xerrors.Is(err, gorm.ErrRecordNotFound)
//	})
func WithErrorFilter(filter ErrorFilter) ExecOption {
	return func(o *execOptions) {
		o.filter = filter
	}
}
