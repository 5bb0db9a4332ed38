package store

import (
	"github.com/SeanMkhabela/stackgen-backend/breaker"
	"github.com/SeanMkhabela/stackgen-backend/clog"
	"github.com/SeanMkhabela/stackgen-backend/metrics"
)

// Option 存储组件选项函数
type Option func(*options)

// options 选项结构（内部使用）
type options struct {
	name     string
	logger   clog.Logger
	meter    metrics.Meter
	breakers breaker.Registry
}

// applyDefaults 填充未设置的依赖
func (o *options) applyDefaults() {
	if o.name == "" {
		o.name = "store"
	}
	if o.logger == nil {
		o.logger = clog.Discard()
	}
	if o.meter == nil {
		o.meter = metrics.Discard()
	}
	if o.breakers == nil {
		o.breakers = breaker.NewRegistry()
	}
}

// WithName 设置实例名，作为熔断器命名前缀。
// 同一注册表上挂多个 Store 时用它区分。
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger 注入日志记录器
// 组件内部会自动追加 Namespace: logger.WithNamespace("store")
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("store")
		}
	}
}

// WithMeter 注入指标 Meter
func WithMeter(m metrics.Meter) Option {
	return func(o *options) {
		o.meter = m
	}
}

// WithBreakers 注入熔断器注册表。
// 注入共享注册表可让 /health/breakers 一并观测 store-* 熔断器。
func WithBreakers(r breaker.Registry) Option {
	return func(o *options) {
		o.breakers = r
	}
}
