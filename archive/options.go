package archive

import (
	"github.com/SeanMkhabela/stackgen-backend/cache"
	"github.com/SeanMkhabela/stackgen-backend/clog"
	"github.com/SeanMkhabela/stackgen-backend/metrics"
)

// Option 归档组件选项函数
type Option func(*options)

// options 选项结构（内部使用）
type options struct {
	cache  cache.Cache
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

// WithCache 注入缓存门面，启用 lookaside 与构建后回填
func WithCache(c cache.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithLogger 注入日志记录器
// 组件内部会自动追加 Namespace: logger.WithNamespace("archive")
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("archive")
		}
	}
}

// WithMeter 注入指标 Meter
func WithMeter(m metrics.Meter) Option {
	return func(o *options) {
		o.meter = m
	}
}
