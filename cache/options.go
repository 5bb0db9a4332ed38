package cache

import (
	"github.com/SeanMkhabela/stackgen-backend/breaker"
	"github.com/SeanMkhabela/stackgen-backend/clog"
	"github.com/SeanMkhabela/stackgen-backend/connector"
	"github.com/SeanMkhabela/stackgen-backend/metrics"
)

// Option 缓存组件选项函数
type Option func(*options)

// options 选项结构（内部使用）
type options struct {
	Logger    clog.Logger
	Meter     metrics.Meter
	Breakers  breaker.Registry
	RedisConn connector.RedisConnector
}

// applyDefaults 填充未设置的依赖
func (o *options) applyDefaults() {
	if o.Logger == nil {
		o.Logger = clog.Discard()
	}
	if o.Meter == nil {
		o.Meter = metrics.Discard()
	}
	if o.Breakers == nil {
		o.Breakers = breaker.NewRegistry()
	}
}

// WithLogger 注入日志记录器
// 组件内部会自动追加 Namespace: logger.WithNamespace("cache")
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.Logger = l.WithNamespace("cache")
		}
	}
}

// WithMeter 注入指标 Meter
func WithMeter(m metrics.Meter) Option {
	return func(o *options) {
		o.Meter = m
	}
}

// WithBreakers 注入熔断器注册表。
// 不注入时组件持有私有注册表；注入共享注册表可让 /health/breakers
// 一并观测 cache-get / cache-set / cache-delete。
func WithBreakers(r breaker.Registry) Option {
	return func(o *options) {
		o.Breakers = r
	}
}

// WithRedisConnector 注入 Redis 连接器 (仅用于分布式模式)
func WithRedisConnector(conn connector.RedisConnector) Option {
	return func(o *options) {
		o.RedisConn = conn
	}
}
