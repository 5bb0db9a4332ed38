package server

import (
	"github.com/SeanMkhabela/stackgen-backend/clog"
)

// Option 服务选项函数
type Option func(*options)

// options 选项结构（内部使用）
type options struct {
	logger clog.Logger
}

// applyDefaults 填充未设置的依赖
func (o *options) applyDefaults() {
	if o.logger == nil {
		o.logger = clog.Discard()
	}
}

// WithLogger 注入日志记录器
// 组件内部会自动追加 Namespace: logger.WithNamespace("server")
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("server")
		}
	}
}
