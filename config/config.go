package config

import (
	"context"
	"fmt"
	"strings"
)

// New 创建配置加载器。
//
// 返回的 Loader 需要调用 Load 之后才能读取配置。
func New(opts ...Option) (Loader, error) {
	options := defaultOptions()
	for _, o := range opts {
		o(options)
	}
	options.EnvPrefix = strings.ToUpper(options.EnvPrefix)

	return newLoader(options)
}

// MustLoad 创建并加载配置，出错时 panic。仅用于程序初始化阶段。
func MustLoad(opts ...Option) Loader {
	l, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create config loader: %v", err))
	}
	if err := l.Load(context.Background()); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return l
}
