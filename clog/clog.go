// Package clog 为 stackgen 后端提供基于 slog 的结构化日志组件。
//
// 特性：
//   - 抽象接口，不暴露底层实现（slog）
//   - 支持层级命名空间，便于按组件（breaker、cache、archive）划分日志
//   - 零外部依赖（仅依赖 Go 标准库）
//   - 采用函数式选项模式
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	logger.Info("server started", clog.String("addr", ":8080"))
//
// 创建子 Logger：
//
//	cacheLogger := logger.WithNamespace("cache")
//	cacheLogger.Warn("cache unavailable", clog.Error(err))
package clog

import "fmt"

// Logger 日志接口，提供结构化日志记录功能
//
// 支持五个日志级别：Debug、Info、Warn、Error、Fatal。
// Fatal 在输出日志后调用 os.Exit(1)。
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// With 创建一个带有预设字段的子 Logger
	//
	// 预设的字段会出现在该子 Logger 的所有日志中。
	With(fields ...Field) Logger

	// WithNamespace 创建一个扩展命名空间的子 Logger
	//
	// 命名空间会追加到现有的命名空间后面，以 "." 连接，
	// 并作为 namespace 字段输出。
	WithNamespace(parts ...string) Logger
}

// New 创建一个新的 Logger 实例
//
// config - 日志配置，如果为 nil 会使用默认配置（info/console/stdout）
// opts   - 函数式选项列表，用于测试时重定向输出等
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = &Config{Level: "info", Format: "console", Output: "stdout"}
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	opt := &options{}
	for _, o := range opts {
		o(opt)
	}

	return newLogger(config, opt)
}

// Discard 创建一个静默的 Logger 实例
//
// 返回的 Logger 实现了 Logger 接口，但所有方法体都是空操作。
func Discard() Logger {
	return &noopLogger{}
}

// noopLogger 是一个什么都不做的 Logger 实现（内部使用）
type noopLogger struct{}

func (l *noopLogger) Debug(msg string, fields ...Field) {}
func (l *noopLogger) Info(msg string, fields ...Field)  {}
func (l *noopLogger) Warn(msg string, fields ...Field)  {}
func (l *noopLogger) Error(msg string, fields ...Field) {}
func (l *noopLogger) Fatal(msg string, fields ...Field) {}

func (l *noopLogger) With(fields ...Field) Logger           { return l }
func (l *noopLogger) WithNamespace(parts ...string) Logger  { return l }
