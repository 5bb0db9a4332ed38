package clog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

// loggerImpl 是 Logger 接口的具体实现
type loggerImpl struct {
	handler   slog.Handler
	baseAttrs []slog.Attr
	namespace string
}

// newLogger 创建 Logger 实例（内部使用）
func newLogger(config *Config, opt *options) (Logger, error) {
	w, err := resolveWriter(config, opt)
	if err != nil {
		return nil, err
	}

	level, _ := parseLevel(config.Level)
	handlerOpts := &slog.HandlerOptions{
		AddSource: config.AddSource,
		Level:     level,
	}

	var handler slog.Handler
	if strings.ToLower(config.Format) == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	return &loggerImpl{handler: handler}, nil
}

// resolveWriter 根据配置创建输出 writer（内部使用）
func resolveWriter(config *Config, opt *options) (io.Writer, error) {
	if opt.writer != nil {
		return opt.writer, nil
	}

	switch strings.ToLower(config.Output) {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	}
}

func (l *loggerImpl) Debug(msg string, fields ...Field) {
	l.log(slog.LevelDebug, msg, fields...)
}

func (l *loggerImpl) Info(msg string, fields ...Field) {
	l.log(slog.LevelInfo, msg, fields...)
}

func (l *loggerImpl) Warn(msg string, fields ...Field) {
	l.log(slog.LevelWarn, msg, fields...)
}

func (l *loggerImpl) Error(msg string, fields ...Field) {
	l.log(slog.LevelError, msg, fields...)
}

func (l *loggerImpl) Fatal(msg string, fields ...Field) {
	// Fatal 在 slog 中没有显式常量，使用 Error 的更高值
	l.log(slog.LevelError+4, msg, fields...)
	os.Exit(1)
}

func (l *loggerImpl) With(fields ...Field) Logger {
	attrs := make([]slog.Attr, 0, len(l.baseAttrs)+len(fields))
	attrs = append(attrs, l.baseAttrs...)
	attrs = append(attrs, fields...)

	return &loggerImpl{
		handler:   l.handler,
		baseAttrs: attrs,
		namespace: l.namespace,
	}
}

func (l *loggerImpl) WithNamespace(parts ...string) Logger {
	ns := l.namespace
	for _, p := range parts {
		if p == "" {
			continue
		}
		if ns == "" {
			ns = p
		} else {
			ns = ns + "." + p
		}
	}

	return &loggerImpl{
		handler:   l.handler,
		baseAttrs: l.baseAttrs,
		namespace: ns,
	}
}

// log 组装属性并提交给底层 handler（内部使用）
func (l *loggerImpl) log(level slog.Level, msg string, fields ...Field) {
	ctx := context.Background()
	if !l.handler.Enabled(ctx, level) {
		return
	}

	attrs := make([]slog.Attr, 0, len(l.baseAttrs)+len(fields)+1)
	attrs = append(attrs, l.baseAttrs...)
	attrs = append(attrs, fields...)
	if l.namespace != "" {
		attrs = append(attrs, slog.String("namespace", l.namespace))
	}

	// 获取正确的程序计数器(PC)值，用于准确的源码位置
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:]) // skip: runtime.Callers, log, Debug/Info/...
	record := slog.NewRecord(time.Now(), level, msg, pcs[0])
	record.AddAttrs(attrs...)

	_ = l.handler.Handle(ctx, record)
}
