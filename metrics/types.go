// Package metrics 为 stackgen 后端提供统一的指标收集能力。
// 基于 OpenTelemetry 标准构建，通过 Prometheus Exporter 暴露指标。
//
// 快速开始：
//
//	meter, err := metrics.New(&metrics.Config{
//	    Enabled:     true,
//	    ServiceName: "stackgen-backend",
//	    Version:     "v1.0.0",
//	})
//	defer meter.Shutdown(ctx)
//
//	counter, _ := meter.Counter("archive_builds_total", "归档构建总数")
//	counter.Inc(ctx, metrics.L("stack", "react-express"))
//
// 指标通过 meter.Handler() 挂载到 HTTP 路由（GET /metrics）。
package metrics

import (
	"context"
	"net/http"
)

// Label 指标标签，键值对形式
type Label struct {
	Key   string
	Value string
}

// L 创建一个标签，是 Label{Key: k, Value: v} 的简写
func L(k, v string) Label {
	return Label{Key: k, Value: v}
}

// Counter 计数器接口
// 用于记录只能增加的累计值，例如请求数、错误次数、熔断次数等
type Counter interface {
	// Inc 将计数器增加 1
	Inc(ctx context.Context, labels ...Label)

	// Add 将计数器增加给定的值
	Add(ctx context.Context, val float64, labels ...Label)
}

// Gauge 仪表盘接口
// 用于记录可以任意增减的瞬时值，例如活跃连接数、队列长度等
type Gauge interface {
	// Set 将 gauge 设置为给定的值
	Set(ctx context.Context, val float64, labels ...Label)
}

// Histogram 直方图接口
// 用于记录值的分布情况，例如请求耗时、归档体积等
type Histogram interface {
	// Record 在直方图中记录一个值
	Record(ctx context.Context, val float64, labels ...Label)
}

// Meter 指标创建工厂接口
//
// 一个 Meter 实例对应一个服务；通过 Meter 创建的指标线程安全，
// 可在多个 goroutine 中并发使用。
type Meter interface {
	Counter(name string, desc string) (Counter, error)
	Gauge(name string, desc string) (Gauge, error)
	Histogram(name string, desc string) (Histogram, error)

	// Handler 返回 Prometheus 抓取端点的 http.Handler
	Handler() http.Handler

	// Shutdown 关闭 Meter，刷新所有指标
	Shutdown(ctx context.Context) error
}

// Config 指标配置
type Config struct {
	// Enabled 为 false 时 New 返回 noop Meter
	Enabled bool `json:"enabled" yaml:"enabled"`

	// ServiceName 服务名，写入 otel resource
	ServiceName string `json:"service_name" yaml:"service_name"`

	// Version 服务版本
	Version string `json:"version" yaml:"version"`
}
