// Package breaker 提供了熔断器组件，专注于对外部依赖（缓存、持久存储等）
// 的故障隔离与自动恢复。
//
// breaker 是 stackgen 治理层的核心组件，它提供了：
// - 显式注入的熔断器注册表（按名称管理，无包级全局状态）
// - Closed / Open / HalfOpen 三态状态机，半开状态单请求探测
// - 基于时间分桶滑动窗口的统计（成功/失败/超时/拒绝/降级）
// - 每次调用的超时控制（通过派生子 context 传递给被保护操作）
// - 灵活的降级策略（快速失败或自定义降级逻辑）
// - 错误过滤器（不计入失败率但仍然向上传播的错误）
//
// ## 基本使用
//
//	reg := breaker.NewRegistry(breaker.WithLogger(logger))
//
//	result, err := reg.Execute(ctx, "cache-get", func(ctx context.Context) (any, error) {
//		return client.Get(ctx, key).Result()
//	})
//
// ## 自定义配置与降级
//
//	reg.GetOrCreate("store-find-user", &breaker.Config{
//		Timeout:          5 * time.Second,
//		FailureThreshold: 0.3,
//		ResetTimeout:     10 * time.Second,
//	})
//
//	result, err := reg.Execute(ctx, "store-find-user", op,
//		breaker.WithFallback(func(ctx context.Context, err error) (any, error) {
//			return cachedValue, nil
//		}),
//	)
package breaker

import (
	"context"
	"time"
)

// Operation 受熔断保护的操作。
// 传入的 context 已携带熔断器的超时；操作应当在 ctx 取消时尽快返回。
type Operation func(ctx context.Context) (any, error)

// Breaker 单个熔断器的核心接口
type Breaker interface {
	// Execute 执行受熔断保护的操作
	// 返回: 操作结果和错误；熔断打开且未配置降级时返回 ErrOpenState
	Execute(ctx context.Context, op Operation, opts ...ExecOption) (any, error)

	// State 返回当前状态（不触发状态迁移）
	State() State

	// Health 返回状态与滑动窗口统计的只读快照
	Health() Health

	// Reset 手动重置为 Closed 并清空统计
	Reset()

	// Name 返回熔断器名称
	Name() string
}

// Registry 熔断器注册表。
//
// 一个进程通常只持有一个 Registry 实例，通过依赖注入传递给各组件。
// 所有方法并发安全。
type Registry interface {
	// GetOrCreate 按名称获取或创建熔断器。
	// 幂等：同名重复调用返回同一实例，后续传入的配置被忽略（首次配置生效）。
	// cfg 为 nil 时使用默认配置。
	GetOrCreate(name string, cfg *Config) Breaker

	// Get 按名称查找已注册的熔断器
	Get(name string) (Breaker, bool)

	// Execute 在名为 name 的熔断器上执行操作，必要时以默认配置创建
	Execute(ctx context.Context, name string, op Operation, opts ...ExecOption) (any, error)

	// Health 返回所有已注册熔断器的快照，按名称索引
	Health() map[string]Health
}

// State 熔断器状态
type State int

const (
	// StateClosed 闭合状态（正常）
	StateClosed State = iota
	// StateHalfOpen 半开状态（探测恢复）
	StateHalfOpen
	// StateOpen 打开状态（熔断中）
	StateOpen
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Stats 滑动窗口内的累计计数
type Stats struct {
	Successes  uint64 `json:"successes"`
	Failures   uint64 `json:"failures"`
	Timeouts   uint64 `json:"timeouts"`
	Rejections uint64 `json:"rejections"`
	Fallbacks  uint64 `json:"fallbacks"`
}

// Requests 返回实际执行过的请求数（不含被拒绝的请求）
func (s Stats) Requests() uint64 {
	return s.Successes + s.Failures + s.Timeouts
}

// FailureRate 返回失败率，超时计入失败
func (s Stats) FailureRate() float64 {
	total := s.Requests()
	if total == 0 {
		return 0
	}
	return float64(s.Failures+s.Timeouts) / float64(total)
}

// Health 熔断器健康快照
type Health struct {
	Name  string `json:"name"`
	State string `json:"state"`
	Stats Stats  `json:"stats"`
}

// Config 熔断器配置
type Config struct {
	// Timeout 单次调用超时（默认：10s）
	// 超时计为一次失败，并使派生 context 取消
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// FailureThreshold 失败率阈值（默认：0.5，即 50%）
	// 当窗口内失败率达到此值时触发熔断
	FailureThreshold float64 `json:"failure_threshold" yaml:"failure_threshold"`

	// ResetTimeout 打开状态持续时间（默认：30s）
	// 超时后进入半开状态进行单请求探测
	ResetTimeout time.Duration `json:"reset_timeout" yaml:"reset_timeout"`

	// WindowDuration 滑动窗口时长（默认：60s）
	WindowDuration time.Duration `json:"window_duration" yaml:"window_duration"`

	// WindowBuckets 窗口分桶数（默认：10）
	WindowBuckets int `json:"window_buckets" yaml:"window_buckets"`

	// MinVolume 触发熔断的最小请求数（默认：5）
	// 窗口内请求数少于此值时不会触发熔断
	MinVolume uint64 `json:"min_volume" yaml:"min_volume"`
}

// setDefaults 填充默认值
func (c *Config) setDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.FailureThreshold <= 0 || c.FailureThreshold > 1 {
		c.FailureThreshold = 0.5
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 30 * time.Second
	}
	if c.WindowDuration <= 0 {
		c.WindowDuration = 60 * time.Second
	}
	if c.WindowBuckets <= 0 {
		c.WindowBuckets = 10
	}
	if c.MinVolume == 0 {
		c.MinVolume = 5
	}
}

// NewRegistry 创建熔断器注册表
// 这是标准的工厂函数，支持在不依赖其他容器的情况下独立实例化
func NewRegistry(opts ...Option) Registry {
	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	opt.applyDefaults()

	return newRegistry(&opt)
}
