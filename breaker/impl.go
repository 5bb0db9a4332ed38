package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/SeanMkhabela/stackgen-backend/clog"
	"github.com/SeanMkhabela/stackgen-backend/metrics"
	"github.com/SeanMkhabela/stackgen-backend/xerrors"
)

// registry 注册表实现（非导出）
type registry struct {
	mu       sync.Mutex
	breakers map[string]*circuitBreaker

	logger      clog.Logger
	meter       metrics.Meter
	transitions metrics.Counter
	rejections  metrics.Counter
}

// newRegistry 创建注册表实例（内部函数）
func newRegistry(opt *options) Registry {
	r := &registry{
		breakers: make(map[string]*circuitBreaker),
		logger:   opt.logger,
		meter:    opt.meter,
	}

	// 指标创建失败只记日志，不阻断启动
	var err error
	r.transitions, err = r.meter.Counter(
		"breaker_transitions_total",
		"Total number of circuit breaker state transitions",
	)
	if err != nil {
		r.logger.Warn("failed to create transitions counter", clog.Error(err))
	}
	r.rejections, err = r.meter.Counter(
		"breaker_rejections_total",
		"Total number of calls rejected by an open circuit breaker",
	)
	if err != nil {
		r.logger.Warn("failed to create rejections counter", clog.Error(err))
	}

	return r
}

// GetOrCreate 按名称获取或创建熔断器，同名调用幂等
func (r *registry) GetOrCreate(name string, cfg *Config) Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[name]; ok {
		return cb
	}

	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	c.setDefaults()

	cb := &circuitBreaker{
		name:   name,
		cfg:    c,
		state:  StateClosed,
		window: newWindow(c.WindowDuration, c.WindowBuckets, nil),
		now:    time.Now,
		reg:    r,
		logger: r.logger.With(clog.String("breaker", name)),
	}
	r.breakers[name] = cb

	cb.logger.Info("circuit breaker created",
		clog.Duration("timeout", c.Timeout),
		clog.Float64("failure_threshold", c.FailureThreshold),
		clog.Duration("reset_timeout", c.ResetTimeout),
		clog.Int("min_volume", int(c.MinVolume)))

	return cb
}

// Get 按名称查找熔断器
func (r *registry) Get(name string) (Breaker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cb, ok := r.breakers[name]
	return cb, ok
}

// Execute 在命名熔断器上执行操作
func (r *registry) Execute(ctx context.Context, name string, op Operation, opts ...ExecOption) (any, error) {
	if name == "" {
		return nil, ErrNameEmpty
	}
	return r.GetOrCreate(name, nil).Execute(ctx, op, opts...)
}

// Health 返回所有熔断器的快照
func (r *registry) Health() map[string]Health {
	r.mu.Lock()
	names := make([]*circuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		names = append(names, cb)
	}
	r.mu.Unlock()

	out := make(map[string]Health, len(names))
	for _, cb := range names {
		out[cb.name] = cb.Health()
	}
	return out
}

// circuitBreaker 单个熔断器实例
type circuitBreaker struct {
	name   string
	cfg    Config
	window *window
	now    func() time.Time
	reg    *registry
	logger clog.Logger

	mu            sync.Mutex
	state         State
	openedAt      time.Time
	trialInFlight bool // HalfOpen 状态下是否已有探测请求
}

// execResult 在超时通道和操作结果之间传递
type execResult struct {
	value any
	err   error
}

// Execute 执行受熔断保护的操作
func (cb *circuitBreaker) Execute(ctx context.Context, op Operation, opts ...ExecOption) (any, error) {
	eo := execOptions{}
	for _, o := range opts {
		o(&eo)
	}

	if err := cb.allow(); err != nil {
		cb.window.record(outcomeRejection)
		if cb.reg.rejections != nil {
			cb.reg.rejections.Inc(ctx, metrics.L("breaker", cb.name))
		}

		if eo.fallback != nil {
			cb.window.record(outcomeFallback)
			cb.logger.Debug("circuit open, invoking fallback")
			return eo.fallback(ctx, err)
		}
		return nil, err
	}

	// 派生带超时的子 context，协作式操作可据此提前中止。
	// 非协作的操作在超时后仍会在后台运行完毕，其结果被丢弃。
	cctx, cancel := context.WithTimeout(ctx, cb.cfg.Timeout)
	defer cancel()

	done := make(chan execResult, 1)
	go func() {
		v, err := op(cctx)
		done <- execResult{value: v, err: err}
	}()

	var value any
	var err error
	timedOut := false

	select {
	case r := <-done:
		value, err = r.value, r.err
	case <-cctx.Done():
		if ctx.Err() == nil {
			timedOut = true
			err = xerrors.Wrapf(ErrTimeout, "breaker[%s]: operation exceeded %s", cb.name, cb.cfg.Timeout)
		} else {
			err = ctx.Err()
		}
	}

	switch {
	case timedOut:
		cb.afterExecute(outcomeTimeout)
	case err == nil:
		cb.afterExecute(outcomeSuccess)
	case eo.filter != nil && !eo.filter(err):
		// 过滤掉的错误不计入失败率，但仍然向上传播，也不走降级
		cb.releaseTrial()
		return value, err
	default:
		cb.afterExecute(outcomeFailure)
	}

	// 失败与超时同样走降级：有 fallback 则返回其结果，否则传播错误
	if err != nil && eo.fallback != nil {
		cb.window.record(outcomeFallback)
		cb.logger.Debug("operation failed, invoking fallback", clog.Error(err))
		return eo.fallback(ctx, err)
	}

	return value, err
}

// State 返回当前状态
func (cb *circuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Health 返回只读快照
func (cb *circuitBreaker) Health() Health {
	cb.mu.Lock()
	state := cb.state
	cb.mu.Unlock()

	return Health{
		Name:  cb.name,
		State: state.String(),
		Stats: cb.window.snapshot(),
	}
}

// Reset 手动重置为 Closed
func (cb *circuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.transitionTo(StateClosed)
	cb.trialInFlight = false
	cb.window.reset()
}

// Name 返回熔断器名称
func (cb *circuitBreaker) Name() string {
	return cb.name
}

// allow 判断请求是否允许通过，并按需触发 Open -> HalfOpen 迁移
func (cb *circuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil

	case StateOpen:
		if cb.now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
			cb.transitionTo(StateHalfOpen)
			cb.trialInFlight = true
			return nil
		}
		return xerrors.Wrapf(ErrOpenState, "breaker[%s]", cb.name)

	case StateHalfOpen:
		// 半开状态只允许一个探测请求
		if cb.trialInFlight {
			return xerrors.Wrapf(ErrTooManyRequests, "breaker[%s]", cb.name)
		}
		cb.trialInFlight = true
		return nil

	default:
		return xerrors.Wrapf(ErrOpenState, "breaker[%s]: unknown state", cb.name)
	}
}

// afterExecute 记录执行结果并驱动状态迁移
func (cb *circuitBreaker) afterExecute(o outcome) {
	cb.window.record(o)

	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := o == outcomeFailure || o == outcomeTimeout

	switch cb.state {
	case StateClosed:
		if failed && cb.shouldTrip() {
			cb.transitionTo(StateOpen)
			cb.openedAt = cb.now()
		}

	case StateHalfOpen:
		cb.trialInFlight = false
		if failed {
			// 探测失败，重新打开并重启计时器
			cb.transitionTo(StateOpen)
			cb.openedAt = cb.now()
		} else {
			// 探测成功，恢复闭合并清空统计
			cb.transitionTo(StateClosed)
			cb.window.reset()
		}
	}
}

// releaseTrial 释放半开探测槽位（用于被过滤的错误，不影响状态）
func (cb *circuitBreaker) releaseTrial() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.trialInFlight = false
	}
}

// shouldTrip 判断是否应该打开熔断器。调用方必须持有 cb.mu。
func (cb *circuitBreaker) shouldTrip() bool {
	stats := cb.window.snapshot()
	if stats.Requests() < cb.cfg.MinVolume {
		return false
	}
	// 严格大于：失败率恰好等于阈值时保持闭合
	return stats.FailureRate() > cb.cfg.FailureThreshold
}

// transitionTo 状态迁移。调用方必须持有 cb.mu。
func (cb *circuitBreaker) transitionTo(newState State) {
	if cb.state == newState {
		return
	}
	oldState := cb.state
	cb.state = newState

	cb.logger.Info("circuit breaker state changed",
		clog.String("from", oldState.String()),
		clog.String("to", newState.String()))

	if cb.reg.transitions != nil {
		cb.reg.transitions.Inc(context.Background(),
			metrics.L("breaker", cb.name),
			metrics.L("from", oldState.String()),
			metrics.L("to", newState.String()))
	}
}
