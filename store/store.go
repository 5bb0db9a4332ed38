// Package store 提供了带降级语义的数据访问封装。
//
// store 在 GORM 仓储之上叠加熔断保护：每个实体的每种操作拥有独立的
// 熔断器（命名 `<store>-<op>-<entity>`），持久存储故障时快速失败，
// 并以 Result[T] 的形式把"确认不存在"与"存储降级"区分开 ——
// 调用方拿到的永远是一个可用的结果对象，而不是裸错误。
//
// ## 基本使用
//
//	sqliteConn, _ := connector.NewSQLite(&cfg.SQLite)
//	sqliteConn.Connect(ctx)
//
//	st, _ := store.New(store.NewGormRepository(sqliteConn, logger),
//		store.WithBreakers(registry),
//		store.WithLogger(logger))
//
//	res := store.SafeFindOne[store.APIKey](ctx, st, store.Query{"digest": digest})
//	switch {
//	case res.Degraded:
//		// 存储不可用：拒绝请求或走降级路径，但绝不当作"不存在"
//	case !res.Found:
//		// 确认不存在
//	default:
//		key := res.Value
//	}
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/SeanMkhabela/stackgen-backend/breaker"
	"github.com/SeanMkhabela/stackgen-backend/clog"
	"github.com/SeanMkhabela/stackgen-backend/metrics"
	"github.com/SeanMkhabela/stackgen-backend/xerrors"
)

// 熔断器参数（store 专用）
const (
	breakerTimeout   = 5 * time.Second
	breakerThreshold = 0.30
	breakerReset     = 10 * time.Second
)

// DegradedReason 降级原因
type DegradedReason string

const (
	// ReasonCircuitOpen 熔断器打开，请求未到达存储
	ReasonCircuitOpen DegradedReason = "circuit_open"
	// ReasonTimeout 存储操作超时
	ReasonTimeout DegradedReason = "timeout"
	// ReasonStoreError 存储返回错误
	ReasonStoreError DegradedReason = "store_error"
)

// Result 安全操作的结果。
// Degraded 为 true 时 Value/Found 不可信，Reason 说明降级原因；
// Degraded 为 false 且 Found 为 false 表示确认不存在。
type Result[T any] struct {
	Value    T
	Found    bool
	Degraded bool
	Reason   DegradedReason
}

// OrZero 返回值或零值，等价于传统的"查不到就是 null"视图
func (r Result[T]) OrZero() T {
	if r.Degraded || !r.Found {
		var zero T
		return zero
	}
	return r.Value
}

// degraded 构造降级结果
func degraded[T any](reason DegradedReason) Result[T] {
	return Result[T]{Degraded: true, Reason: reason}
}

// Store 数据访问封装。
// 借用 Repository，不负责底层连接的生命周期。
type Store struct {
	repo     Repository
	name     string
	breakers breaker.Registry
	logger   clog.Logger
	failures metrics.Counter
}

// New 创建 Store 实例
func New(repo Repository, opts ...Option) (*Store, error) {
	if repo == nil {
		return nil, xerrors.New("store: repository is nil")
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	opt.applyDefaults()

	s := &Store{
		repo:     repo,
		name:     opt.name,
		breakers: opt.breakers,
		logger:   opt.logger,
	}

	var err error
	if s.failures, err = opt.meter.Counter("store_failures_total", "Total degraded store operations"); err != nil {
		s.logger.Warn("failed to create failures counter", clog.Error(err))
	}

	return s, nil
}

// Migrate 执行模型迁移
func (s *Store) Migrate(ctx context.Context, models ...any) error {
	return s.repo.Migrate(ctx, models...)
}

// SafeFindOne 查询单条记录，存储故障时返回降级结果
func SafeFindOne[T Entity](ctx context.Context, s *Store, q Query) Result[T] {
	var zero T
	kind := zero.TableName()

	result, err := s.execute(ctx, "findone", kind, func(ctx context.Context) (any, error) {
		var dest T
		if err := s.repo.FindOne(ctx, kind, q, &dest); err != nil {
			return nil, err
		}
		return dest, nil
	})
	if err != nil {
		if xerrors.Is(err, ErrNotFound) {
			return Result[T]{Found: false}
		}
		return degraded[T](reasonFor(err))
	}

	return Result[T]{Value: result.(T), Found: true}
}

// SafeFind 查询多条记录，存储故障时返回降级结果。
// 确认为空的结果 Found 为 true、Value 为空切片。
func SafeFind[T Entity](ctx context.Context, s *Store, q Query) Result[[]T] {
	var zero T
	kind := zero.TableName()

	result, err := s.execute(ctx, "find", kind, func(ctx context.Context) (any, error) {
		var dest []T
		if err := s.repo.Find(ctx, kind, q, &dest); err != nil {
			return nil, err
		}
		return dest, nil
	})
	if err != nil {
		return degraded[[]T](reasonFor(err))
	}

	values := result.([]T)
	if values == nil {
		values = []T{}
	}
	return Result[[]T]{Value: values, Found: true}
}

// SafeCreate 创建记录，返回写入后的记录（含自增主键）
func SafeCreate[T Entity](ctx context.Context, s *Store, record T) Result[T] {
	kind := record.TableName()

	result, err := s.execute(ctx, "create", kind, func(ctx context.Context) (any, error) {
		if err := s.repo.Create(ctx, kind, &record); err != nil {
			return nil, err
		}
		return record, nil
	})
	if err != nil {
		return degraded[T](reasonFor(err))
	}

	return Result[T]{Value: result.(T), Found: true}
}

// SafeUpdateOne 按条件更新单条记录，Found 表示是否命中
func SafeUpdateOne[T Entity](ctx context.Context, s *Store, q Query, updates map[string]any) Result[bool] {
	var zero T
	kind := zero.TableName()

	result, err := s.execute(ctx, "updateone", kind, func(ctx context.Context) (any, error) {
		return s.repo.UpdateOne(ctx, kind, q, &zero, updates)
	})
	if err != nil {
		return degraded[bool](reasonFor(err))
	}

	matched := result.(bool)
	return Result[bool]{Value: matched, Found: matched}
}

// SafeDeleteOne 按条件删除单条记录，Found 表示是否命中
func SafeDeleteOne[T Entity](ctx context.Context, s *Store, q Query) Result[bool] {
	var zero T
	kind := zero.TableName()

	result, err := s.execute(ctx, "deleteone", kind, func(ctx context.Context) (any, error) {
		return s.repo.DeleteOne(ctx, kind, q, &zero)
	})
	if err != nil {
		return degraded[bool](reasonFor(err))
	}

	deleted := result.(bool)
	return Result[bool]{Value: deleted, Found: deleted}
}

// execute 在命名熔断器内执行仓储操作。
// "未找到"通过错误过滤器放行：传播但不计入失败率。
// 每个底层失败恰好上报一次。
func (s *Store) execute(ctx context.Context, op, kind string, fn breaker.Operation) (any, error) {
	name := fmt.Sprintf("%s-%s-%s", s.name, op, kind)
	s.breakers.GetOrCreate(name, &breaker.Config{
		Timeout:          breakerTimeout,
		FailureThreshold: breakerThreshold,
		ResetTimeout:     breakerReset,
	})

	result, err := s.breakers.Execute(ctx, name, fn,
		breaker.WithErrorFilter(func(err error) bool {
			return !xerrors.Is(err, ErrNotFound)
		}),
	)
	if err != nil && !xerrors.Is(err, ErrNotFound) {
		s.reportFailure(ctx, op, kind, err)
	}
	return result, err
}

// reportFailure 上报降级：记日志 + 计数，每个失败恰好一次
func (s *Store) reportFailure(ctx context.Context, op, kind string, err error) {
	s.logger.Warn("store operation degraded",
		clog.String("op", op),
		clog.String("entity", kind),
		clog.String("reason", string(reasonFor(err))),
		clog.Error(err))

	if s.failures != nil {
		s.failures.Inc(ctx, metrics.L("op", op), metrics.L("entity", kind))
	}
}

// reasonFor 将错误归类为降级原因
func reasonFor(err error) DegradedReason {
	switch {
	case breaker.IsOpen(err):
		return ReasonCircuitOpen
	case breaker.IsTimeout(err):
		return ReasonTimeout
	default:
		return ReasonStoreError
	}
}
