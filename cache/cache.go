// Package cache 提供面向降级的缓存门面（lookaside cache facade）。
//
// 与常规缓存客户端不同，本组件把"缓存不可用"视为一种状态而不是错误：
// 所有读写操作都不向调用方返回 error。底层存储失败时，Get 表现为未命中，
// Set/Delete 返回 false，错误被上报到日志与指标后吞掉。
// 调用方永远不需要因为缓存故障而改变业务逻辑。
//
// 每个操作都经过熔断器保护（cache-get / cache-set / cache-delete），
// 存储持续故障时熔断打开，请求快速失败而不是阻塞在坏连接上。
//
// 值以带类型标签的信封（Value{Kind, Payload}）原子地存储在单个键下，
// 以 msgpack 编码，二进制负载无损往返。
//
// 基本使用：
//
//	redisConn, _ := connector.NewRedis(redisCfg)
//	c, _ := cache.New(&cache.Config{Prefix: "stackgen:"},
//	    cache.WithRedisConnector(redisConn),
//	    cache.WithBreakers(registry),
//	    cache.WithLogger(logger))
//
//	// 建立连接（有界指数退避，超过尝试上限后进程内永久禁用）
//	c.Connect(ctx)
//
//	c.Set(ctx, "stack:react-express", cache.Binary(zipBytes), 24*time.Hour)
//	if v, ok := c.Get(ctx, "stack:react-express"); ok {
//	    w.Write(v.Bytes())
//	}
package cache

import (
	"context"
	"time"

	"github.com/SeanMkhabela/stackgen-backend/xerrors"
)

// Cache 缓存门面的核心接口。
//
// 所有方法并发安全。读写方法从不返回 error：
// 不可用或底层失败时 Get 未命中、Set/Delete 返回 false。
type Cache interface {
	// IsAvailable 返回缓存当前是否可用。
	// Connect 尚未成功、重试耗尽被永久禁用时返回 false。
	IsAvailable() bool

	// Get 读取键对应的信封值。未命中、不可用或底层失败均返回 (nil, false)。
	Get(ctx context.Context, key string) (*Value, bool)

	// Set 写入信封值。ttl <= 0 表示不过期。返回写入是否确认成功。
	Set(ctx context.Context, key string, value *Value, ttl time.Duration) bool

	// Delete 删除键。返回键是否确实被删除。
	Delete(ctx context.Context, key string) bool

	// Connect 建立底层连接，带有界指数退避。
	// 连续失败达到上限后，门面在进程生命周期内永久标记为不可用，
	// 后续调用直接返回 ErrDisabled。
	Connect(ctx context.Context) error

	// Close 释放底层资源（借用的 Connector 除外）
	Close() error
}

// 错误定义
var (
	// ErrDisabled 重试耗尽后缓存被永久禁用
	ErrDisabled = xerrors.WithCode(xerrors.New("cache: permanently disabled after connect retries exhausted"), xerrors.CodeDegraded)

	// errMiss 键不存在（内部哨兵，不越过门面边界）
	errMiss = xerrors.New("cache: miss")
)

// New 根据配置创建缓存门面。
//
// Mode 为 "standalone" 时使用进程内 otter 缓存（开发与测试）；
// "distributed" 或空时使用 Redis，需要通过 WithRedisConnector 注入连接器。
func New(cfg *Config, opts ...Option) (Cache, error) {
	if cfg == nil {
		return nil, xerrors.New("cache: config is nil")
	}
	cfg.setDefaults()

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	opt.applyDefaults()

	var d driver
	switch cfg.Mode {
	case "standalone":
		d = newStandaloneDriver(cfg.Standalone)
	case "distributed", "":
		if opt.RedisConn == nil {
			return nil, xerrors.New("cache: redis connector is required for distributed mode, use WithRedisConnector")
		}
		d = newRedisDriver(opt.RedisConn)
	default:
		return nil, xerrors.Wrapf(xerrors.New("cache: unknown mode"), "%q", cfg.Mode)
	}

	return newFacade(cfg, d, &opt)
}

// NewStandalone 创建进程内缓存门面，等价于 Mode: "standalone"
func NewStandalone(cfg *StandaloneConfig, opts ...Option) (Cache, error) {
	return New(&Config{Mode: "standalone", Standalone: cfg}, opts...)
}
