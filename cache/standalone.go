package cache

import (
	"context"
	"time"

	"github.com/maypok86/otter/v2"
	"github.com/maypok86/otter/v2/stats"
)

const (
	// defaultTTL 当未指定 TTL 时使用的默认时间（100年，模拟永久）
	defaultTTL = 24 * 365 * 100 * time.Hour
)

// standaloneDriver 进程内 otter 缓存，用于开发与单元测试
type standaloneDriver struct {
	cache *otter.Cache[string, []byte]
}

func newStandaloneDriver(cfg *StandaloneConfig) driver {
	if cfg == nil {
		cfg = &StandaloneConfig{}
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 10000
	}

	// 写入过期策略（与 Redis TTL 语义一致）：
	// 过期时间从写入开始计算，读取不会重置 TTL。
	c, err := otter.New(&otter.Options[string, []byte]{
		MaximumSize:      capacity,
		StatsRecorder:    stats.NewCounter(),
		ExpiryCalculator: otter.ExpiryWriting[string, []byte](defaultTTL),
	})
	if err != nil {
		// Options 均为静态合法值，构建不应失败
		panic("cache: failed to build otter cache: " + err.Error())
	}

	return &standaloneDriver{cache: c}
}

func (d *standaloneDriver) connect(ctx context.Context) error {
	return nil
}

func (d *standaloneDriver) get(ctx context.Context, key string) ([]byte, error) {
	data, ok := d.cache.GetIfPresent(key)
	if !ok {
		return nil, errMiss
	}
	return data, nil
}

func (d *standaloneDriver) set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	d.cache.Set(key, data)
	if ttl > 0 {
		d.cache.SetExpiresAfter(key, ttl)
	}
	return nil
}

func (d *standaloneDriver) delete(ctx context.Context, key string) (bool, error) {
	_, existed := d.cache.GetIfPresent(key)
	d.cache.Invalidate(key)
	return existed, nil
}

func (d *standaloneDriver) close() error {
	return nil
}
