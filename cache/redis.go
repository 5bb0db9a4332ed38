package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SeanMkhabela/stackgen-backend/connector"
	"github.com/SeanMkhabela/stackgen-backend/xerrors"
)

// driver 底层存储抽象。门面在其上叠加熔断、可用性状态和错误吞咽。
type driver interface {
	connect(ctx context.Context) error
	get(ctx context.Context, key string) ([]byte, error) // 键不存在返回 errMiss
	set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	delete(ctx context.Context, key string) (bool, error)
	close() error
}

// redisDriver 基于借用的 Redis 连接器
type redisDriver struct {
	conn connector.RedisConnector
}

func newRedisDriver(conn connector.RedisConnector) driver {
	return &redisDriver{conn: conn}
}

func (d *redisDriver) connect(ctx context.Context) error {
	return d.conn.Connect(ctx)
}

func (d *redisDriver) get(ctx context.Context, key string) ([]byte, error) {
	data, err := d.conn.GetClient().Get(ctx, key).Bytes()
	if err != nil {
		if xerrors.Is(err, redis.Nil) {
			return nil, errMiss
		}
		return nil, err
	}
	return data, nil
}

func (d *redisDriver) set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return d.conn.GetClient().Set(ctx, key, data, ttl).Err()
}

func (d *redisDriver) delete(ctx context.Context, key string) (bool, error) {
	n, err := d.conn.GetClient().Del(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *redisDriver) close() error {
	// 连接器是借用的，由创建方负责关闭
	return nil
}
