package testkit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SeanMkhabela/stackgen-backend/connector"
)

// RedisAddr 返回集成测试用的 Redis 地址，未配置时跳过测试
func RedisAddr(t *testing.T) string {
	addr := os.Getenv("STACKGEN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STACKGEN_TEST_REDIS_ADDR not set, skipping redis integration test")
	}
	return addr
}

// NewRedisConfig 返回 Redis 测试配置
func NewRedisConfig(t *testing.T) *connector.RedisConfig {
	return &connector.RedisConfig{
		Name:         "test-redis",
		Addr:         RedisAddr(t),
		DB:           1, // 使用 DB 1 避免与默认的 DB 0 冲突
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewRedisConnector 获取已连接的 Redis 连接器
// 生命周期由 t.Cleanup 管理
func NewRedisConnector(t *testing.T) connector.RedisConnector {
	conn, err := connector.NewRedis(NewRedisConfig(t), connector.WithLogger(NewLogger()))
	if err != nil {
		t.Fatalf("failed to create redis connector: %v", err)
	}

	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

// NewRedisClient 获取原生 Redis 客户端
func NewRedisClient(t *testing.T) *redis.Client {
	return NewRedisConnector(t).GetClient()
}
