package testkit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/SeanMkhabela/stackgen-backend/connector"
)

// NATSURL 返回集成测试用的 NATS 地址，未配置时跳过测试
func NATSURL(t *testing.T) string {
	url := os.Getenv("STACKGEN_TEST_NATS_URL")
	if url == "" {
		t.Skip("STACKGEN_TEST_NATS_URL not set, skipping nats integration test")
	}
	return url
}

// NewNATSConfig 返回 NATS 测试配置
func NewNATSConfig(t *testing.T) *connector.NATSConfig {
	return &connector.NATSConfig{
		Name:          "test-nats",
		URL:           NATSURL(t),
		MaxReconnects: 10,
		ReconnectWait: 100 * time.Millisecond,
	}
}

// NewNATSConnector 获取已连接的 NATS 连接器
// 生命周期由 t.Cleanup 管理
func NewNATSConnector(t *testing.T) connector.NATSConnector {
	conn, err := connector.NewNATS(NewNATSConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create nats connector")

	require.NoError(t, conn.Connect(context.Background()), "failed to connect to nats")

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

// NewNATSConn 获取原生 NATS 连接
func NewNATSConn(t *testing.T) *nats.Conn {
	return NewNATSConnector(t).GetClient()
}
