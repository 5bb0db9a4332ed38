package testkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SeanMkhabela/stackgen-backend/connector"
)

// NewSQLiteConfig 返回 SQLite 内存数据库配置
func NewSQLiteConfig() *connector.SQLiteConfig {
	return &connector.SQLiteConfig{
		Name: "test-sqlite",
		Path: ":memory:",
	}
}

// NewSQLiteConnector 获取已连接的 SQLite 连接器（内存数据库）
// 生命周期由 t.Cleanup 管理
func NewSQLiteConnector(t *testing.T) connector.SQLiteConnector {
	conn, err := connector.NewSQLite(NewSQLiteConfig(), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create sqlite connector")

	require.NoError(t, conn.Connect(context.Background()), "failed to connect to sqlite")

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

// NewSQLiteDB 获取 GORM DB 实例（内存数据库）
func NewSQLiteDB(t *testing.T) *gorm.DB {
	return NewSQLiteConnector(t).GetClient()
}

// NewPersistentSQLiteConnector 获取文件型 SQLite 连接器
// 数据库文件存储在 t.TempDir()，测试结束后自动清理
func NewPersistentSQLiteConnector(t *testing.T) connector.SQLiteConnector {
	cfg := &connector.SQLiteConfig{
		Name: "test-sqlite",
		Path: t.TempDir() + "/test.db",
	}
	conn, err := connector.NewSQLite(cfg, connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create sqlite connector")

	require.NoError(t, conn.Connect(context.Background()), "failed to connect to sqlite")

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}
