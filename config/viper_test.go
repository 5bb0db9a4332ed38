package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoaderLoad 测试配置加载的完整流程和优先级
func TestLoaderLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// 基础配置文件
	baseConfig := filepath.Join(tmpDir, "config.yaml")
	baseContent := `
server:
  addr: ":8080"
  mode: "release"
redis:
  addr: "localhost:6379"
  db: 0
cache:
  default_ttl_seconds: 300
`

	// 开发环境配置文件
	devConfig := filepath.Join(tmpDir, "config.dev.yaml")
	devContent := `
server:
  mode: "debug"
redis:
  db: 1
`

	// .env 文件
	envFile := filepath.Join(tmpDir, ".env")
	envContent := `
STACKGEN_CLOG_LEVEL=debug
STACKGEN_CLOG_FORMAT=json
`

	if err := os.WriteFile(baseConfig, []byte(baseContent), 0644); err != nil {
		t.Fatalf("Failed to create base config: %v", err)
	}
	if err := os.WriteFile(devConfig, []byte(devContent), 0644); err != nil {
		t.Fatalf("Failed to create dev config: %v", err)
	}
	if err := os.WriteFile(envFile, []byte(envContent), 0644); err != nil {
		t.Fatalf("Failed to create .env file: %v", err)
	}

	os.Setenv("STACKGEN_ENV", "dev")
	os.Setenv("STACKGEN_SERVER_ADDR", ":9090")
	defer func() {
		os.Unsetenv("STACKGEN_ENV")
		os.Unsetenv("STACKGEN_SERVER_ADDR")
	}()

	ctx := context.Background()
	loader, err := New(
		WithConfigName("config"),
		WithConfigPaths(tmpDir),
		WithConfigType("yaml"),
		WithEnvPrefix("STACKGEN"),
	)
	if err != nil {
		t.Fatalf("Failed to create loader: %v", err)
	}

	if err := loader.Load(ctx); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// 1. 环境变量（最高优先级）
	if addr := loader.Get("server.addr"); addr != ":9090" {
		t.Errorf("server.addr from env = %v, want :9090", addr)
	}

	// 2. .env 文件（高优先级）
	if logLevel := loader.Get("clog.level"); logLevel != "debug" {
		t.Errorf("clog.level from .env = %v, want debug", logLevel)
	}

	// 3. 环境特定配置（中等优先级）
	if mode := loader.Get("server.mode"); mode != "debug" {
		t.Errorf("server.mode from dev config = %v, want debug", mode)
	}
	if redisDb := loader.Get("redis.db"); redisDb != 1 {
		t.Errorf("redis.db from dev config = %v, want 1", redisDb)
	}

	// 4. 基础配置（最低优先级）
	if ttl := loader.Get("cache.default_ttl_seconds"); ttl != 300 {
		t.Errorf("cache.default_ttl_seconds from base config = %v, want 300", ttl)
	}
	if redisAddr := loader.Get("redis.addr"); redisAddr != "localhost:6379" {
		t.Errorf("redis.addr from base config = %v, want localhost:6379", redisAddr)
	}
}

// TestLoaderWatch 测试配置监听功能
func TestLoaderWatch(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "watch-test.yaml")
	initialContent := `
ratelimit:
  limit: 60
  enabled: true
`

	if err := os.WriteFile(configFile, []byte(initialContent), 0644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	loader, err := New(
		WithConfigName("watch-test"),
		WithConfigPaths(tmpDir),
		WithConfigType("yaml"),
	)
	if err != nil {
		t.Fatalf("Failed to create loader: %v", err)
	}

	if err := loader.Load(ctx); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	limitCh, err := loader.Watch(ctx, "ratelimit.limit")
	if err != nil {
		t.Fatalf("Failed to watch ratelimit.limit: %v", err)
	}

	enabledCh, err := loader.Watch(ctx, "ratelimit.enabled")
	if err != nil {
		t.Fatalf("Failed to watch ratelimit.enabled: %v", err)
	}

	updatedContent := `
ratelimit:
  limit: 120
  enabled: false
`

	if err := os.WriteFile(configFile, []byte(updatedContent), 0644); err != nil {
		t.Fatalf("Failed to update config file: %v", err)
	}

	eventCount := 0
	timeout := time.After(5 * time.Second)

	for eventCount < 2 {
		select {
		case event := <-limitCh:
			if event.Key != "ratelimit.limit" {
				t.Errorf("Event key = %v, want ratelimit.limit", event.Key)
			}
			if event.Value != 120 {
				t.Errorf("Event value = %v, want 120", event.Value)
			}
			if event.OldValue != 60 {
				t.Errorf("Event oldValue = %v, want 60", event.OldValue)
			}
			if event.Source != "file" {
				t.Errorf("Event source = %v, want file", event.Source)
			}
			eventCount++

		case event := <-enabledCh:
			if event.Value != false {
				t.Errorf("Event value = %v, want false", event.Value)
			}
			eventCount++

		case <-timeout:
			t.Errorf("Timeout waiting for config change events")
			return

		case <-ctx.Done():
			t.Errorf("Context cancelled while waiting for events")
			return
		}
	}
}

// TestLoaderWatchCancel 测试监听取消
func TestLoaderWatchCancel(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "cancel-test.yaml")
	content := `test: {value: 1}`

	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	ctx := context.Background()
	loader, err := New(
		WithConfigName("cancel-test"),
		WithConfigPaths(tmpDir),
	)
	if err != nil {
		t.Fatalf("Failed to create loader: %v", err)
	}

	if err := loader.Load(ctx); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	watchCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	ch, err := loader.Watch(watchCtx, "test.value")
	if err != nil {
		t.Fatalf("Failed to watch: %v", err)
	}

	<-watchCtx.Done()

	// 验证通道已关闭
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Watch channel should be closed after context cancellation")
		}
	case <-time.After(100 * time.Millisecond):
		// 通道应该已经关闭，如果没有则超时
	}
}

// TestLoaderValidateEmpty 测试空配置验证失败
func TestLoaderValidateEmpty(t *testing.T) {
	loader, err := New(
		WithConfigName("nonexistent"),
		WithConfigPaths("/nonexistent"),
		WithEnvPrefix("STACKGEN_TEST_EMPTY_CFG"),
	)
	if err != nil {
		t.Fatalf("Failed to create loader: %v", err)
	}

	err = loader.Load(context.Background())
	if err == nil {
		t.Fatal("Load() should fail on empty configuration")
	}
	if !IsValidationFailed(err) {
		t.Errorf("expected validation failure, got: %v", err)
	}
}
