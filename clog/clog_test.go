package clog

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// TestNewDefaultConfig 测试 nil 配置时使用默认值
func TestNewDefaultConfig(t *testing.T) {
	logger, err := New(nil)
	if err != nil {
		t.Fatalf("New(nil) should not return error, got: %v", err)
	}
	if logger == nil {
		t.Fatal("New(nil) should return a valid logger")
	}
}

// TestNewInvalidLevel 测试非法日志级别
func TestNewInvalidLevel(t *testing.T) {
	_, err := New(&Config{Level: "verbose"})
	if err == nil {
		t.Fatal("New with invalid level should return error")
	}
}

// TestJSONOutput 测试 JSON 格式输出及字段
func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&Config{Level: "debug", Format: "json"}, WithWriter(&buf))
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	logger.Info("archive built",
		String("stack", "react-express"),
		Int("entries", 42),
		Error(errors.New("boom")))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not valid json: %v", err)
	}

	if record["msg"] != "archive built" {
		t.Errorf("unexpected msg: %v", record["msg"])
	}
	if record["stack"] != "react-express" {
		t.Errorf("unexpected stack field: %v", record["stack"])
	}
	if record["err_msg"] != "boom" {
		t.Errorf("unexpected err_msg field: %v", record["err_msg"])
	}
}

// TestLevelFiltering 测试级别过滤
func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(&Config{Level: "warn", Format: "json"}, WithWriter(&buf))

	logger.Debug("should not appear")
	logger.Info("should not appear either")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("low-level logs leaked: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("warn log missing: %s", out)
	}
}

// TestWithNamespace 测试命名空间追加
func TestWithNamespace(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(&Config{Level: "info", Format: "json"}, WithWriter(&buf))

	child := logger.WithNamespace("cache").WithNamespace("redis")
	child.Info("connected")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not valid json: %v", err)
	}
	if record["namespace"] != "cache.redis" {
		t.Errorf("expected namespace cache.redis, got: %v", record["namespace"])
	}
}

// TestWith 测试预设字段
func TestWith(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(&Config{Level: "info", Format: "json"}, WithWriter(&buf))

	child := logger.With(String("component", "breaker"))
	child.Info("state changed")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not valid json: %v", err)
	}
	if record["component"] != "breaker" {
		t.Errorf("expected component breaker, got: %v", record["component"])
	}
}

// TestDiscard 测试静默 Logger
func TestDiscard(t *testing.T) {
	logger := Discard()
	// 不应 panic
	logger.Info("ignored")
	logger.Error("ignored", Error(errors.New("x")))
	if logger.With(String("k", "v")) == nil {
		t.Error("Discard().With should return a logger")
	}
}
