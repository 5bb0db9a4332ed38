package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestDisabledReturnsNoop 测试禁用时返回 noop
func TestDisabledReturnsNoop(t *testing.T) {
	m, err := New(&Config{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// noop 实例的所有操作都应当安全
	c, err := m.Counter("test_total", "test counter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Inc(context.Background(), L("k", "v"))

	if err := m.Shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown should not fail: %v", err)
	}
}

// TestNilConfig 测试空配置
func TestNilConfig(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("nil config should fail")
	}
}

// TestCounterExported 测试计数器通过 Prometheus 端点导出
func TestCounterExported(t *testing.T) {
	m, err := New(&Config{Enabled: true, ServiceName: "stackgen-test", Version: "v0.0.1"})
	if err != nil {
		t.Fatalf("failed to create meter: %v", err)
	}
	defer m.Shutdown(context.Background())

	ctx := context.Background()
	c, err := m.Counter("archive_builds_total", "test counter")
	if err != nil {
		t.Fatalf("failed to create counter: %v", err)
	}
	c.Inc(ctx, L("stack", "react-express"))
	c.Add(ctx, 2, L("stack", "react-express"))

	h, err := m.Histogram("archive_build_seconds", "test histogram")
	if err != nil {
		t.Fatalf("failed to create histogram: %v", err)
	}
	h.Record(ctx, 0.42)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	out := string(body)
	if !strings.Contains(out, "archive_builds_total") {
		t.Errorf("exported metrics should contain counter, got:\n%s", out)
	}
	if !strings.Contains(out, "archive_build_seconds") {
		t.Errorf("exported metrics should contain histogram, got:\n%s", out)
	}
}
