package xerrors

import (
	"testing"
)

// TestWrapNil 测试包装 nil 错误
func TestWrapNil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}
	if WithCode(nil, CodeDegraded) != nil {
		t.Error("WithCode(nil) should return nil")
	}
}

// TestWrapChain 测试错误链保留
func TestWrapChain(t *testing.T) {
	base := New("connection refused")
	wrapped := Wrap(base, "redis get failed")

	if !Is(wrapped, base) {
		t.Error("wrapped error should match base via Is")
	}
	if wrapped.Error() != "redis get failed: connection refused" {
		t.Errorf("unexpected message: %s", wrapped.Error())
	}
}

// TestCodedError 测试错误码提取
func TestCodedError(t *testing.T) {
	base := New("store timeout")
	coded := WithCode(base, CodeDegraded)

	if GetCode(coded) != CodeDegraded {
		t.Errorf("expected code %s, got %s", CodeDegraded, GetCode(coded))
	}
	if !HasCode(coded, CodeDegraded) {
		t.Error("HasCode should match")
	}
	if !Is(coded, base) {
		t.Error("coded error should unwrap to base")
	}

	// 再包一层，错误码仍可提取
	outer := Wrap(coded, "safe find failed")
	if GetCode(outer) != CodeDegraded {
		t.Errorf("code should survive wrapping, got %q", GetCode(outer))
	}
}

// TestGetCodeMissing 测试无错误码的错误
func TestGetCodeMissing(t *testing.T) {
	if GetCode(New("plain")) != "" {
		t.Error("plain error should have no code")
	}
	if GetCode(nil) != "" {
		t.Error("nil error should have no code")
	}
}
