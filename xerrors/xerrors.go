// Package xerrors 提供标准化错误处理工具。
//
// 除了常规的错误包装，还定义了贯穿整个后端的错误码体系：
// 校验错误、依赖降级、熔断拒绝和流式构建失败。HTTP 层依据错误码
// 机械地映射状态码，核心组件不感知 HTTP。
package xerrors

import (
	"errors"
	"fmt"
)

// 错误码定义
const (
	// CodeValidation 请求不合法（栈名错误、组合不兼容），用户可修正
	CodeValidation = "ERR_VALIDATION"

	// CodeDegraded 依赖（缓存/持久存储）不可用或降级，绝不向最终用户暴露
	CodeDegraded = "ERR_DEGRADED"

	// CodeCircuitOpen 熔断器打开且未配置降级值，是 CodeDegraded 的特化
	CodeCircuitOpen = "ERR_CIRCUIT_OPEN"

	// CodeStreaming 归档构建过程中的文件系统或压缩错误，对当前请求致命
	CodeStreaming = "ERR_STREAMING"
)

// Wrap 用上下文信息包装错误，保留错误链。
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 用格式化的上下文信息包装错误。
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// WithCode 用错误码包装错误。
func WithCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &CodedError{Code: code, Cause: err}
}

// CodedError 带有机器可读错误码的错误。
type CodedError struct {
	Code  string
	Cause error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %v", e.Code, e.Cause)
	}
	return fmt.Sprintf("[%s]", e.Code)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// GetCode 从错误链中提取错误码。
func GetCode(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// HasCode 判断错误链中是否携带指定错误码。
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}

// 标准库函数再导出
var (
	New    = errors.New
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)
