package breaker

import "github.com/SeanMkhabela/stackgen-backend/xerrors"

// 错误定义
var (
	// ErrNameEmpty 熔断器名称为空
	ErrNameEmpty = xerrors.New("breaker: name is empty")

	// ErrOpenState 熔断器处于打开状态，请求被拒绝
	ErrOpenState = xerrors.WithCode(xerrors.New("breaker: circuit breaker is open"), xerrors.CodeCircuitOpen)

	// ErrTooManyRequests 半开状态下探测请求已满
	ErrTooManyRequests = xerrors.WithCode(xerrors.New("breaker: too many requests in half-open state"), xerrors.CodeCircuitOpen)

	// ErrTimeout 受保护操作超时
	ErrTimeout = xerrors.New("breaker: operation timed out")
)

// IsOpen 判断错误是否由熔断未闭合导致（打开拒绝或半开探测槽位已满）
func IsOpen(err error) bool {
	return xerrors.Is(err, ErrOpenState) || xerrors.Is(err, ErrTooManyRequests)
}

// IsTimeout 判断错误是否为熔断器超时
func IsTimeout(err error) bool {
	return xerrors.Is(err, ErrTimeout)
}
