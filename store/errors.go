package store

import "github.com/SeanMkhabela/stackgen-backend/xerrors"

// ErrNotFound 记录不存在。
// 这是业务结果而非存储故障：不计入熔断失败率，也不触发降级。
var ErrNotFound = xerrors.New("store: record not found")

// IsNotFound 判断错误是否为记录不存在
func IsNotFound(err error) bool {
	return xerrors.Is(err, ErrNotFound)
}
