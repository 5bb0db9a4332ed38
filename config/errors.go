package config

import "github.com/SeanMkhabela/stackgen-backend/xerrors"

// ErrValidationFailed 配置验证失败
var ErrValidationFailed = xerrors.New("configuration validation failed")

// IsValidationFailed 检查错误是否为配置验证失败
func IsValidationFailed(err error) bool {
	return xerrors.Is(err, ErrValidationFailed)
}
