package auth

import "github.com/SeanMkhabela/stackgen-backend/xerrors"

var (
	ErrInvalidToken     = xerrors.New("auth: invalid token")
	ErrExpiredToken     = xerrors.New("auth: token expired")
	ErrMissingToken     = xerrors.New("auth: missing token")
	ErrInvalidClaims    = xerrors.New("auth: invalid claims")
	ErrInvalidSignature = xerrors.New("auth: invalid signature")
	ErrInvalidConfig    = xerrors.New("auth: invalid config")

	// ErrInvalidKey API 密钥不存在、格式不对或摘要不匹配
	ErrInvalidKey = xerrors.New("auth: invalid api key")

	// ErrKeyRevoked API 密钥已被吊销
	ErrKeyRevoked = xerrors.New("auth: api key revoked")

	// ErrStoreDegraded 持久存储降级，密钥状态无法确认。
	// 必须拒绝请求而不是当作"密钥不存在"。
	ErrStoreDegraded = xerrors.WithCode(
		xerrors.New("auth: store degraded, cannot verify api key"),
		xerrors.CodeDegraded)
)
