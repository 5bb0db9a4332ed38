package ratelimit

import "github.com/SeanMkhabela/stackgen-backend/xerrors"

var (
	// ErrCacheNil 缓存门面为空
	ErrCacheNil = xerrors.New("ratelimit: cache is nil")

	// ErrKeyEmpty 限流键为空
	ErrKeyEmpty = xerrors.New("ratelimit: key is empty")

	// ErrInvalidLimit 限流规则无效
	ErrInvalidLimit = xerrors.New("ratelimit: invalid limit")
)
