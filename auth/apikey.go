package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/SeanMkhabela/stackgen-backend/clog"
	"github.com/SeanMkhabela/stackgen-backend/store"
	"github.com/SeanMkhabela/stackgen-backend/xerrors"
)

// keyPrefix API 密钥前缀
const keyPrefix = "sg_"

// rawKeyLen "sg_" + 32 位 uuid hex
const rawKeyLen = len(keyPrefix) + 32

// APIKeys API 密钥服务。
// 明文密钥只在签发时返回一次，库里只存 SHA-256 摘要。
type APIKeys struct {
	store  *store.Store
	logger clog.Logger
}

// NewAPIKeys 创建 API 密钥服务
func NewAPIKeys(st *store.Store, opts ...Option) (*APIKeys, error) {
	if st == nil {
		return nil, xerrors.New("auth: store is nil")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &APIKeys{store: st, logger: o.logger}, nil
}

// Issue 签发新密钥，返回明文与落库记录
func (k *APIKeys) Issue(ctx context.Context, owner, label string) (string, *store.APIKey, error) {
	u := uuid.New()
	raw := keyPrefix + hex.EncodeToString(u[:])

	res := store.SafeCreate(ctx, k.store, store.APIKey{
		Digest: digest(raw),
		Label:  label,
		Owner:  owner,
	})
	if res.Degraded {
		return "", nil, ErrStoreDegraded
	}

	k.logger.Info("api key issued",
		clog.String("owner", owner),
		clog.String("label", label))

	rec := res.Value
	return raw, &rec, nil
}

// Verify 验证明文密钥，返回匹配的记录。
// 存储降级时返回 ErrStoreDegraded，调用方必须拒绝请求而不是放行。
func (k *APIKeys) Verify(ctx context.Context, raw string) (*store.APIKey, error) {
	if len(raw) != rawKeyLen || raw[:len(keyPrefix)] != keyPrefix {
		return nil, ErrInvalidKey
	}

	d := digest(raw)
	res := store.SafeFindOne[store.APIKey](ctx, k.store, store.Query{"digest": d})
	if res.Degraded {
		return nil, ErrStoreDegraded
	}
	if !res.Found {
		return nil, ErrInvalidKey
	}

	if subtle.ConstantTimeCompare([]byte(res.Value.Digest), []byte(d)) != 1 {
		return nil, ErrInvalidKey
	}
	if res.Value.Revoked {
		return nil, ErrKeyRevoked
	}

	rec := res.Value
	return &rec, nil
}

// Revoke 吊销明文密钥对应的记录
func (k *APIKeys) Revoke(ctx context.Context, raw string) error {
	res := store.SafeUpdateOne[store.APIKey](ctx, k.store,
		store.Query{"digest": digest(raw)},
		map[string]any{"revoked": true})
	if res.Degraded {
		return ErrStoreDegraded
	}
	if !res.Found {
		return ErrInvalidKey
	}

	k.logger.Info("api key revoked")
	return nil
}

// digest 计算明文密钥的 SHA-256 十六进制摘要
func digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
