package auth

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/SeanMkhabela/stackgen-backend/clog"
	"github.com/SeanMkhabela/stackgen-backend/store"
	"github.com/SeanMkhabela/stackgen-backend/xerrors"
)

var (
	// ErrInvalidCredentials 邮箱不存在或密码不匹配，对外不区分
	ErrInvalidCredentials = xerrors.New("auth: invalid credentials")

	// ErrEmailTaken 邮箱已注册
	ErrEmailTaken = xerrors.WithCode(xerrors.New("auth: email already registered"), xerrors.CodeValidation)

	// ErrInvalidEmail 邮箱格式不合法
	ErrInvalidEmail = xerrors.WithCode(xerrors.New("auth: invalid email"), xerrors.CodeValidation)

	// ErrWeakPassword 密码过短
	ErrWeakPassword = xerrors.WithCode(xerrors.New("auth: password must be at least 8 characters"), xerrors.CodeValidation)
)

// Accounts 账号服务：注册与密码认证
type Accounts struct {
	store  *store.Store
	logger clog.Logger
}

// NewAccounts 创建账号服务
func NewAccounts(st *store.Store, opts ...Option) (*Accounts, error) {
	if st == nil {
		return nil, xerrors.New("auth: store is nil")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Accounts{store: st, logger: o.logger}, nil
}

// Register 注册新账号，密码以 bcrypt 散列落库
func (a *Accounts) Register(ctx context.Context, email, password string) (*store.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	existing := store.SafeFindOne[store.User](ctx, a.store, store.Query{"email": email})
	if existing.Degraded {
		return nil, ErrStoreDegraded
	}
	if existing.Found {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, xerrors.Wrap(err, "auth: password hashing failed")
	}

	res := store.SafeCreate(ctx, a.store, store.User{Email: email, PasswordHash: string(hash)})
	if res.Degraded {
		return nil, ErrStoreDegraded
	}

	a.logger.Info("account registered", clog.String("email", email))
	user := res.Value
	return &user, nil
}

// Authenticate 校验邮箱与密码。
// 邮箱不存在与密码错误返回同一个错误，不给枚举留口子。
func (a *Accounts) Authenticate(ctx context.Context, email, password string) (*store.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	res := store.SafeFindOne[store.User](ctx, a.store, store.Query{"email": email})
	if res.Degraded {
		return nil, ErrStoreDegraded
	}
	if !res.Found {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(res.Value.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	user := res.Value
	return &user, nil
}
