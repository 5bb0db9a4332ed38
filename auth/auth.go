// Package auth 提供令牌与 API 密钥的签发、验证能力。
//
// 两条认证路径：
//   - JWT：Authenticator 生成/验证/刷新 HS256 访问令牌，配套 Gin 中间件
//   - API 密钥：APIKeys 签发 `sg_<hex>` 明文密钥，只落库 SHA-256 摘要，
//     验证走降级感知的 store 封装
//
// 基本使用：
//
//	authn, _ := auth.New(&auth.Config{SecretKey: secret, Issuer: "stackgen"})
//	token, _ := authn.GenerateToken(ctx, &auth.Claims{
//	    RegisteredClaims: jwt.RegisteredClaims{Subject: "dev@example.com"},
//	})
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SeanMkhabela/stackgen-backend/clog"
	"github.com/SeanMkhabela/stackgen-backend/metrics"
	"github.com/SeanMkhabela/stackgen-backend/xerrors"

	"github.com/gin-gonic/gin"
)

// Authenticator 认证器接口
type Authenticator interface {
	// GenerateToken 生成 Token
	GenerateToken(ctx context.Context, claims *Claims) (string, error)

	// ValidateToken 验证 Token，返回 Claims
	ValidateToken(ctx context.Context, token string) (*Claims, error)

	// RefreshToken 刷新 Token
	RefreshToken(ctx context.Context, token string) (string, error)

	// GinMiddleware 返回 Gin 认证中间件
	GinMiddleware() gin.HandlerFunc
}

// jwtAuth JWT 认证实现
type jwtAuth struct {
	config  *Config
	logger  clog.Logger
	issued  metrics.Counter
	checked metrics.Counter
}

// New 创建 Authenticator
func New(cfg *Config, opts ...Option) (Authenticator, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}

	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	a := &jwtAuth{
		config: cfg,
		logger: o.logger,
	}

	var err error
	if a.issued, err = o.meter.Counter("auth_tokens_issued_total", "Total tokens issued"); err != nil {
		a.logger.Warn("failed to create issued counter", clog.Error(err))
	}
	if a.checked, err = o.meter.Counter("auth_tokens_validated_total", "Total token validations"); err != nil {
		a.logger.Warn("failed to create validated counter", clog.Error(err))
	}

	if cfg.DevMode {
		a.logger.Warn("dev mode enabled, authentication middleware will bypass all requests")
	}

	return a, nil
}

// GenerateToken 生成 Token
func (a *jwtAuth) GenerateToken(ctx context.Context, claims *Claims) (string, error) {
	if claims == nil || claims.Subject == "" {
		return "", ErrInvalidClaims
	}

	now := time.Now()
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.config.AccessTokenTTL))
	}
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.Issuer == "" {
		claims.Issuer = a.config.Issuer
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(a.config.SecretKey))
	if err != nil {
		return "", xerrors.Wrap(err, "failed to sign token")
	}

	a.logger.Info("token issued", clog.String("subject", claims.Subject))
	if a.issued != nil {
		a.issued.Inc(ctx)
	}

	return signed, nil
}

// ValidateToken 验证 Token
func (a *jwtAuth) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return []byte(a.config.SecretKey), nil
	})

	if err != nil {
		switch {
		case xerrors.Is(err, jwt.ErrTokenExpired):
			err = ErrExpiredToken
		case xerrors.Is(err, jwt.ErrTokenSignatureInvalid):
			err = ErrInvalidSignature
		default:
			err = ErrInvalidToken
		}
		a.countValidation(ctx, "error")
		return nil, err
	}

	if !token.Valid {
		a.countValidation(ctx, "error")
		return nil, ErrInvalidToken
	}

	a.countValidation(ctx, "success")
	return claims, nil
}

// RefreshToken 刷新 Token。
// 旧令牌必须仍然有效；新令牌沿用 Subject，有效期重新计算。
func (a *jwtAuth) RefreshToken(ctx context.Context, token string) (string, error) {
	claims, err := a.ValidateToken(ctx, token)
	if err != nil {
		return "", err
	}

	claims.ExpiresAt = nil
	claims.IssuedAt = nil

	refreshed, err := a.GenerateToken(ctx, claims)
	if err != nil {
		return "", err
	}

	a.logger.Info("token refreshed", clog.String("subject", claims.Subject))
	return refreshed, nil
}

// extractToken 从 Authorization Header 提取 Bearer Token
func (a *jwtAuth) extractToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != a.config.TokenHeadName {
		return "", ErrInvalidToken
	}
	return parts[1], nil
}

func (a *jwtAuth) countValidation(ctx context.Context, status string) {
	if a.checked != nil {
		a.checked.Inc(ctx, metrics.L("status", status))
	}
}

// ClaimsKey Gin Context 中存放 Claims 的键
const ClaimsKey = "auth:claims"
