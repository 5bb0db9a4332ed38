package auth

import (
	"time"

	"github.com/SeanMkhabela/stackgen-backend/xerrors"
	"github.com/golang-jwt/jwt/v5"
)

// Config Auth 配置
type Config struct {
	// JWT 配置
	SecretKey     string `mapstructure:"secret_key"`     // 签名密钥（至少 32 字符）
	SigningMethod string `mapstructure:"signing_method"` // 签名方法: HS256（目前只支持）
	Issuer        string `mapstructure:"issuer"`         // 签发者

	// AccessTokenTTL Access Token 有效期，默认 15m
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`

	// TokenHeadName Header 前缀，默认 Bearer
	TokenHeadName string `mapstructure:"token_head_name"`

	// DevMode 开发模式。显式开启后认证中间件直接放行，
	// 生产配置必须保持 false。
	DevMode bool `mapstructure:"dev_mode"`
}

// setDefaults 设置默认值
func (c *Config) setDefaults() {
	if c.SigningMethod == "" {
		c.SigningMethod = "HS256"
	}
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = 15 * time.Minute
	}
	if c.TokenHeadName == "" {
		c.TokenHeadName = "Bearer"
	}
}

// validate 验证配置
func (c *Config) validate() error {
	if c.SecretKey == "" {
		return ErrInvalidConfig
	}

	if len(c.SecretKey) < 32 {
		return xerrors.Wrapf(ErrInvalidConfig, "secret_key must be at least 32 characters")
	}

	if c.SigningMethod != jwt.SigningMethodHS256.Alg() {
		return xerrors.Wrapf(ErrInvalidConfig, "unsupported signing_method: %s", c.SigningMethod)
	}

	if c.AccessTokenTTL <= 0 {
		return xerrors.Wrapf(ErrInvalidConfig, "access_token_ttl must be positive")
	}

	return nil
}
