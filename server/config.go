package server

import "time"

// Config HTTP 服务配置
type Config struct {
	// Addr 监听地址，默认 ":8080"
	Addr string `mapstructure:"addr"`

	// Mode gin 运行模式: debug / release / test，默认 release
	Mode string `mapstructure:"mode"`

	// ShutdownTimeout 优雅关闭等待时长，默认 10s
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// RateLimitRequests / RateLimitWindow 全局限流规则，默认 120 次/分钟
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
}

// setDefaults 设置默认值
func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.Mode == "" {
		c.Mode = "release"
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.RateLimitRequests == 0 {
		c.RateLimitRequests = 120
	}
	if c.RateLimitWindow == 0 {
		c.RateLimitWindow = time.Minute
	}
}
