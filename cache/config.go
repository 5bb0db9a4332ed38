package cache

import "time"

// Config 缓存门面配置
type Config struct {
	// Mode 缓存模式: "standalone" | "distributed" (默认 "distributed")
	Mode string `json:"mode" yaml:"mode"`

	// Prefix 全局 Key 前缀 (e.g., "stackgen:")
	Prefix string `json:"prefix" yaml:"prefix"`

	// ConnectMaxAttempts 连接最大尝试次数（默认：5）
	// 耗尽后门面在进程生命周期内永久不可用
	ConnectMaxAttempts int `json:"connect_max_attempts" yaml:"connect_max_attempts"`

	// ConnectBaseBackoff 首次重试前的等待时间，之后指数增长（默认：500ms）
	ConnectBaseBackoff time.Duration `json:"connect_base_backoff" yaml:"connect_base_backoff"`

	// ConnectMaxBackoff 单次退避上限（默认：8s）
	ConnectMaxBackoff time.Duration `json:"connect_max_backoff" yaml:"connect_max_backoff"`

	// Standalone 单机缓存配置
	Standalone *StandaloneConfig `json:"standalone" yaml:"standalone"`
}

// setDefaults 填充默认值
func (c *Config) setDefaults() {
	if c.ConnectMaxAttempts <= 0 {
		c.ConnectMaxAttempts = 5
	}
	if c.ConnectBaseBackoff <= 0 {
		c.ConnectBaseBackoff = 500 * time.Millisecond
	}
	if c.ConnectMaxBackoff <= 0 {
		c.ConnectMaxBackoff = 8 * time.Second
	}
}

// StandaloneConfig 单机缓存配置
type StandaloneConfig struct {
	// Capacity 缓存最大容量（条目数，默认：10000）
	Capacity int `json:"capacity" yaml:"capacity"`
}
