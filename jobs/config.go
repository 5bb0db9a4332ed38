package jobs

import "time"

// Config 任务队列配置
type Config struct {
	// Subject 发布/订阅的 NATS 主题，默认 stackgen.jobs
	Subject string `mapstructure:"subject"`

	// QueueGroup worker 队列组名，同组内一条消息只投递一次
	QueueGroup string `mapstructure:"queue_group"`

	// StatusTTL 状态缓存过期时间，默认 1h
	StatusTTL time.Duration `mapstructure:"status_ttl"`

	// WorkDelay 模拟生成耗时，默认 2s
	WorkDelay time.Duration `mapstructure:"work_delay"`
}

// setDefaults 设置默认值
func (c *Config) setDefaults() {
	if c.Subject == "" {
		c.Subject = "stackgen.jobs"
	}
	if c.QueueGroup == "" {
		c.QueueGroup = "stackgen-workers"
	}
	if c.StatusTTL == 0 {
		c.StatusTTL = time.Hour
	}
	if c.WorkDelay == 0 {
		c.WorkDelay = 2 * time.Second
	}
}
