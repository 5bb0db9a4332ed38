// Package jobs 实现异步代码生成任务队列。
//
// 任务记录经 msgpack 编码后发布到 NATS 主题，由队列组 worker 消费；
// 任务状态写入缓存门面（`job:<id>`，1 小时过期），轮询接口只读缓存，
// 永远不回源队列。队列对本包只是不透明记录的出入口。
package jobs

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Status 任务状态
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Job 任务记录，经 msgpack 在队列与缓存间往返
type Job struct {
	ID         string    `msgpack:"id" json:"id"`
	StackID    string    `msgpack:"stack_id" json:"stack_id"`
	Owner      string    `msgpack:"owner" json:"owner"`
	Status     Status    `msgpack:"status" json:"status"`
	EnqueuedAt time.Time `msgpack:"enqueued_at" json:"enqueued_at"`
}

// encode 序列化任务记录
func (j *Job) encode() ([]byte, error) {
	return msgpack.Marshal(j)
}

// decodeJob 反序列化任务记录
func decodeJob(data []byte) (*Job, error) {
	var j Job
	if err := msgpack.Unmarshal(data, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// statusKey 任务状态的缓存键
func statusKey(id string) string {
	return "job:" + id
}
