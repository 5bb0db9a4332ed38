package jobs

import (
	"sync"

	"github.com/SeanMkhabela/stackgen-backend/cache"
)

// memoryQueue 进程内队列。
// 开发环境没有 broker 时的替代传输：投递异步、至多一次、不跨进程。
type memoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func([]byte)
	next     map[string]int
}

func newMemoryQueue() *memoryQueue {
	return &memoryQueue{
		handlers: map[string][]func([]byte){},
		next:     map[string]int{},
	}
}

func (q *memoryQueue) publish(subject string, data []byte) error {
	q.mu.Lock()
	handlers := q.handlers[subject]
	var h func([]byte)
	if len(handlers) > 0 {
		// 队列组语义：一条消息只投给一个消费者，轮询分发
		h = handlers[q.next[subject]%len(handlers)]
		q.next[subject]++
	}
	q.mu.Unlock()

	if h != nil {
		go h(data)
	}
	return nil
}

func (q *memoryQueue) queueSubscribe(subject, group string, cb func(data []byte)) (subscription, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[subject] = append(q.handlers[subject], cb)
	return memorySubscription{}, nil
}

type memorySubscription struct{}

func (memorySubscription) Unsubscribe() error { return nil }

// NewInProcess 创建进程内任务服务，不依赖 NATS。
// 仅面向开发与测试环境，消息不持久也不跨进程。
func NewInProcess(cfg *Config, c cache.Cache, opts ...Option) (*Service, error) {
	if c == nil {
		return nil, errCacheNil
	}
	return newService(cfg, newMemoryQueue(), c, opts...)
}
