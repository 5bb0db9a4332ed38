package breaker

import (
	"sync"
	"time"
)

// outcome 单次执行的归类结果
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeFailure
	outcomeTimeout
	outcomeRejection
	outcomeFallback
)

// bucket 窗口中的一个时间片
type bucket struct {
	start      time.Time
	successes  uint64
	failures   uint64
	timeouts   uint64
	rejections uint64
	fallbacks  uint64
}

func (b *bucket) reset(start time.Time) {
	*b = bucket{start: start}
}

// window 时间分桶滑动窗口。
// 环形缓冲区，每个桶覆盖 WindowDuration/WindowBuckets 的时间片；
// 过期的桶在写入或读取时惰性清零。
type window struct {
	buckets    []bucket
	bucketSpan time.Duration
	mu         sync.Mutex
	now        func() time.Time // 可注入，便于测试
}

func newWindow(duration time.Duration, count int, now func() time.Time) *window {
	if now == nil {
		now = time.Now
	}
	w := &window{
		buckets:    make([]bucket, count),
		bucketSpan: duration / time.Duration(count),
		now:        now,
	}
	start := now()
	for i := range w.buckets {
		w.buckets[i].start = start
	}
	return w
}

// record 将一次结果计入当前时间片
func (w *window) record(o outcome) {
	w.mu.Lock()
	defer w.mu.Unlock()

	b := w.current()
	switch o {
	case outcomeSuccess:
		b.successes++
	case outcomeFailure:
		b.failures++
	case outcomeTimeout:
		b.timeouts++
	case outcomeRejection:
		b.rejections++
	case outcomeFallback:
		b.fallbacks++
	}
}

// snapshot 聚合窗口内所有未过期桶的计数
func (w *window) snapshot() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	total := w.bucketSpan * time.Duration(len(w.buckets))

	var s Stats
	for i := range w.buckets {
		b := &w.buckets[i]
		if now.Sub(b.start) >= total {
			continue // 过期桶不计入
		}
		s.Successes += b.successes
		s.Failures += b.failures
		s.Timeouts += b.timeouts
		s.Rejections += b.rejections
		s.Fallbacks += b.fallbacks
	}
	return s
}

// reset 清空整个窗口
func (w *window) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := w.now()
	for i := range w.buckets {
		w.buckets[i].reset(start)
	}
}

// current 返回覆盖当前时刻的桶，必要时将过期的桶轮转复用。
// 调用方必须持有 w.mu。
func (w *window) current() *bucket {
	now := w.now()
	idx := int(now.UnixNano()/int64(w.bucketSpan)) % len(w.buckets)
	b := &w.buckets[idx]

	// 该槽位的时间片已经轮转过，清零复用
	if now.Sub(b.start) >= w.bucketSpan {
		b.reset(now.Truncate(w.bucketSpan))
	}
	return b
}
