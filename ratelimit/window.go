package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/SeanMkhabela/stackgen-backend/cache"
)

// cacheWindow 基于缓存门面的固定窗口计数器。
// 读改写不是原子操作，并发下计数是近似值；窗口键随时间滚动，
// 过期靠 TTL 自然回收。
type cacheWindow struct {
	cache cache.Cache
}

func newCacheWindow(c cache.Cache) *cacheWindow {
	return &cacheWindow{cache: c}
}

// allow 在 key 的当前窗口内计数一次。
// 缓存中途失败时放行：限流宁可漏放，不能把好请求挡在门外。
func (w *cacheWindow) allow(ctx context.Context, key string, limit Limit) bool {
	windowIdx := time.Now().UnixNano() / int64(limit.Window)
	cacheKey := fmt.Sprintf("ratelimit:%s:%d", key, windowIdx)

	count := 0
	if v, ok := w.cache.Get(ctx, cacheKey); ok {
		if n, err := strconv.Atoi(v.Text()); err == nil {
			count = n
		}
	}

	if count >= limit.Requests {
		return false
	}

	w.cache.Set(ctx, cacheKey, cache.Text(strconv.Itoa(count+1)), limit.Window)
	return true
}
