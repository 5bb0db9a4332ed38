package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeanMkhabela/stackgen-backend/testkit"
)

// TestRedisFacadeIntegration 测试 Redis 门面完整读写（需要真实 Redis）
//
//	STACKGEN_TEST_REDIS_ADDR=localhost:6379 go test ./cache/...
func TestRedisFacadeIntegration(t *testing.T) {
	conn := testkit.NewRedisConnector(t)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	c, err := New(&Config{Prefix: "stackgen-test:"}, WithRedisConnector(conn))
	require.NoError(t, err)
	require.NoError(t, c.Connect(ctx))
	require.True(t, c.IsAvailable())

	payload := []byte{0x50, 0x4b, 0x03, 0x04, 0x00, 0xff}
	require.True(t, c.Set(ctx, "it:binary", Binary(payload), time.Minute))

	v, ok := c.Get(ctx, "it:binary")
	require.True(t, ok)
	assert.Equal(t, KindBinary, v.Kind)
	assert.Equal(t, payload, v.Bytes())

	assert.True(t, c.Delete(ctx, "it:binary"))
	_, ok = c.Get(ctx, "it:binary")
	assert.False(t, ok)
}
