package cache

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeanMkhabela/stackgen-backend/xerrors"
)

// newTestCache 返回已连接的单机缓存门面
func newTestCache(t *testing.T) Cache {
	t.Helper()
	c, err := NewStandalone(nil)
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background()))
	return c
}

// TestFacadeUnavailableBeforeConnect 测试连接前门面不可用且不报错
func TestFacadeUnavailableBeforeConnect(t *testing.T) {
	c, err := NewStandalone(nil)
	require.NoError(t, err)
	ctx := context.Background()

	assert.False(t, c.IsAvailable())

	// 不可用时所有操作安静失败，不 panic 不返回错误
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.False(t, c.Set(ctx, "k", Text("v"), time.Minute))
	assert.False(t, c.Delete(ctx, "k"))
}

// TestFacadeSetGetDelete 测试基本读写删
func TestFacadeSetGetDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.True(t, c.Set(ctx, "greeting", Text("hello"), time.Minute))

	v, ok := c.Get(ctx, "greeting")
	require.True(t, ok)
	assert.Equal(t, KindText, v.Kind)
	assert.Equal(t, "hello", v.Text())

	assert.True(t, c.Delete(ctx, "greeting"))
	_, ok = c.Get(ctx, "greeting")
	assert.False(t, ok)

	// 删除不存在的键返回 false
	assert.False(t, c.Delete(ctx, "never-set"))
}

// TestBinaryRoundTrip 测试二进制负载无损往返（含零字节与非 UTF-8 序列）
func TestBinaryRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	payload := []byte{0x00, 0xff, 0x50, 0x4b, 0x03, 0x04, 0x80, 0x00, 0xfe}
	require.True(t, c.Set(ctx, "archive", Binary(payload), time.Minute))

	v, ok := c.Get(ctx, "archive")
	require.True(t, ok)
	assert.Equal(t, KindBinary, v.Kind)
	assert.True(t, bytes.Equal(payload, v.Bytes()), "binary payload must round-trip losslessly")
}

// TestJSONEnvelope 测试 JSON 信封编解码
func TestJSONEnvelope(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	type job struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}

	v, err := JSON(job{ID: "j1", Status: "pending"})
	require.NoError(t, err)
	require.True(t, c.Set(ctx, "job:j1", v, time.Hour))

	got, ok := c.Get(ctx, "job:j1")
	require.True(t, ok)
	assert.Equal(t, KindJSON, got.Kind)

	var decoded job
	require.NoError(t, got.Decode(&decoded))
	assert.Equal(t, "j1", decoded.ID)
	assert.Equal(t, "pending", decoded.Status)

	// 非 JSON 信封拒绝 Decode
	assert.Error(t, Text("plain").Decode(&decoded))
}

// TestEnvelopeKindPreserved 测试类型标签与负载原子存储
func TestEnvelopeKindPreserved(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	// 同一个键依次写入不同类型，读取永远得到最后写入的完整信封
	require.True(t, c.Set(ctx, "k", Text("text"), time.Minute))
	require.True(t, c.Set(ctx, "k", Binary([]byte{1, 2, 3}), time.Minute))

	v, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, KindBinary, v.Kind)
	assert.Equal(t, []byte{1, 2, 3}, v.Bytes())
}

// TestStandaloneTTL 测试写入过期
func TestStandaloneTTL(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.True(t, c.Set(ctx, "ephemeral", Text("v"), 30*time.Millisecond))

	_, ok := c.Get(ctx, "ephemeral")
	assert.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get(ctx, "ephemeral")
	assert.False(t, ok, "value must expire after its TTL")
}

// failingDriver 所有操作都失败的驱动，模拟存储故障
type failingDriver struct {
	connectErr error
	calls      int
}

func (d *failingDriver) connect(ctx context.Context) error {
	d.calls++
	return d.connectErr
}

func (d *failingDriver) get(ctx context.Context, key string) ([]byte, error) {
	return nil, xerrors.New("storage down")
}

func (d *failingDriver) set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return xerrors.New("storage down")
}

func (d *failingDriver) delete(ctx context.Context, key string) (bool, error) {
	return false, xerrors.New("storage down")
}

func (d *failingDriver) close() error { return nil }

// newFacadeWithDriver 用指定驱动构造门面（测试辅助）
func newFacadeWithDriver(t *testing.T, d driver, cfg *Config) Cache {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()

	opt := options{}
	opt.applyDefaults()

	c, err := newFacade(cfg, d, &opt)
	require.NoError(t, err)
	return c
}

// TestConnectRetriesThenPermanentDisable 测试重试耗尽后进程内永久禁用
func TestConnectRetriesThenPermanentDisable(t *testing.T) {
	d := &failingDriver{connectErr: xerrors.New("connection refused")}
	c := newFacadeWithDriver(t, d, &Config{
		ConnectMaxAttempts: 3,
		ConnectBaseBackoff: time.Millisecond,
		ConnectMaxBackoff:  2 * time.Millisecond,
	})
	ctx := context.Background()

	err := c.Connect(ctx)
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, ErrDisabled))
	assert.Equal(t, 3, d.calls, "connect must be attempted exactly max times")
	assert.False(t, c.IsAvailable())

	// 后续 Connect 直接拒绝，不再触碰驱动
	err = c.Connect(ctx)
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Equal(t, 3, d.calls)

	// 禁用后操作安静失败
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.False(t, c.Set(ctx, "k", Text("v"), time.Minute))
}

// TestConnectCancelDoesNotDisable 测试调用方取消不触发永久禁用
func TestConnectCancelDoesNotDisable(t *testing.T) {
	d := &failingDriver{connectErr: xerrors.New("connection refused")}
	c := newFacadeWithDriver(t, d, &Config{
		ConnectMaxAttempts: 5,
		ConnectBaseBackoff: time.Hour, // 退避足够长，确保取消先到
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := c.Connect(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// 没有被禁用，之后还可以重试
	d.connectErr = nil
	require.NoError(t, c.Connect(context.Background()))
	assert.True(t, c.IsAvailable())
}

// TestOperationFailuresSwallowed 测试底层失败被吞掉且表现为未命中
func TestOperationFailuresSwallowed(t *testing.T) {
	d := &failingDriver{}
	c := newFacadeWithDriver(t, d, nil)
	ctx := context.Background()

	require.NoError(t, c.Connect(ctx))
	require.True(t, c.IsAvailable())

	// 每个操作都失败，但调用方看不到任何 error
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.False(t, c.Set(ctx, "k", Text("v"), time.Minute))
	assert.False(t, c.Delete(ctx, "k"))
}

// TestValueEncodeDecode 测试信封编码层
func TestValueEncodeDecode(t *testing.T) {
	original := Binary([]byte{0xde, 0xad, 0xbe, 0xef})

	data, err := original.encode()
	require.NoError(t, err)

	decoded, err := decodeValue(data)
	require.NoError(t, err)
	assert.Equal(t, original.Kind, decoded.Kind)
	assert.Equal(t, original.Payload, decoded.Payload)

	// 损坏的数据解码失败
	_, err = decodeValue([]byte("not msgpack at all"))
	assert.Error(t, err)
}
