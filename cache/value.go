package cache

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/SeanMkhabela/stackgen-backend/xerrors"
)

// Kind 信封值的类型标签
type Kind uint8

const (
	// KindText UTF-8 文本
	KindText Kind = iota + 1
	// KindBinary 不透明二进制（如 zip 归档）
	KindBinary
	// KindJSON JSON 编码的结构化数据
	KindJSON
)

// String 返回类型标签的字符串表示
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBinary:
		return "binary"
	case KindJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Value 带类型标签的缓存信封。
// 类型与负载作为一个整体存储在单个键下，不依赖任何旁路标记键。
type Value struct {
	Kind    Kind   `msgpack:"k"`
	Payload []byte `msgpack:"p"`
}

// Text 构造文本信封
func Text(s string) *Value {
	return &Value{Kind: KindText, Payload: []byte(s)}
}

// Binary 构造二进制信封
func Binary(b []byte) *Value {
	return &Value{Kind: KindBinary, Payload: b}
}

// JSON 构造 JSON 信封，v 被 JSON 序列化后存入负载
func JSON(v any) (*Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, xerrors.Wrap(err, "cache: failed to encode json value")
	}
	return &Value{Kind: KindJSON, Payload: data}, nil
}

// Text 以文本形式返回负载
func (v *Value) Text() string {
	return string(v.Payload)
}

// Bytes 返回原始负载
func (v *Value) Bytes() []byte {
	return v.Payload
}

// Decode 将 JSON 负载反序列化到 dest。仅对 KindJSON 有效。
func (v *Value) Decode(dest any) error {
	if v.Kind != KindJSON {
		return xerrors.Wrapf(xerrors.New("cache: value is not json"), "kind is %s", v.Kind)
	}
	return json.Unmarshal(v.Payload, dest)
}

// encode 将信封编码为存储字节
func (v *Value) encode() ([]byte, error) {
	if v.Kind < KindText || v.Kind > KindJSON {
		return nil, xerrors.Wrapf(xerrors.New("cache: invalid value kind"), "%d", v.Kind)
	}
	return msgpack.Marshal(v)
}

// decodeValue 从存储字节还原信封
func decodeValue(data []byte) (*Value, error) {
	var v Value
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return nil, xerrors.Wrap(err, "cache: failed to decode envelope")
	}
	if v.Kind < KindText || v.Kind > KindJSON {
		return nil, xerrors.Wrapf(xerrors.New("cache: invalid value kind"), "%d", v.Kind)
	}
	return &v, nil
}
