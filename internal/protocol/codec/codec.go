package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/palemoky/call-break/internal/protocol"
)

// Format 线路编码格式
type Format string

const (
	FormatJSON     Format = "json"
	FormatProtobuf Format = "protobuf"
)

// ErrUnknownFormat 未知编码格式
var ErrUnknownFormat = errors.New("unknown codec format")

// ErrMissingType 消息缺少类型字段
var ErrMissingType = errors.New("message type is missing")

// Codec 消息编解码器
type Codec interface {
	Format() Format
	// Binary 为 true 时应使用 websocket 二进制帧
	Binary() bool
	Encode(m *protocol.Message) ([]byte, error)
	// Decode 返回的消息使用完毕后应调用 PutMessage
	Decode(data []byte) (*protocol.Message, error)
}

// New 根据格式名称创建编解码器，空字符串使用 JSON
func New(format string) (Codec, error) {
	switch Format(format) {
	case "", FormatJSON:
		return JSONCodec{}, nil
	case FormatProtobuf:
		return ProtoCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// JSONCodec 文本 JSON 编码
type JSONCodec struct{}

func (JSONCodec) Format() Format { return FormatJSON }
func (JSONCodec) Binary() bool   { return false }

func (JSONCodec) Encode(m *protocol.Message) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := json.NewEncoder(buf).Encode(m); err != nil {
		return nil, err
	}
	// json.Encoder 会追加换行
	out := make([]byte, buf.Len()-1)
	copy(out, buf.Bytes())
	return out, nil
}

func (JSONCodec) Decode(data []byte) (*protocol.Message, error) {
	msg := GetMessage()
	if err := json.Unmarshal(data, msg); err != nil {
		PutMessage(msg)
		return nil, err
	}
	if msg.Type == "" {
		PutMessage(msg)
		return nil, ErrMissingType
	}
	return msg, nil
}

// ProtoCodec 二进制 protobuf 编码
// 信封为 google.protobuf.Struct: {type: string, payload: Value}
type ProtoCodec struct{}

func (ProtoCodec) Format() Format { return FormatProtobuf }
func (ProtoCodec) Binary() bool   { return true }

func (ProtoCodec) Encode(m *protocol.Message) ([]byte, error) {
	env := GetEnvelope()
	defer PutEnvelope(env)

	env.Fields = map[string]*structpb.Value{
		"type": structpb.NewStringValue(string(m.Type)),
	}
	if len(m.Payload) > 0 {
		payload := &structpb.Value{}
		if err := payload.UnmarshalJSON(m.Payload); err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		env.Fields["payload"] = payload
	}
	return proto.Marshal(env)
}

func (ProtoCodec) Decode(data []byte) (*protocol.Message, error) {
	env := GetEnvelope()
	defer PutEnvelope(env)

	if err := proto.Unmarshal(data, env); err != nil {
		return nil, err
	}
	typ := env.GetFields()["type"].GetStringValue()
	if typ == "" {
		return nil, ErrMissingType
	}

	msg := GetMessage()
	msg.Type = protocol.MessageType(typ)
	if payload, ok := env.GetFields()["payload"]; ok {
		raw, err := payload.MarshalJSON()
		if err != nil {
			PutMessage(msg)
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		msg.Payload = raw
	}
	return msg, nil
}
