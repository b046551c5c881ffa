package cachedquery

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
)

// Codec converts query values to and from their stored form.
type Codec[T any] interface {
	Marshal(value T) ([]byte, error)
	Unmarshal(payload []byte) (T, error)
}

// JSONCodec stores values as JSON. It is the default codec.
type JSONCodec[T any] struct{}

// Marshal encodes value as JSON.
func (JSONCodec[T]) Marshal(value T) ([]byte, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode json payload: %w", err)
	}
	return payload, nil
}

// Unmarshal decodes a JSON payload.
func (JSONCodec[T]) Unmarshal(payload []byte) (T, error) {
	var value T
	if err := json.Unmarshal(payload, &value); err != nil {
		return value, fmt.Errorf("decode json payload: %w", err)
	}
	return value, nil
}

// ProtoCodec stores protobuf messages in wire format. New allocates the empty
// message that Unmarshal fills.
type ProtoCodec[T proto.Message] struct {
	New func() T
}

// Marshal encodes value in protobuf wire format.
func (c ProtoCodec[T]) Marshal(value T) ([]byte, error) {
	payload, err := proto.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode proto payload: %w", err)
	}
	return payload, nil
}

// Unmarshal decodes a protobuf payload into a message from New.
func (c ProtoCodec[T]) Unmarshal(payload []byte) (T, error) {
	var zero T
	if c.New == nil {
		return zero, fmt.Errorf("proto codec message constructor is required")
	}
	msg := c.New()
	if err := proto.Unmarshal(payload, msg); err != nil {
		return zero, fmt.Errorf("decode proto payload: %w", err)
	}
	return msg, nil
}
