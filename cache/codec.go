package cache

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes values stored in the cache.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Codec names accepted by CodecByName.
const (
	CodecMsgpack = "msgpack"
	CodecJSON    = "json"
)

type msgpackCodec struct{}

// NewMsgpackCodec returns the default codec.
func NewMsgpackCodec() Codec { return msgpackCodec{} }

func (msgpackCodec) Name() string                       { return CodecMsgpack }
func (msgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

type jsonCodec struct{}

// NewJSONCodec returns a codec producing human readable entries.
func NewJSONCodec() Codec { return jsonCodec{} }

func (jsonCodec) Name() string                       { return CodecJSON }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// CodecByName resolves a configured codec name. An empty name selects msgpack.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", CodecMsgpack:
		return NewMsgpackCodec(), nil
	case CodecJSON:
		return NewJSONCodec(), nil
	default:
		return nil, fmt.Errorf("unknown cache codec %q", name)
	}
}
