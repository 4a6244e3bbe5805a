// Package connect provides Connect RPC service implementations.
package connect

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// jsonCodec encodes messages as plain JSON. It replaces connect's protobuf
// JSON codec so messages can be ordinary Go structs.
type jsonCodec struct{}

// Codec is the message codec shared by the playback handler and clients.
var Codec = jsonCodec{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal %T", msg)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return errors.Wrapf(err, "failed to unmarshal %T", msg)
	}
	return nil
}
