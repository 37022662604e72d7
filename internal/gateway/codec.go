package gateway

import (
	"connectrpc.com/connect"
	"github.com/bytedance/sonic"
)

// jsonCodec lets Connect carry plain Go structs. It is registered under the
// name "json", replacing the protobuf-only JSON codec.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return sonic.ConfigStd.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return sonic.ConfigStd.Unmarshal(data, v)
}

// WithJSONCodec is required on both ends of every collabspace service.
func WithJSONCodec() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
