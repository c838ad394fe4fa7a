package grpcserver

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content subtype both ends of the animehub services use.
const CodecName = "json"

// jsonCodec carries plain Go structs as JSON, so the services need no
// generated protobuf types.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
