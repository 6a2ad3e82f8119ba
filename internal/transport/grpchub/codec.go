package grpchub

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// codecName is registered with grpc's encoding package and forced on both
// the client and server side, letting the Hub's wire envelopes travel as
// plain JSON over a standard gRPC bidirectional stream without requiring a
// protoc-generated message set.
const codecName = "relayjson"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return codecName }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	msg, ok := v.(*envelope)
	if !ok {
		return nil, fmt.Errorf("grpchub: codec cannot marshal %T", v)
	}
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	msg, ok := v.(*envelope)
	if !ok {
		return fmt.Errorf("grpchub: codec cannot unmarshal into %T", v)
	}
	return json.Unmarshal(data, msg)
}
