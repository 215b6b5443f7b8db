package generation

import (
	"fmt"
)

// wireCodec moves Request and Answer values across a gRPC stream in
// protobuf binary form. It reports itself as "proto" so the content type
// matches what the service expects.
type wireCodec struct{}

func (wireCodec) Name() string {
	return "proto"
}

func (wireCodec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case *Request:
		return MarshalRequest(m)
	case *Answer:
		return MarshalAnswer(m)
	default:
		return nil, fmt.Errorf("generation codec: cannot marshal %T", v)
	}
}

func (wireCodec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case *Request:
		*m = Request{}
		return consumeRequest(data, m)
	case *Answer:
		*m = Answer{}
		return consumeAnswer(data, m)
	default:
		return fmt.Errorf("generation codec: cannot unmarshal into %T", v)
	}
}
