package codec

import (
	"io"

	json "github.com/goccy/go-json"
)

type jsonCodec struct{}

// NewJSON returns a JSON codec backed by goccy/go-json.
func NewJSON() Codec {
	return jsonCodec{}
}

func (jsonCodec) Name() string {
	return NameJSON
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) NewEncoder(w io.Writer) Encoder {
	return json.NewEncoder(w)
}

func (jsonCodec) Unmarshal(data []byte, dst any) error {
	return json.Unmarshal(data, dst)
}

func (jsonCodec) NewDecoder(r io.Reader) Decoder {
	return json.NewDecoder(r)
}
