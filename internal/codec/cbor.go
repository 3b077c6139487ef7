package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

type cborCodec struct {
	em cbor.EncMode
	dm cbor.DecMode
}

// NewCBOR returns the default codec.
// Maps decoded into `any` become map[string]any so documents can be inspected without
// knowing their entity type.
func NewCBOR() Codec {
	em, err := cbor.EncOptions{
		Time: cbor.TimeRFC3339Nano,
		Sort: cbor.SortCanonical,
	}.EncMode()
	if err != nil {
		panic(err)
	}

	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}

	return &cborCodec{em: em, dm: dm}
}

func (c *cborCodec) Name() string {
	return NameCBOR
}

func (c *cborCodec) Marshal(v any) ([]byte, error) {
	return c.em.Marshal(v)
}

func (c *cborCodec) NewEncoder(w io.Writer) Encoder {
	return c.em.NewEncoder(w)
}

func (c *cborCodec) Unmarshal(data []byte, dst any) error {
	return c.dm.Unmarshal(data, dst)
}

func (c *cborCodec) NewDecoder(r io.Reader) Decoder {
	return c.dm.NewDecoder(r)
}
