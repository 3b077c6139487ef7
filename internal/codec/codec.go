// Package codec holds the wire encodings spoken between livecache clients and the entity
// service. CBOR is the default; JSON is available for debugging with plain-text tooling.
package codec

import (
	"fmt"
	"io"
)

type Encoder interface {
	Encode(v any) error
}

type Decoder interface {
	Decode(v any) error
}

type Marshaler interface {
	Marshal(v any) ([]byte, error)
	NewEncoder(w io.Writer) Encoder
}

type Unmarshaler interface {
	Unmarshal(data []byte, dst any) error
	NewDecoder(r io.Reader) Decoder
}

// Codec is a Marshaler and Unmarshaler pair for one encoding.
type Codec interface {
	Marshaler
	Unmarshaler
	Name() string
}

const (
	NameCBOR = "cbor"
	NameJSON = "json"
)

// ByName returns the codec registered under name.
func ByName(name string) (Codec, error) {
	switch name {
	case NameCBOR, "":
		return NewCBOR(), nil
	case NameJSON:
		return NewJSON(), nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// RawMessage is an encoded value whose decoding is deferred.
// It keeps the bytes of whichever codec produced it, so it must be decoded with that same codec.
type RawMessage []byte

var (
	cborNull = []byte{0xf6}
	jsonNull = []byte("null")
)

func (m RawMessage) MarshalCBOR() ([]byte, error) {
	if len(m) == 0 {
		return cborNull, nil
	}
	return m, nil
}

func (m *RawMessage) UnmarshalCBOR(data []byte) error {
	if m == nil {
		return fmt.Errorf("codec.RawMessage: UnmarshalCBOR on nil pointer")
	}
	*m = append((*m)[0:0], data...)
	return nil
}

func (m RawMessage) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return jsonNull, nil
	}
	return m, nil
}

func (m *RawMessage) UnmarshalJSON(data []byte) error {
	if m == nil {
		return fmt.Errorf("codec.RawMessage: UnmarshalJSON on nil pointer")
	}
	*m = append((*m)[0:0], data...)
	return nil
}

// IsNull reports whether the message is empty or an encoded null in either codec.
func (m RawMessage) IsNull() bool {
	if len(m) == 0 {
		return true
	}
	return string(m) == string(cborNull) || string(m) == string(jsonNull)
}
