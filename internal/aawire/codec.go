package aawire

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

// encMode and decMode mirror the canonical, forward-compatible CBOR
// configuration the rest of the corpus uses for its own structured
// messages: canonical sort on encode, indefinite-length items forbidden,
// and a lenient decode that tolerates unknown or duplicate map keys rather
// than failing a session over a field the peer added later.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(err)
	}
}

// Marshal encodes v (normally a struct with `cbor:"N,keyasint"` tags) using
// the package's canonical encode mode.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes data into v using the package's lenient decode mode.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// NewEncoder returns a streaming CBOR encoder over w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a streaming CBOR decoder over r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}
