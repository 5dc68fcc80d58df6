// Package cbor encodes and decodes the signed revocation updates and stored attestation
// records of the wallet, wrapping github.com/fxamacker/cbor.
//
// Encoding follows Core Deterministic Encoding (RFC 8949 section 4.2.1) so that
// signatures computed over encoded messages are reproducible. The decoder rejects
// duplicate map keys and oversized containers.
package cbor

import (
	"github.com/fxamacker/cbor/v2" // imports as cbor
	"github.com/go-errors/errors"
)

const MaxArrayElements = 1024 * 256
const MaxMapPairs = 1024 * 256

var (
	encOptions = cbor.EncOptions{
		InfConvert:    cbor.InfConvertFloat16,
		IndefLength:   cbor.IndefLengthForbidden,
		NaNConvert:    cbor.NaNConvert7e00,
		ShortestFloat: cbor.ShortestFloat16,
		Sort:          cbor.SortCoreDeterministic,
		TagsMd:        cbor.TagsForbidden,
	}

	decOptions = cbor.DecOptions{
		IndefLength:      cbor.IndefLengthForbidden,
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxArrayElements: MaxArrayElements,
		MaxMapPairs:      MaxMapPairs,
		TagsMd:           cbor.TagsForbidden,
		TimeTag:          cbor.DecTagIgnored,
		// Unknown fields are tolerated.
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}

	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = encOptions.EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = decOptions.DecMode(); err != nil {
		panic(err)
	}
}

// Marshal encodes src into a CBOR-encoded byte slice.
func Marshal(src interface{}) ([]byte, error) {
	bts, err := encMode.Marshal(src)
	if err != nil {
		return nil, errors.WrapPrefix(err, "cbor encoding failed", 0)
	}
	return bts, nil
}

// Unmarshal decodes CBOR in data into dst.
func Unmarshal(data []byte, dst interface{}) error {
	if err := decMode.Unmarshal(data, dst); err != nil {
		return errors.WrapPrefix(err, "cbor decoding failed", 0)
	}
	return nil
}

// Wellformed reports whether data is a single well-formed CBOR data item.
func Wellformed(data []byte) bool {
	return decMode.Wellformed(data) == nil
}
