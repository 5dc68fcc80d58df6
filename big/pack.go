package big

import (
	"encoding/binary"

	"github.com/go-errors/errors"
)

// LengthPrefixSize is the size of the big-endian length that precedes every packed field.
const LengthPrefixSize = 4

// MaxSignedValues is the number of integers whose signs fit in the sign byte of PackSigned.
const MaxSignedValues = 8

var ErrMalformed = errors.New("malformed integer packing")

// AppendPrefixed appends field to buf, preceded by its 4-byte big-endian length.
func AppendPrefixed(buf, field []byte) []byte {
	var l [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(field)))
	buf = append(buf, l[:]...)
	return append(buf, field...)
}

// ReadPrefixed splits off one length-prefixed field and returns it together with the
// remainder of buf.
func ReadPrefixed(buf []byte) (field, rest []byte, err error) {
	if len(buf) < LengthPrefixSize {
		return nil, nil, ErrMalformed
	}
	l := binary.BigEndian.Uint32(buf)
	buf = buf[LengthPrefixSize:]
	if uint64(len(buf)) < uint64(l) {
		return nil, nil, ErrMalformed
	}
	return buf[:l], buf[l:], nil
}

// PackMagnitudes writes the absolute values of the given integers as length-prefixed
// big-endian byte strings.
func PackMagnitudes(values ...*Int) []byte {
	var buf []byte
	for _, v := range values {
		buf = AppendPrefixed(buf, v.Bytes())
	}
	return buf
}

// UnpackMagnitudes reads exactly n length-prefixed magnitudes from buf.
func UnpackMagnitudes(buf []byte, n int) ([]*Int, []byte, error) {
	values := make([]*Int, n)
	for i := 0; i < n; i++ {
		field, rest, err := ReadPrefixed(buf)
		if err != nil {
			return nil, nil, err
		}
		values[i] = new(Int).SetBytes(field)
		buf = rest
	}
	return values, buf, nil
}

// PackSigned packs up to MaxSignedValues integers as a sign byte followed by their
// length-prefixed magnitudes. The sign byte is built by walking the values in reverse and
// shifting in one bit per value (1 for negative), so values[0] ends up in the least
// significant bit.
func PackSigned(values ...*Int) ([]byte, error) {
	if len(values) > MaxSignedValues {
		return nil, errors.Errorf("cannot pack signs of %d values into one byte", len(values))
	}
	var signs byte
	for i := len(values) - 1; i >= 0; i-- {
		signs <<= 1
		if values[i].Sign() < 0 {
			signs |= 1
		}
	}
	return append([]byte{signs}, PackMagnitudes(values...)...), nil
}

// UnpackSigned is the inverse of PackSigned: it consumes the sign byte and exactly n
// magnitudes and returns the unconsumed remainder for the caller to continue parsing.
func UnpackSigned(buf []byte, n int) ([]*Int, []byte, error) {
	if n > MaxSignedValues || len(buf) < 1 {
		return nil, nil, ErrMalformed
	}
	signs := buf[0]
	values, rest, err := UnpackMagnitudes(buf[1:], n)
	if err != nil {
		return nil, nil, err
	}
	for i, v := range values {
		if signs&(1<<uint(i)) != 0 {
			v.Neg(v)
		}
	}
	return values, rest, nil
}
