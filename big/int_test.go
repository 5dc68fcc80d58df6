package big

import (
	"crypto/rand"
	"testing"

	"github.com/go-errors/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandRange(t *testing.T) {
	min, max := NewInt(10), NewInt(12)
	for i := 0; i < 50; i++ {
		r, err := RandRange(rand.Reader, min, max)
		require.NoError(t, err)
		assert.True(t, r.Cmp(min) >= 0 && r.Cmp(max) < 0)
	}
	_, err := RandRange(rand.Reader, max, min)
	require.Error(t, err)
}

func TestPackMagnitudes(t *testing.T) {
	s := "8931748931759284679376938475395713602744853768923750102"
	large, ok := new(Int).SetString(s, 10)
	require.True(t, ok)

	buf := PackMagnitudes(NewInt(0), NewInt(42), large)
	buf = append(buf, 0xAB)
	values, rest, err := UnpackMagnitudes(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAB}, rest)
	assert.Zero(t, values[0].Sign())
	assert.Equal(t, int64(42), values[1].Int64())
	assert.Equal(t, s, values[2].String())
}

func TestPackSignedMixed(t *testing.T) {
	in := []*Int{NewInt(-5), NewInt(7), NewInt(0), NewInt(-123456789)}
	buf, err := PackSigned(in...)
	require.NoError(t, err)
	assert.Equal(t, byte(0x09), buf[0])

	out, rest, err := UnpackSigned(buf, len(in))
	require.NoError(t, err)
	assert.Empty(t, rest)
	for i := range in {
		assert.Zero(t, in[i].Cmp(out[i]), "value %d", i)
	}
}

func TestPackSignedUniform(t *testing.T) {
	negative := []*Int{NewInt(-1), NewInt(-2), NewInt(-3), NewInt(-4), NewInt(-5), NewInt(-6), NewInt(-7), NewInt(-8)}
	buf, err := PackSigned(negative...)
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), buf[0])
	out, _, err := UnpackSigned(buf, len(negative))
	require.NoError(t, err)
	for i := range negative {
		assert.Zero(t, negative[i].Cmp(out[i]))
	}

	positive := []*Int{NewInt(1), NewInt(2), NewInt(3)}
	buf, err = PackSigned(positive...)
	require.NoError(t, err)
	assert.Equal(t, byte(0), buf[0])
	out, _, err = UnpackSigned(buf, len(positive))
	require.NoError(t, err)
	for i := range positive {
		assert.Zero(t, positive[i].Cmp(out[i]))
	}

	_, err = PackSigned(append(negative, NewInt(9))...)
	require.Error(t, err)
}

func TestUnpackTruncated(t *testing.T) {
	buf := PackMagnitudes(NewInt(1000), NewInt(2000))
	_, _, err := UnpackMagnitudes(buf[:len(buf)-1], 2)
	require.True(t, errors.Is(err, ErrMalformed))
	_, _, err = UnpackMagnitudes(buf, 3)
	require.True(t, errors.Is(err, ErrMalformed))
	_, _, err = UnpackSigned(nil, 1)
	require.True(t, errors.Is(err, ErrMalformed))
}
