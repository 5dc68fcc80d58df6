package cbor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type update struct {
	Hashes [][]byte
	Seq    uint64
}

func TestDeterministic(t *testing.T) {
	a, err := Marshal(map[string]int{"b": 2, "a": 1})
	require.NoError(t, err)
	b, err := Marshal(map[string]int{"a": 1, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, Wellformed(a))
}

func TestRoundTrip(t *testing.T) {
	in := update{Hashes: [][]byte{{1, 2}, {3}}, Seq: 7}
	bts, err := Marshal(in)
	require.NoError(t, err)
	var out update
	require.NoError(t, Unmarshal(bts, &out))
	assert.Equal(t, in, out)
}

func TestRejectDuplicateKeys(t *testing.T) {
	// {"a": 1, "a": 2}
	var out map[string]int
	require.Error(t, Unmarshal([]byte{0xa2, 0x61, 0x61, 0x01, 0x61, 0x61, 0x02}, &out))
	assert.False(t, Wellformed([]byte{0xa2, 0x61}))
}
