package boudot

import (
	"testing"

	"github.com/go-errors/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipv8go/wallet/big"
	"github.com/ipv8go/wallet/boneh"
	"github.com/ipv8go/wallet/field"
	"github.com/ipv8go/wallet/internal/common"
)

var (
	testRandom *common.CPRNG
	g, h       *field.Element
)

func init() {
	var err error
	if testRandom, err = common.NewRandom(); err != nil {
		panic(err)
	}
	sk, err := boneh.GenerateKeypair(testRandom, 32)
	if err != nil {
		panic(err)
	}
	g, h = sk.G, sk.H
}

func commit(x, r *big.Int, g, h *field.Element) *field.Element {
	return g.Exp(x).Mul(h.Exp(r))
}

func TestELValid(t *testing.T) {
	x, r1, r2 := big.NewInt(7), big.NewInt(21), big.NewInt(-5)
	y1 := commit(x, r1, g, h)
	y2 := commit(x, r2, h, g)
	el, err := CreateEL(testRandom, x, r1, r2, g, h, h, g, big.NewInt(32), 32)
	require.NoError(t, err)
	assert.True(t, el.Check(g, h, h, g, y1, y2))
}

func TestELAlteredCommitment(t *testing.T) {
	x, r1, r2 := big.NewInt(7), big.NewInt(21), big.NewInt(5)
	el, err := CreateEL(testRandom, x, r1, r2, g, h, h, g, big.NewInt(32), 32)
	require.NoError(t, err)
	y1 := commit(big.NewInt(8), r1, g, h)
	y2 := commit(x, r2, h, g)
	assert.False(t, el.Check(g, h, h, g, y1, y2))
}

func TestELAlteredShadowCommitment(t *testing.T) {
	x, r1, r2 := big.NewInt(7), big.NewInt(21), big.NewInt(5)
	el, err := CreateEL(testRandom, x, r1, r2, g, h, h, g, big.NewInt(32), 32)
	require.NoError(t, err)
	y1 := commit(x, r1, g, h)
	y2 := commit(big.NewInt(8), r2, h, g)
	assert.False(t, el.Check(g, h, h, g, y1, y2))
}

func TestELEmptyBound(t *testing.T) {
	_, err := CreateEL(testRandom, big.NewInt(1), big.NewInt(1), big.NewInt(1), g, h, h, g, big.NewInt(0), 32)
	assert.Error(t, err)
}

func TestSQRValid(t *testing.T) {
	x, r1 := big.NewInt(9), big.NewInt(33)
	y := commit(new(big.Int).Mul(x, x), r1, g, h)
	sqr, err := CreateSQR(testRandom, x, r1, g, h, big.NewInt(16), 32)
	require.NoError(t, err)
	assert.True(t, sqr.Check(g, h, y))
}

func TestSQRAlteredCommitment(t *testing.T) {
	x, r1 := big.NewInt(9), big.NewInt(33)
	sqr, err := CreateSQR(testRandom, x, r1, g, h, big.NewInt(16), 32)
	require.NoError(t, err)
	assert.False(t, sqr.Check(g, h, commit(big.NewInt(82), r1, g, h)))
}

func TestSQRAlteredShadowCommitment(t *testing.T) {
	x, r1 := big.NewInt(9), big.NewInt(33)
	y := commit(new(big.Int).Mul(x, x), r1, g, h)
	sqr, err := CreateSQR(testRandom, x, r1, g, h, big.NewInt(16), 32)
	require.NoError(t, err)
	sqr.F = sqr.F.Mul(g)
	assert.False(t, sqr.Check(g, h, y))
}

func TestELSerialization(t *testing.T) {
	el := &EL{C: big.NewInt(-1), D: big.NewInt(-2), D1: big.NewInt(-3), D2: big.NewInt(-4)}
	data := append(el.Serialize(), 1, 2, 3)
	assert.Equal(t, byte(0x0F), data[0])
	parsed, rest, err := UnserializeEL(data)
	require.NoError(t, err)
	assert.True(t, el.Equal(parsed))
	assert.Equal(t, []byte{1, 2, 3}, rest)

	el = &EL{C: big.NewInt(1), D: big.NewInt(2), D1: big.NewInt(3), D2: big.NewInt(4)}
	data = el.Serialize()
	assert.Equal(t, byte(0), data[0])
	parsed, rest, err = UnserializeEL(data)
	require.NoError(t, err)
	assert.True(t, el.Equal(parsed))
	assert.Empty(t, rest)

	_, _, err = UnserializeEL(data[:len(data)-1])
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestSQRSerialization(t *testing.T) {
	x, r1 := big.NewInt(3), big.NewInt(-11)
	y := commit(new(big.Int).Mul(x, x), r1, g, h)
	sqr, err := CreateSQR(testRandom, x, r1, g, h, big.NewInt(4), 32)
	require.NoError(t, err)

	parsed, rest, err := UnserializeSQR(g.Mod, sqr.Serialize())
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.True(t, sqr.Equal(parsed))
	assert.True(t, parsed.Check(g, h, y))
}
