package boneh

import (
	"testing"

	"github.com/go-errors/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipv8go/wallet/big"
	"github.com/ipv8go/wallet/internal/common"
)

var (
	testRandom *common.CPRNG
	testKey    *PrivateKey
)

func init() {
	var err error
	if testRandom, err = common.NewRandom(); err != nil {
		panic(err)
	}
	if testKey, err = GenerateKeypair(testRandom, 32); err != nil {
		panic(err)
	}
}

func TestKeypair(t *testing.T) {
	pk := testKey.Public()
	assert.True(t, pk.P.ProbablyPrime(20))
	assert.Equal(t, 0, new(big.Int).Mod(new(big.Int).Add(pk.P, big.NewInt(1)), testKey.N).Sign())
	assert.True(t, pk.G.Exp(testKey.N).IsOne())
	assert.False(t, pk.G.Exp(testKey.T1).IsOne())
	assert.True(t, pk.H.Exp(testKey.T1).IsOne())
	assert.False(t, pk.H.IsOne())
}

func TestKeySerialization(t *testing.T) {
	pk, rest, err := UnserializePublicKey(testKey.Public().Serialize())
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.True(t, pk.Equal(testKey.Public()))

	sk, rest, err := UnserializePrivateKey(testKey.Serialize())
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.True(t, sk.Public().Equal(testKey.Public()))
	assert.Equal(t, 0, sk.N.Cmp(testKey.N))
	assert.Equal(t, 0, sk.T1.Cmp(testKey.T1))

	data := testKey.Public().Serialize()
	_, _, err = UnserializePublicKey(data[:len(data)-1])
	assert.True(t, errors.Is(err, ErrMalformed))

	// A composite modulus is rejected at the boundary.
	bad := big.PackMagnitudes(big.NewInt(35), big.NewInt(1), big.NewInt(1), big.NewInt(1), big.NewInt(1))
	_, _, err = UnserializePublicKey(bad)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestHomomorphism(t *testing.T) {
	pk := testKey.Public()
	for x := int64(0); x < 4; x++ {
		for y := int64(0); y < 4; y++ {
			ex, err := EncodeInt(testRandom, pk, x)
			require.NoError(t, err)
			ey, err := EncodeInt(testRandom, pk, y)
			require.NoError(t, err)
			m, ok := Decode(testKey, []int{int(x + y)}, ex.Mul(ey))
			require.True(t, ok)
			assert.Equal(t, int(x+y), m)
		}
	}
}

func TestHiding(t *testing.T) {
	pk := testKey.Public()
	a, err := EncodeInt(testRandom, pk, 1)
	require.NoError(t, err)
	b, err := EncodeInt(testRandom, pk, 1)
	require.NoError(t, err)
	assert.False(t, a.Equal(b))
}

func TestDecodeSoundness(t *testing.T) {
	pk := testKey.Public()
	c, err := EncodeInt(testRandom, pk, 2)
	require.NoError(t, err)
	m, ok := Decode(testKey, []int{0, 1, 2}, c)
	assert.True(t, ok)
	assert.Equal(t, 2, m)

	_, ok = Decode(testKey, []int{0, 1}, c)
	assert.False(t, ok)
}

func TestModularAdditiveInverse(t *testing.T) {
	mod := big.NewInt(1000003)
	values, err := ModularAdditiveInverse(testRandom, mod, 3)
	require.NoError(t, err)
	sum := new(big.Int)
	for _, v := range values {
		sum.Add(sum, v)
	}
	assert.Equal(t, 0, sum.Mod(sum, mod).Sign())
}

func TestAttestationSerialization(t *testing.T) {
	att, err := Attest(testRandom, testKey.Public(), big.NewInt(0x5A), 8)
	require.NoError(t, err)
	require.Len(t, att.BitPairs, 7)

	data := att.Serialize()
	parsed, rest, err := Unserialize(data, "id_metadata")
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, "id_metadata", parsed.IDFormat)
	assert.True(t, parsed.PublicKey.Equal(att.PublicKey))
	require.Len(t, parsed.BitPairs, len(att.BitPairs))
	for i := range att.BitPairs {
		assert.True(t, att.BitPairs[i].Equal(parsed.BitPairs[i]))
	}
	assert.Equal(t, data, parsed.Serialize())
	assert.Equal(t, att.Hash(), parsed.Hash())

	_, _, err = Unserialize(data[:len(data)-3], "id_metadata")
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestAttestValueTooLarge(t *testing.T) {
	_, err := Attest(testRandom, testKey.Public(), big.NewInt(256), 8)
	assert.True(t, errors.Is(err, ErrValueTooLarge))
}

func TestAttestationResponsesMatchBits(t *testing.T) {
	value := big.NewInt(0xB6)
	att, err := Attest(testRandom, testKey.Public(), value, 8)
	require.NoError(t, err)

	expected, err := BinaryRelativity(value, 8)
	require.NoError(t, err)
	observed := NewRelativityMap()
	for _, bp := range att.BitPairs {
		c, err := CreateChallenge(testRandom, att.PublicKey, bp)
		require.NoError(t, err)
		observed[CreateChallengeResponse(testKey, c)]++
	}
	assert.Equal(t, expected, observed)
}

func TestHonestyChallenge(t *testing.T) {
	for v := 0; v < 3; v++ {
		c, err := CreateHonestyChallenge(testRandom, testKey.Public(), v)
		require.NoError(t, err)
		assert.True(t, ProcessHonestyChallenge(v, CreateChallengeResponse(testKey, c)))
	}
	c, err := CreateHonestyChallenge(testRandom, testKey.Public(), 7)
	require.NoError(t, err)
	assert.Equal(t, Mismatch, CreateChallengeResponse(testKey, c))
}

func TestBinaryRelativity(t *testing.T) {
	m, err := BinaryRelativity(big.NewInt(2), 32)
	require.NoError(t, err)
	assert.Equal(t, RelativityMap{0: 29, 1: 2, 2: 0, 3: 0}, m)

	m, err = BinaryRelativity(big.NewInt(7), 4)
	require.NoError(t, err)
	assert.Equal(t, RelativityMap{0: 0, 1: 1, 2: 2, 3: 0}, m)
}

func TestBinaryRelativityAsymmetry(t *testing.T) {
	expected := RelativityMap{0: 0, 1: 1, 2: 1, 3: 0}
	observed := RelativityMap{0: 0, 1: 1, 2: 2, 3: 0}
	assert.Greater(t, BinaryRelativityMatch(observed, expected), 0.0)
	assert.Equal(t, 0.0, BinaryRelativityMatch(expected, observed))
	assert.Equal(t, 0.5, BinaryRelativityMatch(observed, expected))
}

func TestBinaryRelativityCertainty(t *testing.T) {
	expected := RelativityMap{0: 29, 1: 2, 2: 0, 3: 0}
	assert.Equal(t, 0.0, BinaryRelativityCertainty(expected, NewRelativityMap()))
	assert.InDelta(t, 0.5/29, BinaryRelativityCertainty(expected, RelativityMap{0: 1, 1: 0, 2: 0, 3: 0}), 1e-9)
	assert.Equal(t, 0.0, BinaryRelativityCertainty(expected, RelativityMap{0: 1, 1: 0, 2: 0, 3: 1}))
}

func runScenario(t *testing.T, forceWrong bool) float64 {
	sk, err := GenerateKeypair(testRandom, 32)
	require.NoError(t, err)
	att, err := Attest(testRandom, sk.Public(), big.NewInt(2), 32)
	require.NoError(t, err)

	expected, err := BinaryRelativity(big.NewInt(2), 32)
	require.NoError(t, err)
	observed := NewRelativityMap()
	for i, bp := range att.BitPairs {
		c, err := CreateChallenge(testRandom, att.PublicKey, bp)
		require.NoError(t, err)
		response := CreateChallengeResponse(sk, c)
		require.NotEqual(t, Mismatch, response)
		if forceWrong && i == 0 {
			response = (response + 1) % 3
		}
		observed[response]++
	}
	return BinaryRelativityCertainty(expected, observed)
}

func TestEndToEnd(t *testing.T) {
	for round := 0; round < 5; round++ {
		assert.Greater(t, runScenario(t, false), 0.99)
	}
	assert.Equal(t, 0.0, runScenario(t, true))
}
