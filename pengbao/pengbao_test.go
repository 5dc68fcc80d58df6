package pengbao

import (
	"testing"

	"github.com/go-errors/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipv8go/wallet/big"
	"github.com/ipv8go/wallet/boneh"
	"github.com/ipv8go/wallet/internal/common"
)

var (
	testRandom *common.CPRNG
	testKey    *boneh.PrivateKey
)

func init() {
	var err error
	if testRandom, err = common.NewRandom(); err != nil {
		panic(err)
	}
	if testKey, err = boneh.GenerateKeypair(testRandom, 32); err != nil {
		panic(err)
	}
}

func attest(t *testing.T, m, a, b int64) *Attestation {
	att, err := Create(testRandom, testKey.Public(), big.NewInt(m), big.NewInt(a), big.NewInt(b), 32)
	require.NoError(t, err)
	return att
}

func TestRangeProofValid(t *testing.T) {
	for _, tc := range []struct{ m, a, b int64 }{
		{18, 18, 200},
		{200, 18, 200},
		{42, 18, 200},
		{0, 0, 17},
		{17, 0, 17},
	} {
		att := attest(t, tc.m, tc.a, tc.b)
		assert.True(t, att.PublicData.Check(), "m=%d in [%d,%d]", tc.m, tc.a, tc.b)
		assert.True(t, att.PublicData.InRange(big.NewInt(tc.a), big.NewInt(tc.b)))
		for i := 0; i < 5; i++ {
			ch, err := CreateChallenge(testRandom, 32)
			require.NoError(t, err)
			assert.True(t, att.PublicData.CheckResponse(ch, att.PrivateData.Respond(ch)))
		}
	}
}

func TestRangeProofOutOfRange(t *testing.T) {
	_, err := Create(testRandom, testKey.Public(), big.NewInt(17), big.NewInt(18), big.NewInt(200), 32)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	_, err = Create(testRandom, testKey.Public(), big.NewInt(201), big.NewInt(18), big.NewInt(200), 32)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestRangeProofTampered(t *testing.T) {
	att := attest(t, 30, 18, 200)
	g := testKey.G

	// Moving the bounds breaks the relation with c.
	att.PublicData.A = big.NewInt(31)
	assert.False(t, att.PublicData.Check())
	att.PublicData.A = big.NewInt(18)
	assert.True(t, att.PublicData.Check())

	cm := att.PublicData.Commitment
	orig := cm.Ca1
	cm.Ca1 = cm.Ca1.Mul(g)
	assert.False(t, att.PublicData.Check())
	cm.Ca1 = orig

	ch, err := CreateChallenge(testRandom, 32)
	require.NoError(t, err)
	resp := att.PrivateData.Respond(ch)
	resp.X.Add(resp.X, big.NewInt(1))
	assert.False(t, att.PublicData.CheckResponse(ch, resp))

	assert.False(t, att.PublicData.CheckResponse(ch, &Response{X: big.NewInt(-1), Y: big.NewInt(1)}))
}

func TestRangeSerialization(t *testing.T) {
	att := attest(t, 21, 18, 200)

	pub, err := Unserialize(att.Serialize(), "id_metadata_range_18plus")
	require.NoError(t, err)
	assert.Nil(t, pub.PrivateData)
	assert.True(t, pub.PublicData.Check())
	assert.Equal(t, att.PublicData.Hash(), pub.PublicData.Hash())
	assert.Equal(t, att.Serialize(), pub.Serialize())

	priv, err := UnserializePrivate(testKey, att.SerializePrivate(), "id_metadata_range_18plus")
	require.NoError(t, err)
	require.NotNil(t, priv.PrivateData)
	ch, err := CreateChallenge(testRandom, 32)
	require.NoError(t, err)
	assert.True(t, pub.PublicData.CheckResponse(ch, priv.PrivateData.Respond(ch)))

	other, err := boneh.GenerateKeypair(testRandom, 32)
	require.NoError(t, err)
	_, err = UnserializePrivate(other, att.SerializePrivate(), "id_metadata_range_18plus")
	assert.True(t, errors.Is(err, ErrMalformed))

	data := att.Serialize()
	_, err = Unserialize(data[:len(data)-2], "id_metadata_range_18plus")
	assert.Error(t, err)
}

func TestChallengeSerialization(t *testing.T) {
	ch, err := CreateChallenge(testRandom, 32)
	require.NoError(t, err)
	parsed, err := UnserializeChallenge(ch.Serialize())
	require.NoError(t, err)
	assert.Equal(t, 0, ch.S.Cmp(parsed.S))
	assert.Equal(t, 0, ch.T.Cmp(parsed.T))

	resp := &Response{X: big.NewInt(12345), Y: big.NewInt(-678)}
	parsedResp, err := UnserializeResponse(resp.Serialize())
	require.NoError(t, err)
	assert.Equal(t, 0, resp.X.Cmp(parsedResp.X))
	assert.Equal(t, 0, resp.Y.Cmp(parsedResp.Y))

	_, err = UnserializeChallenge(big.PackMagnitudes(big.NewInt(0), big.NewInt(1)))
	assert.True(t, errors.Is(err, ErrMalformed))
}
