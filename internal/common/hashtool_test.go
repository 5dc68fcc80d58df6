package common

import (
	"crypto/sha1"
	"crypto/sha256"
	"testing"

	"github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipv8go/wallet/big"
)

func TestHashCommitDeterministic(t *testing.T) {
	a := HashCommit([]*big.Int{big.NewInt(1), big.NewInt(2)})
	b := HashCommit([]*big.Int{big.NewInt(1), big.NewInt(2)})
	c := HashCommit([]*big.Int{big.NewInt(2), big.NewInt(1)})
	assert.Equal(t, 0, a.Cmp(b))
	assert.NotEqual(t, 0, a.Cmp(c))
	assert.True(t, a.BitLen() <= 256)
}

func TestDigest(t *testing.T) {
	data := []byte("MyAttribute")
	full, err := Digest(multihash.SHA2_256, -1, data)
	require.NoError(t, err)
	expected := sha256.Sum256(data)
	assert.Equal(t, expected[:], full)

	truncated, err := Digest(multihash.SHA2_256, 4, data)
	require.NoError(t, err)
	assert.Equal(t, expected[:4], truncated)
}

func TestSha1(t *testing.T) {
	data := []byte("attestation")
	assert.Equal(t, sha1.Sum(data), Sha1(data))
}
