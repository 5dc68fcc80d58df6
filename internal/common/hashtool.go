package common

import (
	"crypto/sha256"
	"encoding/asn1"

	"github.com/go-errors/errors"
	"github.com/multiformats/go-multihash"

	"github.com/ipv8go/wallet/big"

	gobig "math/big"
)

// HashSize is the length of the hashes that identify attestations and challenges on the wire.
const HashSize = 20

// HashCommit computes the sha256 hash over the asn1 representation of a slice
// of big integers and returns a positive big integer that can be represented
// with that hash.
func HashCommit(values []*big.Int) *big.Int {
	// The first element is the number of elements
	tmp := make([]interface{}, len(values)+1)
	tmp[0] = gobig.NewInt(int64(len(values)))
	for i, v := range values {
		tmp[i+1] = v.Go()
	}
	r, err := asn1.Marshal(tmp)
	if err != nil {
		panic(err) // Marshal should never error, so panic if it does
	}

	sha := sha256.Sum256(r)
	return new(big.Int).SetBytes(sha[:])
}

// Digest hashes data with the multihash function code and returns the raw digest,
// truncated to length bytes (-1 for the full digest).
func Digest(code uint64, length int, data []byte) ([]byte, error) {
	mh, err := multihash.Sum(data, code, length)
	if err != nil {
		return nil, errors.WrapPrefix(err, "hashing failed", 0)
	}
	decoded, err := multihash.Decode(mh)
	if err != nil {
		return nil, errors.WrapPrefix(err, "hashing failed", 0)
	}
	return decoded.Digest, nil
}

// Sha1 computes the 20-byte SHA-1 digest used to name attestations and challenges.
func Sha1(data []byte) [HashSize]byte {
	var out [HashSize]byte
	digest, err := Digest(multihash.SHA1, -1, data)
	if err != nil {
		panic(err) // SHA1 is always registered
	}
	copy(out[:], digest)
	return out
}
