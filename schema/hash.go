package schema

import (
	"github.com/go-errors/errors"
	"github.com/multiformats/go-multihash"
	"github.com/zeebo/blake3"

	"github.com/ipv8go/wallet/big"
	"github.com/ipv8go/wallet/internal/common"
)

// Hash modes for exact-value formats. The attested integer is the digest, so the bit space is
// the digest length in bits.
const (
	HashSHA256Truncated = "sha256_4"
	HashSHA256          = "sha256"
	HashSHA512          = "sha512"
	HashSHA3            = "sha3_256"
	HashBlake2b         = "blake2b_256"
	HashBlake3          = "blake3"
)

type hashMode struct {
	code   uint64
	length int
}

var hashModes = map[string]hashMode{
	HashSHA256Truncated: {multihash.SHA2_256, 4},
	HashSHA256:          {multihash.SHA2_256, -1},
	HashSHA512:          {multihash.SHA2_512, -1},
	HashSHA3:            {multihash.SHA3_256, -1},
	HashBlake2b:         {multihash.BLAKE2B_MIN + 31, -1},
}

// HashValue hashes an attribute value with the named mode and returns the digest as an
// integer together with its size in bits.
func HashValue(mode string, value []byte) (*big.Int, uint, error) {
	var digest []byte
	if mode == HashBlake3 {
		sum := blake3.Sum256(value)
		digest = sum[:]
	} else {
		hm, ok := hashModes[mode]
		if !ok {
			return nil, 0, errors.Errorf("unknown hash mode %q", mode)
		}
		var err error
		if digest, err = common.Digest(hm.code, hm.length, value); err != nil {
			return nil, 0, err
		}
	}
	return new(big.Int).SetBytes(digest), uint(8 * len(digest)), nil
}
