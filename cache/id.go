package cache

import (
	"io"

	"github.com/ipv8go/wallet/big"
)

// IDFromHash reads b as a big-endian unsigned integer, so a payload hash or peer identifier
// can serve as correlation id under prefix. The id does not depend on prefix: entries are
// keyed by the (prefix, id) pair.
func IDFromHash(prefix string, b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// RandomID returns a random 32-bit id.
func RandomID(rnd io.Reader) (*big.Int, error) {
	return big.RandInt(rnd, big.Lsh1(32))
}
