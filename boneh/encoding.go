package boneh

import (
	"io"

	"github.com/ipv8go/wallet/big"
	"github.com/ipv8go/wallet/field"
	"github.com/ipv8go/wallet/internal/common"
)

// Encode returns G^m * H^r for fresh random r.
func Encode(rnd io.Reader, pk *PublicKey, m *big.Int) (*field.Element, error) {
	r, err := common.RandomPositive(rnd, pk.P)
	if err != nil {
		return nil, err
	}
	return pk.G.Exp(m).Mul(pk.H.Exp(r)), nil
}

// EncodeInt is Encode for small plaintexts.
func EncodeInt(rnd io.Reader, pk *PublicKey, m int64) (*field.Element, error) {
	return Encode(rnd, pk, big.NewInt(m))
}

// Decode finds the candidate m with c^T1 = (G^T1)^m. The second return is false when no
// candidate matches.
func Decode(sk *PrivateKey, candidates []int, c *field.Element) (int, bool) {
	target := c.Exp(sk.T1)
	base := sk.G.Exp(sk.T1)
	for _, m := range candidates {
		if base.Exp(big.NewInt(int64(m))).Equal(target) {
			return m, true
		}
	}
	return 0, false
}

// ModularAdditiveInverse returns n random values in [0, mod) summing to 0 modulo mod.
func ModularAdditiveInverse(rnd io.Reader, mod *big.Int, n int) ([]*big.Int, error) {
	values := make([]*big.Int, n)
	sum := new(big.Int)
	for i := 0; i < n-1; i++ {
		v, err := big.RandInt(rnd, mod)
		if err != nil {
			return nil, err
		}
		values[i] = v
		sum.Add(sum, v)
	}
	values[n-1] = sum.Neg(sum).Mod(sum, mod)
	return values, nil
}
