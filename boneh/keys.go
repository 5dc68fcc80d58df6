// Package boneh implements the Boneh-exact attestation scheme: homomorphic encodings of small
// integers in F_p^2 under keys derived from a Weil pairing, bit-pair commitments to an attribute
// value, and the challenge and certainty logic used to prove the committed value.
package boneh

import (
	"io"

	"github.com/go-errors/errors"

	"github.com/ipv8go/wallet/big"
	"github.com/ipv8go/wallet/field"
	"github.com/ipv8go/wallet/internal/common"
)

var (
	ErrMalformed     = errors.New("malformed boneh data")
	ErrValueTooLarge = errors.New("value does not fit the bit space")
)

const maxGeneratorAttempts = 64

type (
	// PublicKey holds the encoding modulus P and the generators G (order N) and H (order T1).
	PublicKey struct {
		P *big.Int
		G *field.Element
		H *field.Element
	}

	// PrivateKey adds the factorization trapdoor N = T1 * T2.
	PrivateKey struct {
		PublicKey
		N  *big.Int
		T1 *big.Int
	}
)

// GenerateKeypair creates a key pair with a keySize-bit group order.
func GenerateKeypair(rnd io.Reader, keySize uint) (*PrivateKey, error) {
	if keySize < 8 {
		return nil, errors.Errorf("key size %d too small", keySize)
	}
	var t1, t2 *big.Int
	var err error
	for t1 == nil || t1.Cmp(t2) == 0 {
		if t1, err = common.RandomPrime(rnd, keySize/2); err != nil {
			return nil, err
		}
		if t2, err = common.RandomPrime(rnd, keySize-keySize/2); err != nil {
			return nil, err
		}
	}
	n := new(big.Int).Mul(t1, t2)
	p, err := field.GeneratePrime(n)
	if err != nil {
		return nil, err
	}

	for i := 0; i < maxGeneratorAttempts; i++ {
		_, g, err := field.GetGoodWp(rnd, n, p)
		if err != nil {
			return nil, err
		}
		if g.Exp(t1).IsOne() || g.Exp(t2).IsOne() {
			continue
		}
		r, err := common.RandomPositive(rnd, n)
		if err != nil {
			return nil, err
		}
		h := g.Exp(r).Exp(t2)
		if h.IsOne() {
			continue
		}
		return &PrivateKey{
			PublicKey: PublicKey{P: p, G: g, H: h},
			N:         n,
			T1:        t1,
		}, nil
	}
	return nil, errors.WrapPrefix(field.ErrNoGoodPairing, "no generator of full order", 0)
}

// Public returns a copy of the public part.
func (sk *PrivateKey) Public() *PublicKey {
	pk := sk.PublicKey
	return &pk
}

// Serialize writes p, g and h as length-prefixed magnitudes.
func (pk *PublicKey) Serialize() []byte {
	g, h := pk.G.Normalize(), pk.H.Normalize()
	return big.PackMagnitudes(pk.P, g.A, g.B, h.A, h.B)
}

// Serialize writes the public key followed by n and t1.
func (sk *PrivateKey) Serialize() []byte {
	return big.AppendPrefixed(big.AppendPrefixed(sk.PublicKey.Serialize(), sk.N.Bytes()), sk.T1.Bytes())
}

func (pk *PublicKey) Equal(o *PublicKey) bool {
	return pk.P.Cmp(o.P) == 0 && pk.G.Equal(o.G) && pk.H.Equal(o.H)
}

// UnserializePublicKey parses a public key and returns the remaining bytes.
func UnserializePublicKey(data []byte) (*PublicKey, []byte, error) {
	ints, rest, err := big.UnpackMagnitudes(data, 5)
	if err != nil {
		return nil, nil, errors.WrapPrefix(ErrMalformed, "public key: "+err.Error(), 0)
	}
	p := ints[0]
	if p.Cmp(big.NewInt(3)) <= 0 || new(big.Int).Mod(p, big.NewInt(3)).Int64() != 2 || !p.ProbablyPrime(20) {
		return nil, nil, errors.WrapPrefix(ErrMalformed, "public key modulus", 0)
	}
	for _, v := range ints[1:] {
		if v.Cmp(p) >= 0 {
			return nil, nil, errors.WrapPrefix(ErrMalformed, "public key coefficient exceeds modulus", 0)
		}
	}
	return &PublicKey{
		P: p,
		G: &field.Element{Mod: p, A: ints[1], B: ints[2]},
		H: &field.Element{Mod: p, A: ints[3], B: ints[4]},
	}, rest, nil
}

// UnserializePrivateKey parses a private key and returns the remaining bytes.
func UnserializePrivateKey(data []byte) (*PrivateKey, []byte, error) {
	pk, rest, err := UnserializePublicKey(data)
	if err != nil {
		return nil, nil, err
	}
	ints, rest, err := big.UnpackMagnitudes(rest, 2)
	if err != nil {
		return nil, nil, errors.WrapPrefix(ErrMalformed, "private key: "+err.Error(), 0)
	}
	if ints[1].Sign() == 0 || new(big.Int).Mod(ints[0], ints[1]).Sign() != 0 {
		return nil, nil, errors.WrapPrefix(ErrMalformed, "private key trapdoor", 0)
	}
	return &PrivateKey{PublicKey: *pk, N: ints[0], T1: ints[1]}, rest, nil
}
