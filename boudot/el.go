// Package boudot implements Boudot's non-interactive proofs of equal discrete logarithms (EL)
// and of squares (SQR) over commitments g^x h^r in F_p^2.
package boudot

import (
	"io"

	"github.com/go-errors/errors"

	"github.com/ipv8go/wallet/big"
	"github.com/ipv8go/wallet/field"
	"github.com/ipv8go/wallet/internal/common"
)

const (
	// DefaultT is the challenge size in bits.
	DefaultT = 80
	// DefaultL is the statistical zero-knowledge slack in bits.
	DefaultL = 40
)

var ErrMalformed = errors.New("malformed boudot proof")

// EL proves that y1 = g1^x h1^r1 and y2 = g2^x h2^r2 share the exponent x.
type EL struct {
	C  *big.Int
	D  *big.Int
	D1 *big.Int
	D2 *big.Int
}

// CreateEL proves knowledge of x, r1, r2 with DefaultT and DefaultL. x must be below b.
func CreateEL(rnd io.Reader, x, r1, r2 *big.Int, g1, h1, g2, h2 *field.Element, b *big.Int, bitSpace uint) (*EL, error) {
	return CreateELWithParams(rnd, x, r1, r2, g1, h1, g2, h2, b, bitSpace, DefaultT, DefaultL)
}

// CreateELWithParams samples w in [1, 2^(l+t) b) and n1, n2 in [1, 2^(l+t+bitSpace) p).
func CreateELWithParams(rnd io.Reader, x, r1, r2 *big.Int, g1, h1, g2, h2 *field.Element, b *big.Int, bitSpace, t, l uint) (*EL, error) {
	if b.Sign() <= 0 {
		return nil, errors.Errorf("EL bound must be positive, got %v", b)
	}
	wBound := new(big.Int).Lsh(b, l+t)
	nBound := new(big.Int).Lsh(g1.Mod, l+t+bitSpace)

	w, err := common.RandomPositive(rnd, wBound)
	if err != nil {
		return nil, err
	}
	n1, err := common.RandomPositive(rnd, nBound)
	if err != nil {
		return nil, err
	}
	n2, err := common.RandomPositive(rnd, nBound)
	if err != nil {
		return nil, err
	}

	w1 := g1.Exp(w).Mul(h1.Exp(n1))
	w2 := g2.Exp(w).Mul(h2.Exp(n2))
	c := challenge(w1, w2, t)

	return &EL{
		C:  c,
		D:  new(big.Int).Add(w, new(big.Int).Mul(c, x)),
		D1: new(big.Int).Add(n1, new(big.Int).Mul(c, r1)),
		D2: new(big.Int).Add(n2, new(big.Int).Mul(c, r2)),
	}, nil
}

// challenge hashes the normalized commitments and keeps t bits.
func challenge(w1, w2 *field.Element, t uint) *big.Int {
	h := common.HashCommit(append(w1.Ints(), w2.Ints()...))
	if uint(h.BitLen()) > t {
		h.Rsh(h, uint(h.BitLen())-t)
	}
	return h
}

// Check recomputes the commitments from the responses and compares challenges.
func (el *EL) Check(g1, h1, g2, h2, y1, y2 *field.Element) bool {
	return el.CheckWithParams(g1, h1, g2, h2, y1, y2, DefaultT)
}

func (el *EL) CheckWithParams(g1, h1, g2, h2, y1, y2 *field.Element, t uint) bool {
	if el == nil || el.C == nil || el.D == nil || el.D1 == nil || el.D2 == nil {
		return false
	}
	negC := new(big.Int).Neg(el.C)
	w1 := g1.Exp(el.D).Mul(h1.Exp(el.D1)).Mul(y1.Exp(negC))
	w2 := g2.Exp(el.D).Mul(h2.Exp(el.D2)).Mul(y2.Exp(negC))
	return challenge(w1, w2, t).Cmp(el.C) == 0
}

// Serialize packs c, d, d1, d2 behind a sign byte.
func (el *EL) Serialize() []byte {
	bts, err := big.PackSigned(el.C, el.D, el.D1, el.D2)
	if err != nil {
		panic(err) // four values always fit the sign byte
	}
	return bts
}

// UnserializeEL parses an EL proof and returns the remaining bytes.
func UnserializeEL(data []byte) (*EL, []byte, error) {
	ints, rest, err := big.UnpackSigned(data, 4)
	if err != nil {
		return nil, nil, errors.WrapPrefix(ErrMalformed, "EL: "+err.Error(), 0)
	}
	return &EL{C: ints[0], D: ints[1], D1: ints[2], D2: ints[3]}, rest, nil
}

func (el *EL) Equal(o *EL) bool {
	return el.C.Cmp(o.C) == 0 && el.D.Cmp(o.D) == 0 && el.D1.Cmp(o.D1) == 0 && el.D2.Cmp(o.D2) == 0
}
