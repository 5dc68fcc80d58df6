package boudot

import (
	"io"

	"github.com/go-errors/errors"

	"github.com/ipv8go/wallet/big"
	"github.com/ipv8go/wallet/field"
)

// SQR proves that y = g^(x^2) h^r1 commits to the square of the exponent in F = g^x h^r2.
type SQR struct {
	F  *field.Element
	EL *EL
}

// CreateSQR draws r2 from (-2^bitSpace p, 2^bitSpace p) and proves equality of the exponent of
// g in F and of F in y.
func CreateSQR(rnd io.Reader, x, r1 *big.Int, g, h *field.Element, b *big.Int, bitSpace uint) (*SQR, error) {
	bound := new(big.Int).Lsh(g.Mod, bitSpace)
	r2, err := big.RandRange(rnd, new(big.Int).Neg(bound), bound)
	if err != nil {
		return nil, err
	}
	f := g.Exp(x).Mul(h.Exp(r2))
	r3 := new(big.Int).Sub(r1, new(big.Int).Mul(r2, x))
	el, err := CreateEL(rnd, x, r2, r3, g, h, f, h, b, bitSpace)
	if err != nil {
		return nil, err
	}
	return &SQR{F: f, EL: el}, nil
}

func (s *SQR) Check(g, h, y *field.Element) bool {
	if s == nil || s.F == nil || s.F.Mod.Cmp(g.Mod) != 0 {
		return false
	}
	return s.EL.Check(g, h, s.F, h, s.F, y)
}

// Serialize packs the coefficients of F with the EL values under a single sign byte.
func (s *SQR) Serialize() []byte {
	f := s.F.Normalize()
	bts, err := big.PackSigned(f.A, f.B, s.EL.C, s.EL.D, s.EL.D1, s.EL.D2)
	if err != nil {
		panic(err) // six values always fit the sign byte
	}
	return bts
}

// UnserializeSQR parses a SQR proof over modulus mod and returns the remaining bytes.
func UnserializeSQR(mod *big.Int, data []byte) (*SQR, []byte, error) {
	ints, rest, err := big.UnpackSigned(data, 6)
	if err != nil {
		return nil, nil, errors.WrapPrefix(ErrMalformed, "SQR: "+err.Error(), 0)
	}
	if ints[0].Sign() < 0 || ints[1].Sign() < 0 || ints[0].Cmp(mod) >= 0 || ints[1].Cmp(mod) >= 0 {
		return nil, nil, errors.WrapPrefix(ErrMalformed, "SQR commitment out of range", 0)
	}
	return &SQR{
		F:  &field.Element{Mod: mod, A: ints[0], B: ints[1]},
		EL: &EL{C: ints[2], D: ints[3], D1: ints[4], D2: ints[5]},
	}, rest, nil
}

func (s *SQR) Equal(o *SQR) bool {
	return s.F.Equal(o.F) && s.EL.Equal(o.EL)
}
