// Package field implements arithmetic in the quadratic extension F_p[x]/(x^2 - x + 1) for primes
// p = 2 (mod 3), the supersingular curve y^2 = x^3 + 1 over it, and the Weil pairing used to pick
// key material for the homomorphic encodings.
package field

import (
	"fmt"

	"github.com/go-errors/errors"

	"github.com/ipv8go/wallet/big"
)

// ErrMalformed is returned when compressed element bytes cannot be parsed.
var ErrMalformed = errors.New("malformed field element")

// Element is a + b*x in F_p[x]/(x^2 - x + 1). Operations return new elements and never modify
// their operands. Combining elements with different moduli is a programming error and panics.
type Element struct {
	Mod *big.Int
	A   *big.Int
	B   *big.Int
}

// NewElement returns the normalized element a + b*x modulo mod.
func NewElement(mod, a, b *big.Int) *Element {
	return (&Element{Mod: mod, A: a, B: b}).Normalize()
}

// FromInt embeds a base field value.
func FromInt(mod, a *big.Int) *Element {
	return NewElement(mod, a, big.NewInt(0))
}

func One(mod *big.Int) *Element {
	return FromInt(mod, big.NewInt(1))
}

func Zero(mod *big.Int) *Element {
	return FromInt(mod, big.NewInt(0))
}

// Omega returns x^2 = x - 1, a primitive cube root of unity.
func Omega(mod *big.Int) *Element {
	return NewElement(mod, big.NewInt(-1), big.NewInt(1))
}

func (e *Element) mustMatch(o *Element) {
	if e.Mod == nil || o.Mod == nil || e.Mod.Cmp(o.Mod) != 0 {
		panic(errors.Errorf("field: mismatched moduli %v and %v", e.Mod, o.Mod))
	}
}

func (e *Element) mod(x *big.Int) *big.Int {
	return x.Mod(x, e.Mod)
}

// Normalize reduces both coefficients to [0, Mod).
func (e *Element) Normalize() *Element {
	if e.Mod == nil || e.Mod.Sign() <= 0 {
		panic(errors.Errorf("field: invalid modulus %v", e.Mod))
	}
	return &Element{
		Mod: e.Mod,
		A:   new(big.Int).Mod(e.A, e.Mod),
		B:   new(big.Int).Mod(e.B, e.Mod),
	}
}

func (e *Element) Add(o *Element) *Element {
	e.mustMatch(o)
	return &Element{
		Mod: e.Mod,
		A:   e.mod(new(big.Int).Add(e.A, o.A)),
		B:   e.mod(new(big.Int).Add(e.B, o.B)),
	}
}

func (e *Element) Sub(o *Element) *Element {
	e.mustMatch(o)
	return &Element{
		Mod: e.Mod,
		A:   e.mod(new(big.Int).Sub(e.A, o.A)),
		B:   e.mod(new(big.Int).Sub(e.B, o.B)),
	}
}

func (e *Element) Neg() *Element {
	return Zero(e.Mod).Sub(e)
}

// Mul uses x^2 = x - 1: (a + bx)(c + dx) = (ac - bd) + (ad + bc + bd)x.
func (e *Element) Mul(o *Element) *Element {
	e.mustMatch(o)
	ac := new(big.Int).Mul(e.A, o.A)
	bd := new(big.Int).Mul(e.B, o.B)
	ad := new(big.Int).Mul(e.A, o.B)
	bc := new(big.Int).Mul(e.B, o.A)
	b := new(big.Int).Add(ad, bc)
	return &Element{
		Mod: e.Mod,
		A:   e.mod(ac.Sub(ac, bd)),
		B:   e.mod(b.Add(b, bd)),
	}
}

// MulInt multiplies by a base field scalar.
func (e *Element) MulInt(k *big.Int) *Element {
	return &Element{
		Mod: e.Mod,
		A:   e.mod(new(big.Int).Mul(e.A, k)),
		B:   e.mod(new(big.Int).Mul(e.B, k)),
	}
}

func (e *Element) Square() *Element {
	return e.Mul(e)
}

// Conjugate maps x to its Galois conjugate 1 - x.
func (e *Element) Conjugate() *Element {
	return &Element{
		Mod: e.Mod,
		A:   e.mod(new(big.Int).Add(e.A, e.B)),
		B:   e.mod(new(big.Int).Neg(e.B)),
	}
}

// Norm returns a^2 + ab + b^2, the product of e and its conjugate.
func (e *Element) Norm() *big.Int {
	n := new(big.Int).Mul(e.A, e.A)
	n.Add(n, new(big.Int).Mul(e.A, e.B))
	n.Add(n, new(big.Int).Mul(e.B, e.B))
	return e.mod(n)
}

// Inverse panics on zero.
func (e *Element) Inverse() *Element {
	ninv := new(big.Int).ModInverse(e.Norm(), e.Mod)
	if ninv == nil {
		panic(errors.Errorf("field: %v has no inverse", e))
	}
	return e.Conjugate().MulInt(ninv)
}

func (e *Element) Div(o *Element) *Element {
	return e.Mul(o.Inverse())
}

// Exp computes e^k by square-and-multiply. Negative exponents invert first.
func (e *Element) Exp(k *big.Int) *Element {
	base := e
	if k.Sign() < 0 {
		base = e.Inverse()
		k = new(big.Int).Neg(k)
	}
	result := One(e.Mod)
	for i := k.BitLen() - 1; i >= 0; i-- {
		result = result.Square()
		if k.Bit(i) == 1 {
			result = result.Mul(base)
		}
	}
	return result
}

func (e *Element) IsZero() bool {
	n := e.Normalize()
	return n.A.Sign() == 0 && n.B.Sign() == 0
}

func (e *Element) IsOne() bool {
	return e.Equal(One(e.Mod))
}

// InBaseField reports whether the x coefficient vanishes.
func (e *Element) InBaseField() bool {
	return e.Normalize().B.Sign() == 0
}

func (e *Element) Equal(o *Element) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.Mod.Cmp(o.Mod) != 0 {
		return false
	}
	a, b := e.Normalize(), o.Normalize()
	return a.A.Cmp(b.A) == 0 && a.B.Cmp(b.B) == 0
}

// Compress returns the canonical byte form: both normalized coefficients, length-prefixed.
func (e *Element) Compress() []byte {
	n := e.Normalize()
	return big.PackMagnitudes(n.A, n.B)
}

// Decompress parses an element produced by Compress, returning the remaining bytes.
func Decompress(mod *big.Int, data []byte) (*Element, []byte, error) {
	ints, rest, err := big.UnpackMagnitudes(data, 2)
	if err != nil {
		return nil, nil, errors.WrapPrefix(ErrMalformed, err.Error(), 0)
	}
	if ints[0].Cmp(mod) >= 0 || ints[1].Cmp(mod) >= 0 {
		return nil, nil, errors.WrapPrefix(ErrMalformed, "coefficient exceeds modulus", 0)
	}
	return &Element{Mod: mod, A: ints[0], B: ints[1]}, rest, nil
}

// Ints returns the normalized coefficients, for hashing.
func (e *Element) Ints() []*big.Int {
	n := e.Normalize()
	return []*big.Int{n.A, n.B}
}

func (e *Element) String() string {
	return fmt.Sprintf("(%v + %vx mod %v)", e.A, e.B, e.Mod)
}
