package field

import (
	"io"

	"github.com/go-errors/errors"

	"github.com/ipv8go/wallet/big"
)

// MaxPrimeSearch bounds the multipliers tried by GeneratePrime.
const MaxPrimeSearch = 1 << 20

// maxPointSamples bounds GetGoodWp; a random point fails only with probability about 1/n.
const maxPointSamples = 1 << 10

var (
	ErrPrimeSearchExhausted = errors.New("no suitable prime found within the search bound")
	ErrNoGoodPairing        = errors.New("no good pairing value found")
)

// auxiliaryPoints are small fixed points of order 2, 3 and 6, never in an n-torsion group for n
// coprime to 6.
var auxiliaryPoints = [][2]int64{{0, 1}, {2, 3}, {-1, 0}}

// GeneratePrime returns the first p = l*n - 1 (l = 1, 2, ...) that is prime with p = 2 (mod 3).
func GeneratePrime(n *big.Int) (*big.Int, error) {
	three := big.NewInt(3)
	p := new(big.Int)
	r := new(big.Int)
	for l := int64(1); l <= MaxPrimeSearch; l++ {
		p.Mul(n, big.NewInt(l))
		p.Sub(p, big.NewInt(1))
		if p.Sign() <= 0 || r.Mod(p, three).Int64() != 2 {
			continue
		}
		if p.ProbablyPrime(20) {
			return p, nil
		}
	}
	return nil, errors.WrapPrefix(ErrPrimeSearchExhausted, n.String(), 0)
}

// cofactor returns (p+1)/n, or nil when n does not divide p+1.
func cofactor(n, p *big.Int) *big.Int {
	pp1 := new(big.Int).Add(p, big.NewInt(1))
	c := new(big.Int).Mod(pp1, n)
	if c.Sign() != 0 {
		return nil
	}
	return c.Div(pp1, n)
}

// BilinearGroup maps (x1, y1) and (x2, y2) onto the n-torsion of y^2 = x^3 + 1 over F_p and
// returns the Weil pairing of the first with the distorted second. Degenerate input yields 1.
func BilinearGroup(n, p, x1, y1, x2, y2 *big.Int) *Element {
	identity := One(p)
	c := cofactor(n, p)
	if c == nil {
		return identity
	}
	P := NewPoint(p, x1, y1)
	Q := NewPoint(p, x2, y2)
	if !P.OnCurve() || !Q.OnCurve() {
		return identity
	}
	P = ScalarMul(p, P, c)
	Q = ScalarMul(p, Q, c)
	if P.IsInfinity() || Q.IsInfinity() {
		return identity
	}
	Q = Q.Distort()
	for _, aux := range auxiliaryPoints {
		s := NewPoint(p, big.NewInt(aux[0]), big.NewInt(aux[1]))
		if wp, ok := Weil(p, n, P, Q, s); ok {
			return wp
		}
	}
	return identity
}

// IsGoodWp reports whether wp is a non-trivial n-th root of unity outside the base field.
func IsGoodWp(n *big.Int, wp *Element) bool {
	if wp == nil || wp.IsZero() || wp.IsOne() || wp.InBaseField() {
		return false
	}
	return wp.Exp(n).IsOne()
}

// RandomPoint samples a uniformly random affine point of y^2 = x^3 + 1 over F_p. Cube roots
// are unique since p = 2 (mod 3), so x = (y^2 - 1)^((2p-1)/3).
func RandomPoint(rnd io.Reader, p *big.Int) (x, y *big.Int, err error) {
	y, err = big.RandInt(rnd, p)
	if err != nil {
		return nil, nil, err
	}
	e := new(big.Int).Lsh(p, 1)
	e.Sub(e, big.NewInt(1))
	e.Div(e, big.NewInt(3))
	v := new(big.Int).Mul(y, y)
	v.Sub(v, big.NewInt(1))
	v.Mod(v, p)
	x = new(big.Int).Exp(v, e, p)
	return x, y, nil
}

// GetGoodWp samples points until pairing one with its own distortion gives a good value.
// It returns the sampled point and the pairing value.
func GetGoodWp(rnd io.Reader, n, p *big.Int) (Point, *Element, error) {
	for i := 0; i < maxPointSamples; i++ {
		x, y, err := RandomPoint(rnd, p)
		if err != nil {
			return Infinity, nil, err
		}
		wp := BilinearGroup(n, p, x, y, x, y)
		if IsGoodWp(n, wp) {
			return NewPoint(p, x, y), wp, nil
		}
	}
	return Infinity, nil, ErrNoGoodPairing
}
