package field

import (
	"github.com/ipv8go/wallet/big"
)

// Point is an affine point on y^2 = x^3 + 1 with coordinates in F_p^2.
// The zero value is the point at infinity.
type Point struct {
	X, Y *Element
}

// Infinity is the identity of the curve group.
var Infinity = Point{}

func NewPoint(mod, x, y *big.Int) Point {
	return Point{X: FromInt(mod, x), Y: FromInt(mod, y)}
}

func (p Point) IsInfinity() bool {
	return p.X == nil
}

// OnCurve reports whether p satisfies y^2 = x^3 + 1.
func (p Point) OnCurve() bool {
	if p.IsInfinity() {
		return true
	}
	lhs := p.Y.Square()
	rhs := p.X.Square().Mul(p.X).Add(One(p.X.Mod))
	return lhs.Equal(rhs)
}

func (p Point) Neg() Point {
	if p.IsInfinity() {
		return p
	}
	return Point{X: p.X, Y: p.Y.Neg()}
}

func (p Point) Equal(q Point) bool {
	if p.IsInfinity() || q.IsInfinity() {
		return p.IsInfinity() == q.IsInfinity()
	}
	return p.X.Equal(q.X) && p.Y.Equal(q.Y)
}

// Distort applies (x, y) -> (omega x, y), mapping points over F_p to points that are
// independent of them in the torsion group.
func (p Point) Distort() Point {
	if p.IsInfinity() {
		return p
	}
	return Point{X: p.X.Mul(Omega(p.X.Mod)), Y: p.Y}
}

// slope returns the slope of the line through p and q (the tangent when equal), or nil when
// that line is vertical.
func slope(p, q Point) *Element {
	if p.X.Equal(q.X) {
		if p.Y.Add(q.Y).IsZero() {
			return nil
		}
		// Tangent of y^2 = x^3 + 1: 3x^2 / 2y
		num := p.X.Square().MulInt(big.NewInt(3))
		return num.Div(p.Y.MulInt(big.NewInt(2)))
	}
	return q.Y.Sub(p.Y).Div(q.X.Sub(p.X))
}

// Sum adds two points over the given modulus.
func Sum(mod *big.Int, p, q Point) Point {
	if p.IsInfinity() {
		return q
	}
	if q.IsInfinity() {
		return p
	}
	p.X.mustMatch(One(mod))
	p.X.mustMatch(q.X)
	l := slope(p, q)
	if l == nil {
		return Infinity
	}
	x3 := l.Square().Sub(p.X).Sub(q.X)
	y3 := l.Mul(p.X.Sub(x3)).Sub(p.Y)
	return Point{X: x3, Y: y3}
}

// ScalarMul computes k*p by double-and-add, k >= 0.
func ScalarMul(mod *big.Int, p Point, k *big.Int) Point {
	result := Infinity
	for i := k.BitLen() - 1; i >= 0; i-- {
		result = Sum(mod, result, result)
		if k.Bit(i) == 1 {
			result = Sum(mod, result, p)
		}
	}
	return result
}

// lineRatio evaluates at r the line through a and b divided by the vertical line through a+b.
// The second return is false when r lies on either line.
func lineRatio(mod *big.Int, a, b, r Point) (*Element, bool) {
	l := slope(a, b)
	if l == nil {
		v := r.X.Sub(a.X)
		return v, !v.IsZero()
	}
	num := r.Y.Sub(a.Y).Sub(l.Mul(r.X.Sub(a.X)))
	c := Sum(mod, a, b)
	den := r.X.Sub(c.X)
	if num.IsZero() || den.IsZero() {
		return nil, false
	}
	return num.Div(den), true
}

// Miller evaluates at r the function with divisor n(p) - n(O), for p of order dividing n.
// The second return is false when the evaluation degenerates.
func Miller(mod *big.Int, n *big.Int, p, r Point) (*Element, bool) {
	if p.IsInfinity() || r.IsInfinity() || n.Sign() <= 0 {
		return nil, false
	}
	f := One(mod)
	t := p
	for i := n.BitLen() - 2; i >= 0; i-- {
		g, ok := lineRatio(mod, t, t, r)
		if !ok {
			return nil, false
		}
		f = f.Square().Mul(g)
		t = Sum(mod, t, t)
		if n.Bit(i) == 1 {
			if t.IsInfinity() {
				return nil, false
			}
			g, ok = lineRatio(mod, t, p, r)
			if !ok {
				return nil, false
			}
			f = f.Mul(g)
			t = Sum(mod, t, p)
		}
	}
	return f, true
}

// Weil computes the n-th Weil pairing of p and q using the auxiliary point s:
// e(p, q) = (f_p(q+s) / f_p(s)) / (f_q(p-s) / f_q(-s)).
func Weil(mod *big.Int, n *big.Int, p, q, s Point) (*Element, bool) {
	a, ok := Miller(mod, n, p, Sum(mod, q, s))
	if !ok {
		return nil, false
	}
	b, ok := Miller(mod, n, p, s)
	if !ok {
		return nil, false
	}
	c, ok := Miller(mod, n, q, Sum(mod, p, s.Neg()))
	if !ok {
		return nil, false
	}
	d, ok := Miller(mod, n, q, s.Neg())
	if !ok {
		return nil, false
	}
	return a.Mul(d).Div(b.Mul(c)), true
}
