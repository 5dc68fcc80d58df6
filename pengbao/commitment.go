// Package pengbao implements the Peng-Bao range proof: a commitment to an integer m together with
// Boudot EL and SQR proofs showing (m - a + 1)(b - m + 1) w^2 is a positive sum of two committed
// values and a square, which holds exactly when a <= m <= b. Positivity of the two summands is
// established interactively through random linear challenges.
package pengbao

import (
	"io"

	"github.com/go-errors/errors"

	"github.com/ipv8go/wallet/big"
	"github.com/ipv8go/wallet/boneh"
	"github.com/ipv8go/wallet/boudot"
	"github.com/ipv8go/wallet/field"
	"github.com/ipv8go/wallet/internal/common"
)

var (
	ErrMalformed  = errors.New("malformed range attestation")
	ErrOutOfRange = errors.New("value outside the attested range")
)

type (
	// Commitment holds the public group elements of a range attestation.
	Commitment struct {
		C   *field.Element // g^m h^r
		C1  *field.Element // c / g^(a-1)
		C2  *field.Element // g^(b+1) / c
		Ca  *field.Element // c1^(b-m+1) h^ra
		Caa *field.Element // ca^(w^2) h^raa
		Ca1 *field.Element // g^m1 h^r1
		Ca2 *field.Element // g^m2 h^r2
		Ca3 *field.Element // g^m3 h^r3, m3 a square
	}

	// CommitmentPrivate opens Ca1, Ca2 and Ca3. Only the subject holds it.
	CommitmentPrivate struct {
		M1, M2, M3 *big.Int
		R1, R2, R3 *big.Int
	}

	// PublicData is everything a verifier needs to check a range attestation.
	PublicData struct {
		PublicKey  *boneh.PublicKey
		BitSpace   uint
		A, B       *big.Int
		Commitment *Commitment
		EL         *boudot.EL
		SQR1       *boudot.SQR
		SQR2       *boudot.SQR
	}

	// Attestation is a range attestation; PrivateData is nil on the verifier side.
	Attestation struct {
		PublicData  *PublicData
		PrivateData *CommitmentPrivate
		IDFormat    string
	}
)

// Create attests that a <= m <= b, for m below 2^bitSpace.
func Create(rnd io.Reader, pk *boneh.PublicKey, m, a, b *big.Int, bitSpace uint) (*Attestation, error) {
	if m.Cmp(a) < 0 || m.Cmp(b) > 0 || a.Sign() < 0 {
		return nil, errors.WrapPrefix(ErrOutOfRange, m.String(), 0)
	}
	if m.BitLen() > int(bitSpace) {
		return nil, errors.WrapPrefix(boneh.ErrValueTooLarge, m.String(), 0)
	}
	g, h, p := pk.G, pk.H, pk.P
	one := big.NewInt(1)

	r, err := common.RandomPositive(rnd, p)
	if err != nil {
		return nil, err
	}
	ra, err := common.RandomPositive(rnd, p)
	if err != nil {
		return nil, err
	}
	raa, err := common.RandomPositive(rnd, p)
	if err != nil {
		return nil, err
	}

	c := g.Exp(m).Mul(h.Exp(r))
	c1 := c.Div(g.Exp(new(big.Int).Sub(a, one)))
	c2 := g.Exp(new(big.Int).Add(b, one)).Div(c)

	upper := new(big.Int).Sub(b, m)
	upper.Add(upper, one) // b - m + 1
	lower := new(big.Int).Sub(m, a)
	lower.Add(lower, one) // m - a + 1

	ca := c1.Exp(upper).Mul(h.Exp(ra))
	elBound := new(big.Int).Sub(b, a)
	elBound.Add(elBound, big.NewInt(2))
	el, err := boudot.CreateEL(rnd, upper, ra, new(big.Int).Neg(r), c1, h, g, h, elBound, bitSpace)
	if err != nil {
		return nil, err
	}

	wBound := big.Lsh1(bitSpace)
	w, err := big.RandRange(rnd, big.NewInt(2), wBound)
	if err != nil {
		return nil, err
	}
	w2 := new(big.Int).Mul(w, w)
	caa := ca.Exp(w2).Mul(h.Exp(raa))
	sqr1, err := boudot.CreateSQR(rnd, w, raa, ca, h, wBound, bitSpace)
	if err != nil {
		return nil, err
	}

	// m'' = (m - a + 1)(b - m + 1) w^2 = m1 + m2 + m4^2 with every term positive.
	mm := new(big.Int).Mul(lower, upper)
	mm.Mul(mm, w2)
	m4, err := common.RandomPositive(rnd, w)
	if err != nil {
		return nil, err
	}
	m3 := new(big.Int).Mul(m4, m4)
	rest := new(big.Int).Sub(mm, m3)
	m1, err := common.RandomPositive(rnd, rest)
	if err != nil {
		return nil, err
	}
	m2 := new(big.Int).Sub(rest, m1)

	// Opening of caa: (r(b - m + 1) + ra) w^2 + raa.
	rr := new(big.Int).Mul(r, upper)
	rr.Add(rr, ra)
	rr.Mul(rr, w2)
	rr.Add(rr, raa)
	r1, err := common.RandomPositive(rnd, p)
	if err != nil {
		return nil, err
	}
	r2, err := common.RandomPositive(rnd, p)
	if err != nil {
		return nil, err
	}
	r3 := new(big.Int).Sub(rr, r1)
	r3.Sub(r3, r2)

	ca1 := g.Exp(m1).Mul(h.Exp(r1))
	ca2 := g.Exp(m2).Mul(h.Exp(r2))
	ca3 := g.Exp(m3).Mul(h.Exp(r3))
	sqr2, err := boudot.CreateSQR(rnd, m4, r3, g, h, wBound, bitSpace)
	if err != nil {
		return nil, err
	}

	return &Attestation{
		PublicData: &PublicData{
			PublicKey: pk,
			BitSpace:  bitSpace,
			A:         new(big.Int).Set(a),
			B:         new(big.Int).Set(b),
			Commitment: &Commitment{
				C: c, C1: c1, C2: c2, Ca: ca, Caa: caa, Ca1: ca1, Ca2: ca2, Ca3: ca3,
			},
			EL:   el,
			SQR1: sqr1,
			SQR2: sqr2,
		},
		PrivateData: &CommitmentPrivate{M1: m1, M2: m2, M3: m3, R1: r1, R2: r2, R3: r3},
	}, nil
}

// Check verifies the non-interactive part of the proof.
func (pd *PublicData) Check() bool {
	g, h := pd.PublicKey.G, pd.PublicKey.H
	cm := pd.Commitment
	one := big.NewInt(1)
	if !cm.C1.Equal(cm.C.Div(g.Exp(new(big.Int).Sub(pd.A, one)))) {
		return false
	}
	if !cm.C2.Equal(g.Exp(new(big.Int).Add(pd.B, one)).Div(cm.C)) {
		return false
	}
	if !pd.EL.Check(cm.C1, h, g, h, cm.Ca, cm.C2) {
		return false
	}
	if !pd.SQR1.Check(cm.Ca, h, cm.Caa) || !pd.SQR2.Check(g, h, cm.Ca3) {
		return false
	}
	return cm.Ca1.Mul(cm.Ca2).Mul(cm.Ca3).Equal(cm.Caa)
}

// InRange reports whether the public data attests exactly [a, b].
func (pd *PublicData) InRange(a, b *big.Int) bool {
	return pd.A.Cmp(a) == 0 && pd.B.Cmp(b) == 0
}
