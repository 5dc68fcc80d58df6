package pengbao

import (
	"io"

	"github.com/go-errors/errors"

	"github.com/ipv8go/wallet/big"
	"github.com/ipv8go/wallet/internal/common"
)

type (
	// Challenge asks for m1 s + m2 t + m3 and the matching opening.
	Challenge struct {
		S, T *big.Int
	}

	Response struct {
		X, Y *big.Int
	}
)

// CreateChallenge draws s and t from [1, 2^bitSpace).
func CreateChallenge(rnd io.Reader, bitSpace uint) (*Challenge, error) {
	s, err := common.RandomPositive(rnd, big.Lsh1(bitSpace))
	if err != nil {
		return nil, err
	}
	t, err := common.RandomPositive(rnd, big.Lsh1(bitSpace))
	if err != nil {
		return nil, err
	}
	return &Challenge{S: s, T: t}, nil
}

// Respond computes x = m1 s + m2 t + m3 and y = r1 s + r2 t + r3.
func (priv *CommitmentPrivate) Respond(ch *Challenge) *Response {
	x := new(big.Int).Mul(priv.M1, ch.S)
	x.Add(x, new(big.Int).Mul(priv.M2, ch.T))
	x.Add(x, priv.M3)
	y := new(big.Int).Mul(priv.R1, ch.S)
	y.Add(y, new(big.Int).Mul(priv.R2, ch.T))
	y.Add(y, priv.R3)
	return &Response{X: x, Y: y}
}

// CheckResponse verifies x > 0 and ca1^s ca2^t ca3 = g^x h^y.
func (pd *PublicData) CheckResponse(ch *Challenge, resp *Response) bool {
	if ch == nil || resp == nil || resp.X == nil || resp.Y == nil || resp.X.Sign() <= 0 {
		return false
	}
	cm := pd.Commitment
	lhs := cm.Ca1.Exp(ch.S).Mul(cm.Ca2.Exp(ch.T)).Mul(cm.Ca3)
	rhs := pd.PublicKey.G.Exp(resp.X).Mul(pd.PublicKey.H.Exp(resp.Y))
	return lhs.Equal(rhs)
}

func (ch *Challenge) Serialize() []byte {
	return big.PackMagnitudes(ch.S, ch.T)
}

func UnserializeChallenge(data []byte) (*Challenge, error) {
	ints, _, err := big.UnpackMagnitudes(data, 2)
	if err != nil {
		return nil, errors.WrapPrefix(ErrMalformed, "challenge: "+err.Error(), 0)
	}
	if ints[0].Sign() == 0 || ints[1].Sign() == 0 {
		return nil, errors.WrapPrefix(ErrMalformed, "zero challenge", 0)
	}
	return &Challenge{S: ints[0], T: ints[1]}, nil
}

func (r *Response) Serialize() []byte {
	bts, err := big.PackSigned(r.X, r.Y)
	if err != nil {
		panic(err) // two values always fit the sign byte
	}
	return bts
}

func UnserializeResponse(data []byte) (*Response, error) {
	ints, _, err := big.UnpackSigned(data, 2)
	if err != nil {
		return nil, errors.WrapPrefix(ErrMalformed, "response: "+err.Error(), 0)
	}
	return &Response{X: ints[0], Y: ints[1]}, nil
}
