package boneh

import (
	"io"

	"github.com/ipv8go/wallet/field"
)

// Mismatch is the response to a challenge that decodes to none of {0, 1, 2}.
const Mismatch = 3

var responseCandidates = []int{0, 1, 2}

// CreateChallenge compresses a bit pair and re-randomizes it with an encoding of zero.
func CreateChallenge(rnd io.Reader, pk *PublicKey, bp *BitPairCommitment) (*field.Element, error) {
	zero, err := EncodeInt(rnd, pk, 0)
	if err != nil {
		return nil, err
	}
	return bp.Compress().Mul(zero), nil
}

// CreateChallengeResponse decodes a challenge to its bit-pair sum, or Mismatch.
func CreateChallengeResponse(sk *PrivateKey, challenge *field.Element) int {
	if m, ok := Decode(sk, responseCandidates, challenge); ok {
		return m
	}
	return Mismatch
}

// CreateHonestyChallenge encodes a plaintext known only to the verifier. An honest prover
// answers it like any other challenge.
func CreateHonestyChallenge(rnd io.Reader, pk *PublicKey, value int) (*field.Element, error) {
	return EncodeInt(rnd, pk, int64(value))
}

func ProcessHonestyChallenge(value, response int) bool {
	return value == response
}
