package boneh

import (
	"encoding/binary"
	"io"

	"github.com/go-errors/errors"

	"github.com/ipv8go/wallet/big"
	"github.com/ipv8go/wallet/field"
	"github.com/ipv8go/wallet/internal/common"
)

type (
	// BitPairCommitment commits to the sum of two adjacent bits. The masks in A, B and
	// Complement cancel, so their product encodes a value in {0, 1, 2}.
	BitPairCommitment struct {
		A          *field.Element
		B          *field.Element
		Complement *field.Element
	}

	// Attestation is the ordered, shuffled list of bit-pair commitments to an attribute value.
	Attestation struct {
		PublicKey *PublicKey
		BitPairs  []*BitPairCommitment
		IDFormat  string
	}
)

// Compress multiplies the three encodings, leaving an encoding of the bit-pair sum.
func (bp *BitPairCommitment) Compress() *field.Element {
	return bp.A.Mul(bp.B).Mul(bp.Complement)
}

func (bp *BitPairCommitment) Equal(o *BitPairCommitment) bool {
	return bp.A.Equal(o.A) && bp.B.Equal(o.B) && bp.Complement.Equal(o.Complement)
}

// Bits returns the bitSpace bits of value, most significant first.
func Bits(value *big.Int, bitSpace int) ([]uint, error) {
	if value.Sign() < 0 || value.BitLen() > bitSpace {
		return nil, errors.WrapPrefix(ErrValueTooLarge, value.String(), 0)
	}
	bits := make([]uint, bitSpace)
	for i := range bits {
		bits[i] = value.Bit(bitSpace - 1 - i)
	}
	return bits, nil
}

// Attest commits to value as bitSpace bits, one commitment per overlapping pair of adjacent
// bits. Pairs and complements are shuffled independently and re-linked through an index map.
func Attest(rnd io.Reader, pk *PublicKey, value *big.Int, bitSpace int) (*Attestation, error) {
	bits, err := Bits(value, bitSpace)
	if err != nil {
		return nil, err
	}
	if bitSpace < 2 {
		return nil, errors.Errorf("bit space %d too small", bitSpace)
	}
	order := new(big.Int).Add(pk.P, big.NewInt(1))
	count := bitSpace - 1

	type pair struct{ a, b *field.Element }
	pairs := make([]pair, count)
	complements := make([]*field.Element, count)
	for i := 0; i < count; i++ {
		masks, err := ModularAdditiveInverse(rnd, order, 3)
		if err != nil {
			return nil, err
		}
		a, err := Encode(rnd, pk, new(big.Int).Add(big.NewInt(int64(bits[i])), masks[0]))
		if err != nil {
			return nil, err
		}
		b, err := Encode(rnd, pk, new(big.Int).Add(big.NewInt(int64(bits[i+1])), masks[1]))
		if err != nil {
			return nil, err
		}
		c, err := Encode(rnd, pk, masks[2])
		if err != nil {
			return nil, err
		}
		pairs[i] = pair{a, b}
		complements[i] = c
	}

	pairPerm, err := common.Permutation(rnd, count)
	if err != nil {
		return nil, err
	}
	complementPerm, err := common.Permutation(rnd, count)
	if err != nil {
		return nil, err
	}
	shuffledComplements := make([]*field.Element, count)
	complementAt := make([]int, count) // original pair index -> position in shuffledComplements
	for pos, orig := range complementPerm {
		shuffledComplements[pos] = complements[orig]
		complementAt[orig] = pos
	}

	bitPairs := make([]*BitPairCommitment, count)
	for pos, orig := range pairPerm {
		bitPairs[pos] = &BitPairCommitment{
			A:          pairs[orig].a,
			B:          pairs[orig].b,
			Complement: shuffledComplements[complementAt[orig]],
		}
	}
	return &Attestation{PublicKey: pk, BitPairs: bitPairs}, nil
}

// Serialize writes the public key, a 2-byte commitment count and six length-prefixed
// magnitudes per commitment.
func (att *Attestation) Serialize() []byte {
	buf := att.PublicKey.Serialize()
	var count [2]byte
	binary.BigEndian.PutUint16(count[:], uint16(len(att.BitPairs)))
	buf = append(buf, count[:]...)
	for _, bp := range att.BitPairs {
		a, b, c := bp.A.Normalize(), bp.B.Normalize(), bp.Complement.Normalize()
		buf = append(buf, big.PackMagnitudes(a.A, a.B, b.A, b.B, c.A, c.B)...)
	}
	return buf
}

// Hash is the SHA-1 digest of the serialized attestation.
func (att *Attestation) Hash() [common.HashSize]byte {
	return common.Sha1(att.Serialize())
}

// Unserialize parses an attestation, tagging it with idFormat. It returns the remaining bytes.
func Unserialize(data []byte, idFormat string) (*Attestation, []byte, error) {
	pk, rest, err := UnserializePublicKey(data)
	if err != nil {
		return nil, nil, err
	}
	if len(rest) < 2 {
		return nil, nil, errors.WrapPrefix(ErrMalformed, "missing commitment count", 0)
	}
	count := int(binary.BigEndian.Uint16(rest))
	rest = rest[2:]
	bitPairs := make([]*BitPairCommitment, count)
	for i := range bitPairs {
		var ints []*big.Int
		ints, rest, err = big.UnpackMagnitudes(rest, 6)
		if err != nil {
			return nil, nil, errors.WrapPrefix(ErrMalformed, "commitment: "+err.Error(), 0)
		}
		for _, v := range ints {
			if v.Cmp(pk.P) >= 0 {
				return nil, nil, errors.WrapPrefix(ErrMalformed, "commitment coefficient exceeds modulus", 0)
			}
		}
		bitPairs[i] = &BitPairCommitment{
			A:          &field.Element{Mod: pk.P, A: ints[0], B: ints[1]},
			B:          &field.Element{Mod: pk.P, A: ints[2], B: ints[3]},
			Complement: &field.Element{Mod: pk.P, A: ints[4], B: ints[5]},
		}
	}
	return &Attestation{PublicKey: pk, BitPairs: bitPairs, IDFormat: idFormat}, rest, nil
}
