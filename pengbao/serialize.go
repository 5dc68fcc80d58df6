package pengbao

import (
	"encoding/binary"

	"github.com/go-errors/errors"

	"github.com/ipv8go/wallet/big"
	"github.com/ipv8go/wallet/boneh"
	"github.com/ipv8go/wallet/boudot"
	"github.com/ipv8go/wallet/field"
	"github.com/ipv8go/wallet/internal/common"
)

func (cm *Commitment) elements() []*field.Element {
	return []*field.Element{cm.C, cm.C1, cm.C2, cm.Ca, cm.Caa, cm.Ca1, cm.Ca2, cm.Ca3}
}

// Serialize writes the public key, a 2-byte bit space, the bounds, the eight commitment
// elements and the EL, SQR1 and SQR2 proofs.
func (pd *PublicData) Serialize() []byte {
	buf := pd.PublicKey.Serialize()
	var bs [2]byte
	binary.BigEndian.PutUint16(bs[:], uint16(pd.BitSpace))
	buf = append(buf, bs[:]...)
	buf = append(buf, big.PackMagnitudes(pd.A, pd.B)...)
	for _, e := range pd.Commitment.elements() {
		buf = append(buf, e.Compress()...)
	}
	buf = append(buf, pd.EL.Serialize()...)
	buf = append(buf, pd.SQR1.Serialize()...)
	return append(buf, pd.SQR2.Serialize()...)
}

// Hash identifies the attestation by its public part.
func (pd *PublicData) Hash() [common.HashSize]byte {
	return common.Sha1(pd.Serialize())
}

// UnserializePublicData parses public data and returns the remaining bytes.
func UnserializePublicData(data []byte) (*PublicData, []byte, error) {
	pk, rest, err := boneh.UnserializePublicKey(data)
	if err != nil {
		return nil, nil, err
	}
	if len(rest) < 2 {
		return nil, nil, errors.WrapPrefix(ErrMalformed, "missing bit space", 0)
	}
	bitSpace := uint(binary.BigEndian.Uint16(rest))
	bounds, rest, err := big.UnpackMagnitudes(rest[2:], 2)
	if err != nil {
		return nil, nil, errors.WrapPrefix(ErrMalformed, "bounds: "+err.Error(), 0)
	}
	elems := make([]*field.Element, 8)
	for i := range elems {
		if elems[i], rest, err = field.Decompress(pk.P, rest); err != nil {
			return nil, nil, errors.WrapPrefix(ErrMalformed, err.Error(), 0)
		}
	}
	el, rest, err := boudot.UnserializeEL(rest)
	if err != nil {
		return nil, nil, err
	}
	sqr1, rest, err := boudot.UnserializeSQR(pk.P, rest)
	if err != nil {
		return nil, nil, err
	}
	sqr2, rest, err := boudot.UnserializeSQR(pk.P, rest)
	if err != nil {
		return nil, nil, err
	}
	return &PublicData{
		PublicKey: pk,
		BitSpace:  bitSpace,
		A:         bounds[0],
		B:         bounds[1],
		Commitment: &Commitment{
			C: elems[0], C1: elems[1], C2: elems[2], Ca: elems[3],
			Caa: elems[4], Ca1: elems[5], Ca2: elems[6], Ca3: elems[7],
		},
		EL:   el,
		SQR1: sqr1,
		SQR2: sqr2,
	}, rest, nil
}

func (priv *CommitmentPrivate) Serialize() []byte {
	bts, err := big.PackSigned(priv.M1, priv.M2, priv.M3, priv.R1, priv.R2, priv.R3)
	if err != nil {
		panic(err) // six values always fit the sign byte
	}
	return bts
}

// Serialize writes the public data only; this is what verifiers receive.
func (att *Attestation) Serialize() []byte {
	return att.PublicData.Serialize()
}

// SerializePrivate appends the opening, for storage at the subject.
func (att *Attestation) SerializePrivate() []byte {
	buf := att.PublicData.Serialize()
	if att.PrivateData != nil {
		buf = append(buf, att.PrivateData.Serialize()...)
	}
	return buf
}

// Unserialize parses the public part of a range attestation.
func Unserialize(data []byte, idFormat string) (*Attestation, error) {
	pd, _, err := UnserializePublicData(data)
	if err != nil {
		return nil, err
	}
	return &Attestation{PublicData: pd, IDFormat: idFormat}, nil
}

// UnserializePrivate parses a range attestation with its opening, which must belong to the
// holder of sk.
func UnserializePrivate(sk *boneh.PrivateKey, data []byte, idFormat string) (*Attestation, error) {
	pd, rest, err := UnserializePublicData(data)
	if err != nil {
		return nil, err
	}
	if !pd.PublicKey.Equal(sk.Public()) {
		return nil, errors.WrapPrefix(ErrMalformed, "attestation is for a different key", 0)
	}
	ints, _, err := big.UnpackSigned(rest, 6)
	if err != nil {
		return nil, errors.WrapPrefix(ErrMalformed, "opening: "+err.Error(), 0)
	}
	return &Attestation{
		PublicData:  pd,
		PrivateData: &CommitmentPrivate{M1: ints[0], M2: ints[1], M3: ints[2], R1: ints[3], R2: ints[4], R3: ints[5]},
		IDFormat:    idFormat,
	}, nil
}
