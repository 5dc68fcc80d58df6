// Package payload defines the wire layouts of the attestation protocol messages. Integers are
// big-endian and variable fields carry a 4-byte length prefix.
package payload

import (
	"encoding/binary"

	"github.com/go-errors/errors"

	"github.com/ipv8go/wallet/big"
	"github.com/ipv8go/wallet/internal/common"
)

// HashSize is the size of attestation and challenge hashes.
const HashSize = common.HashSize

var ErrMalformed = errors.New("malformed payload")

type (
	// VerifyAttestationRequest asks the subject for the attestation with the given hash.
	VerifyAttestationRequest struct {
		Hash [HashSize]byte
	}

	// RequestAttestation carries JSON metadata describing the requested attestation.
	RequestAttestation struct {
		Metadata string
	}

	Challenge struct {
		AttestationHash [HashSize]byte
		Challenge       []byte
	}

	ChallengeResponse struct {
		ChallengeHash [HashSize]byte
		Response      []byte
	}

	// AttestationChunk is one piece of a serialized attestation.
	AttestationChunk struct {
		Hash [HashSize]byte
		Seq  uint32
		Data []byte
	}

	// RevocationUpdateChunk is one piece of a signed revocation update.
	RevocationUpdateChunk struct {
		Hash [HashSize]byte
		Seq  uint32
		Data []byte
	}
)

func malformed(what string, err error) error {
	if err != nil {
		what += ": " + err.Error()
	}
	return errors.WrapPrefix(ErrMalformed, what, 0)
}

func readHash(data []byte, dst *[HashSize]byte) ([]byte, error) {
	if len(data) < HashSize {
		return nil, malformed("short hash", nil)
	}
	copy(dst[:], data[:HashSize])
	return data[HashSize:], nil
}

// readField reads one length-prefixed field that must end the payload.
func readField(data []byte) ([]byte, error) {
	field, rest, err := big.ReadPrefixed(data)
	if err != nil {
		return nil, malformed("field", err)
	}
	if len(rest) != 0 {
		return nil, malformed("trailing data", nil)
	}
	return append([]byte(nil), field...), nil
}

func (p *VerifyAttestationRequest) MarshalBinary() ([]byte, error) {
	return append([]byte(nil), p.Hash[:]...), nil
}

func (p *VerifyAttestationRequest) UnmarshalBinary(data []byte) error {
	if len(data) != HashSize {
		return malformed("verify request size", nil)
	}
	copy(p.Hash[:], data)
	return nil
}

func (p *RequestAttestation) MarshalBinary() ([]byte, error) {
	return big.AppendPrefixed(nil, []byte(p.Metadata)), nil
}

func (p *RequestAttestation) UnmarshalBinary(data []byte) error {
	field, err := readField(data)
	if err != nil {
		return err
	}
	p.Metadata = string(field)
	return nil
}

func (p *Challenge) MarshalBinary() ([]byte, error) {
	return big.AppendPrefixed(append([]byte(nil), p.AttestationHash[:]...), p.Challenge), nil
}

func (p *Challenge) UnmarshalBinary(data []byte) error {
	rest, err := readHash(data, &p.AttestationHash)
	if err != nil {
		return err
	}
	p.Challenge, err = readField(rest)
	return err
}

func (p *ChallengeResponse) MarshalBinary() ([]byte, error) {
	return big.AppendPrefixed(append([]byte(nil), p.ChallengeHash[:]...), p.Response), nil
}

func (p *ChallengeResponse) UnmarshalBinary(data []byte) error {
	rest, err := readHash(data, &p.ChallengeHash)
	if err != nil {
		return err
	}
	p.Response, err = readField(rest)
	return err
}

func marshalChunk(hash [HashSize]byte, seq uint32, chunk []byte) []byte {
	buf := make([]byte, HashSize+4, HashSize+4+big.LengthPrefixSize+len(chunk))
	copy(buf, hash[:])
	binary.BigEndian.PutUint32(buf[HashSize:], seq)
	return big.AppendPrefixed(buf, chunk)
}

func unmarshalChunk(data []byte, hash *[HashSize]byte, seq *uint32) ([]byte, error) {
	rest, err := readHash(data, hash)
	if err != nil {
		return nil, err
	}
	if len(rest) < 4 {
		return nil, malformed("short sequence number", nil)
	}
	*seq = binary.BigEndian.Uint32(rest)
	return readField(rest[4:])
}

func (p *AttestationChunk) MarshalBinary() ([]byte, error) {
	return marshalChunk(p.Hash, p.Seq, p.Data), nil
}

func (p *AttestationChunk) UnmarshalBinary(data []byte) (err error) {
	p.Data, err = unmarshalChunk(data, &p.Hash, &p.Seq)
	return
}

func (p *RevocationUpdateChunk) MarshalBinary() ([]byte, error) {
	return marshalChunk(p.Hash, p.Seq, p.Data), nil
}

func (p *RevocationUpdateChunk) UnmarshalBinary(data []byte) (err error) {
	p.Data, err = unmarshalChunk(data, &p.Hash, &p.Seq)
	return
}

// Split cuts data into chunks of size bytes. The last chunk is always shorter than size, so
// an empty chunk terminates data whose length is a multiple of size.
func Split(data []byte, size int) [][]byte {
	chunks := make([][]byte, 0, len(data)/size+1)
	for len(data) >= size {
		chunks = append(chunks, data[:size])
		data = data[size:]
	}
	return append(chunks, data)
}
