package wallet

import (
	"encoding"
	"encoding/json"

	"github.com/go-errors/errors"

	"github.com/ipv8go/wallet/payload"
)

const (
	msgVerifyAttestationRequest byte = iota + 1
	msgAttestationChunk
	msgChallenge
	msgChallengeResponse
	msgRequestAttestation
	msgRevocationUpdateChunk
)

func frame(id byte, p encoding.BinaryMarshaler) ([]byte, error) {
	bts, err := p.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append([]byte{id}, bts...), nil
}

// requestMetadata is the JSON carried by a RequestAttestation payload.
type requestMetadata struct {
	Attribute string            `json:"attribute"`
	PublicKey string            `json:"public_key"`
	IDFormat  string            `json:"id_format"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (m *requestMetadata) encode() (string, error) {
	bts, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(bts), nil
}

func decodeMetadata(s string) (*requestMetadata, error) {
	m := &requestMetadata{}
	if err := json.Unmarshal([]byte(s), m); err != nil {
		return nil, errors.WrapPrefix(payload.ErrMalformed, "attestation request metadata: "+err.Error(), 0)
	}
	if m.Attribute == "" || m.PublicKey == "" || m.IDFormat == "" {
		return nil, errors.WrapPrefix(payload.ErrMalformed, "incomplete attestation request metadata", 0)
	}
	return m, nil
}
