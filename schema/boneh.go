package schema

import (
	"io"

	"github.com/go-errors/errors"

	"github.com/ipv8go/wallet/boneh"
	"github.com/ipv8go/wallet/field"
)

// HonestyValues are the plaintexts verifiers may hide among challenges.
var HonestyValues = []int{0, 1, 2}

type bonehAlgorithm struct {
	format  Format
	formats map[string]Format
	random  io.Reader
}

func (a *bonehAlgorithm) Kind() Kind     { return BonehExact }
func (a *bonehAlgorithm) Format() Format { return a.format }

func (a *bonehAlgorithm) Compatible(name string) bool {
	return compatible(a.format, a.formats, name)
}

func (a *bonehAlgorithm) GenerateSecrets() (*boneh.PrivateKey, error) {
	return boneh.GenerateKeypair(a.random, a.format.KeySize)
}

func (a *bonehAlgorithm) LoadSecretKey(data []byte) (*boneh.PrivateKey, error) {
	sk, _, err := boneh.UnserializePrivateKey(data)
	return sk, err
}

func (a *bonehAlgorithm) LoadPublicKey(data []byte) (*boneh.PublicKey, error) {
	pk, _, err := boneh.UnserializePublicKey(data)
	return pk, err
}

func (a *bonehAlgorithm) Attest(pk *boneh.PublicKey, value []byte) ([]byte, error) {
	v, bitSpace, err := HashValue(a.format.Hash, value)
	if err != nil {
		return nil, err
	}
	att, err := boneh.Attest(a.random, pk, v, int(bitSpace))
	if err != nil {
		return nil, err
	}
	return att.Serialize(), nil
}

func (a *bonehAlgorithm) Certainty(value []byte, agg *Aggregate) float64 {
	v, bitSpace, err := HashValue(a.format.Hash, value)
	if err != nil {
		Logger.Warn(err)
		return 0
	}
	expected, err := boneh.BinaryRelativity(v, int(bitSpace))
	if err != nil {
		return 0
	}
	if _, _, dishonest := agg.checks(); dishonest {
		return 0
	}
	return boneh.BinaryRelativityCertainty(expected, agg.Relativity())
}

func (a *bonehAlgorithm) CreateChallenges(att *Attestation) ([][]byte, error) {
	if att.Kind != BonehExact {
		return nil, errors.Errorf("%s cannot challenge a %s attestation", BonehExact, att.Kind)
	}
	challenges := make([][]byte, 0, len(att.Boneh.BitPairs))
	for _, bp := range att.Boneh.BitPairs {
		c, err := boneh.CreateChallenge(a.random, att.Boneh.PublicKey, bp)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, c.Compress())
	}
	return challenges, nil
}

func (a *bonehAlgorithm) CreateChallengeResponse(sk *boneh.PrivateKey, _ *Attestation, challenge []byte) ([]byte, error) {
	c, _, err := field.Decompress(sk.P, challenge)
	if err != nil {
		return nil, err
	}
	return []byte{byte(boneh.CreateChallengeResponse(sk, c))}, nil
}

func (a *bonehAlgorithm) CreateCertaintyAggregate(att *Attestation) *Aggregate {
	return newAggregate(att)
}

func (a *bonehAlgorithm) CreateHonestyChallenge(pk *boneh.PublicKey, value int) ([]byte, error) {
	c, err := boneh.CreateHonestyChallenge(a.random, pk, value)
	if err != nil {
		return nil, err
	}
	return c.Compress(), nil
}

func (a *bonehAlgorithm) ProcessHonestyChallenge(value int, response []byte) bool {
	return len(response) == 1 && boneh.ProcessHonestyChallenge(value, int(response[0]))
}

func (a *bonehAlgorithm) ProcessChallengeResponse(agg *Aggregate, _, response []byte) error {
	if len(response) != 1 || response[0] > boneh.Mismatch {
		return errors.WrapPrefix(boneh.ErrMalformed, "challenge response", 0)
	}
	agg.addOutcome(int(response[0]))
	return nil
}

func (a *bonehAlgorithm) Deserialize(data []byte, idFormat string) (*Attestation, error) {
	att, _, err := boneh.Unserialize(data, idFormat)
	if err != nil {
		return nil, err
	}
	return &Attestation{Kind: BonehExact, IDFormat: idFormat, Boneh: att}, nil
}

func (a *bonehAlgorithm) DeserializePrivate(sk *boneh.PrivateKey, data []byte, idFormat string) (*Attestation, error) {
	att, err := a.Deserialize(data, idFormat)
	if err != nil {
		return nil, err
	}
	if !att.Boneh.PublicKey.Equal(sk.Public()) {
		return nil, errors.WrapPrefix(boneh.ErrMalformed, "attestation is for a different key", 0)
	}
	return att, nil
}
