package schema

import (
	"io"
	"math"

	"github.com/go-errors/errors"

	"github.com/ipv8go/wallet/big"
	"github.com/ipv8go/wallet/boneh"
	"github.com/ipv8go/wallet/pengbao"
)

// RangeRounds is the number of linear challenges issued per range verification.
const RangeRounds = 16

var ErrNoHonestyChallenge = errors.New("range attestations have no honesty challenges")

type rangeAlgorithm struct {
	format  Format
	formats map[string]Format
	random  io.Reader
}

func (a *rangeAlgorithm) Kind() Kind     { return PengBaoRange }
func (a *rangeAlgorithm) Format() Format { return a.format }

func (a *rangeAlgorithm) Compatible(name string) bool {
	return compatible(a.format, a.formats, name)
}

func (a *rangeAlgorithm) bounds() (*big.Int, *big.Int) {
	return big.NewInt(a.format.Min), big.NewInt(a.format.Max)
}

func (a *rangeAlgorithm) GenerateSecrets() (*boneh.PrivateKey, error) {
	return boneh.GenerateKeypair(a.random, a.format.KeySize)
}

func (a *rangeAlgorithm) LoadSecretKey(data []byte) (*boneh.PrivateKey, error) {
	sk, _, err := boneh.UnserializePrivateKey(data)
	return sk, err
}

func (a *rangeAlgorithm) LoadPublicKey(data []byte) (*boneh.PublicKey, error) {
	pk, _, err := boneh.UnserializePublicKey(data)
	return pk, err
}

// Attest reads value as a big-endian unsigned integer.
func (a *rangeAlgorithm) Attest(pk *boneh.PublicKey, value []byte) ([]byte, error) {
	min, max := a.bounds()
	att, err := pengbao.Create(a.random, pk, new(big.Int).SetBytes(value), min, max, a.format.KeySize)
	if err != nil {
		return nil, err
	}
	return att.SerializePrivate(), nil
}

// Certainty ignores value: the format fixes the range.
func (a *rangeAlgorithm) Certainty(_ []byte, agg *Aggregate) float64 {
	att := agg.Attestation
	if att == nil || att.Kind != PengBaoRange {
		return 0
	}
	min, max := a.bounds()
	if !att.Range.PublicData.InRange(min, max) || !att.Range.PublicData.Check() {
		return 0
	}
	passed, failed, dishonest := agg.checks()
	if failed > 0 || dishonest {
		return 0
	}
	return 1 - math.Pow(0.5, float64(passed))
}

func (a *rangeAlgorithm) CreateChallenges(att *Attestation) ([][]byte, error) {
	if att.Kind != PengBaoRange {
		return nil, errors.Errorf("%s cannot challenge a %s attestation", PengBaoRange, att.Kind)
	}
	challenges := make([][]byte, 0, RangeRounds)
	for i := 0; i < RangeRounds; i++ {
		ch, err := pengbao.CreateChallenge(a.random, att.Range.PublicData.BitSpace)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, ch.Serialize())
	}
	return challenges, nil
}

func (a *rangeAlgorithm) CreateChallengeResponse(_ *boneh.PrivateKey, att *Attestation, challenge []byte) ([]byte, error) {
	if att == nil || att.Kind != PengBaoRange || att.Range.PrivateData == nil {
		return nil, errors.New("range response requires the private attestation")
	}
	ch, err := pengbao.UnserializeChallenge(challenge)
	if err != nil {
		return nil, err
	}
	return att.Range.PrivateData.Respond(ch).Serialize(), nil
}

func (a *rangeAlgorithm) CreateCertaintyAggregate(att *Attestation) *Aggregate {
	return newAggregate(att)
}

func (a *rangeAlgorithm) CreateHonestyChallenge(*boneh.PublicKey, int) ([]byte, error) {
	return nil, ErrNoHonestyChallenge
}

func (a *rangeAlgorithm) ProcessHonestyChallenge(int, []byte) bool {
	return false
}

func (a *rangeAlgorithm) ProcessChallengeResponse(agg *Aggregate, challenge, response []byte) error {
	ch, err := pengbao.UnserializeChallenge(challenge)
	if err != nil {
		return err
	}
	resp, err := pengbao.UnserializeResponse(response)
	if err != nil {
		return err
	}
	agg.addCheck(agg.Attestation.Range.PublicData.CheckResponse(ch, resp))
	return nil
}

func (a *rangeAlgorithm) Deserialize(data []byte, idFormat string) (*Attestation, error) {
	att, err := pengbao.Unserialize(data, idFormat)
	if err != nil {
		return nil, err
	}
	return &Attestation{Kind: PengBaoRange, IDFormat: idFormat, Range: att}, nil
}

func (a *rangeAlgorithm) DeserializePrivate(sk *boneh.PrivateKey, data []byte, idFormat string) (*Attestation, error) {
	att, err := pengbao.UnserializePrivate(sk, data, idFormat)
	if err != nil {
		return nil, err
	}
	return &Attestation{Kind: PengBaoRange, IDFormat: idFormat, Range: att}, nil
}
