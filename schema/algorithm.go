package schema

import (
	"sync"

	"github.com/ipv8go/wallet/boneh"
	"github.com/ipv8go/wallet/internal/common"
	"github.com/ipv8go/wallet/pengbao"
)

// Kind tags the closed set of attestation algorithms.
type Kind int

const (
	BonehExact Kind = iota
	PengBaoRange
)

const (
	AlgorithmBonehExact   = "bonehexact"
	AlgorithmPengBaoRange = "pengbaorange"
	AlgorithmIrmaExact    = "irmaexact"
)

func (k Kind) String() string {
	switch k {
	case BonehExact:
		return AlgorithmBonehExact
	case PengBaoRange:
		return AlgorithmPengBaoRange
	default:
		return "unknown"
	}
}

// Algorithm is the capability shared by every attestation kind. Challenges and responses
// travel as opaque bytes in the kind's own layout.
type Algorithm interface {
	Kind() Kind
	Format() Format
	// Compatible reports whether key material of this format also serves the named format.
	Compatible(name string) bool

	GenerateSecrets() (*boneh.PrivateKey, error)
	LoadSecretKey(data []byte) (*boneh.PrivateKey, error)
	LoadPublicKey(data []byte) (*boneh.PublicKey, error)

	// Attest returns the serialized attestation as stored by the subject.
	Attest(pk *boneh.PublicKey, value []byte) ([]byte, error)
	Certainty(value []byte, agg *Aggregate) float64

	CreateChallenges(att *Attestation) ([][]byte, error)
	CreateChallengeResponse(sk *boneh.PrivateKey, att *Attestation, challenge []byte) ([]byte, error)
	CreateCertaintyAggregate(att *Attestation) *Aggregate
	CreateHonestyChallenge(pk *boneh.PublicKey, value int) ([]byte, error)
	ProcessHonestyChallenge(value int, response []byte) bool
	ProcessChallengeResponse(agg *Aggregate, challenge, response []byte) error

	Deserialize(data []byte, idFormat string) (*Attestation, error)
	DeserializePrivate(sk *boneh.PrivateKey, data []byte, idFormat string) (*Attestation, error)
}

// Attestation holds exactly one of Boneh and Range, as selected by Kind.
type Attestation struct {
	Kind     Kind
	IDFormat string
	Boneh    *boneh.Attestation
	Range    *pengbao.Attestation
}

func (a *Attestation) PublicKey() *boneh.PublicKey {
	if a.Kind == PengBaoRange {
		return a.Range.PublicData.PublicKey
	}
	return a.Boneh.PublicKey
}

// Serialize returns the public form sent to verifiers.
func (a *Attestation) Serialize() []byte {
	if a.Kind == PengBaoRange {
		return a.Range.Serialize()
	}
	return a.Boneh.Serialize()
}

// SerializePrivate returns the form stored by the subject.
func (a *Attestation) SerializePrivate() []byte {
	if a.Kind == PengBaoRange {
		return a.Range.SerializePrivate()
	}
	return a.Boneh.Serialize()
}

// Hash is the SHA-1 of the public form.
func (a *Attestation) Hash() [common.HashSize]byte {
	return common.Sha1(a.Serialize())
}

// Aggregate accumulates challenge outcomes of one verification session.
type Aggregate struct {
	Attestation *Attestation

	mu         sync.Mutex
	relativity boneh.RelativityMap
	passed     int
	failed     int
	dishonest  bool
}

func newAggregate(att *Attestation) *Aggregate {
	return &Aggregate{Attestation: att, relativity: boneh.NewRelativityMap()}
}

func (agg *Aggregate) addOutcome(bucket int) {
	agg.mu.Lock()
	defer agg.mu.Unlock()
	agg.relativity[bucket]++
}

func (agg *Aggregate) addCheck(ok bool) {
	agg.mu.Lock()
	defer agg.mu.Unlock()
	if ok {
		agg.passed++
	} else {
		agg.failed++
	}
}

// MarkDishonest records a failed honesty challenge; certainty drops to zero.
func (agg *Aggregate) MarkDishonest() {
	agg.mu.Lock()
	defer agg.mu.Unlock()
	agg.dishonest = true
}

// Relativity returns a copy of the response histogram.
func (agg *Aggregate) Relativity() boneh.RelativityMap {
	agg.mu.Lock()
	defer agg.mu.Unlock()
	m := boneh.NewRelativityMap()
	for k, v := range agg.relativity {
		m[k] = v
	}
	return m
}

// Responses is the number of processed challenge responses.
func (agg *Aggregate) Responses() int {
	agg.mu.Lock()
	defer agg.mu.Unlock()
	return agg.relativity.Total() + agg.passed + agg.failed
}

func (agg *Aggregate) checks() (passed, failed int, dishonest bool) {
	agg.mu.Lock()
	defer agg.mu.Unlock()
	return agg.passed, agg.failed, agg.dishonest
}
