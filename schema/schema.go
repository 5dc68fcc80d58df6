// Package schema maps named identity formats to the attestation algorithm and parameters that
// handle them.
package schema

import (
	"io"
	"sort"
	"sync"

	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"

	"github.com/ipv8go/wallet/boneh"
)

var Logger *logrus.Logger

func init() {
	Logger = logrus.New()
}

var (
	ErrUnknownSchema        = errors.New("unknown schema")
	ErrUnknownAlgorithm     = errors.New("unknown algorithm")
	ErrUnsupportedAlgorithm = errors.New("algorithm not supported")
)

type (
	// Parameters configure one format. Min and Max only apply to range algorithms.
	Parameters struct {
		KeySize uint   `mapstructure:"key_size"`
		Hash    string `mapstructure:"hash"`
		Min     int64  `mapstructure:"min"`
		Max     int64  `mapstructure:"max"`
	}

	// Format is a registered schema.
	Format struct {
		Name      string
		Algorithm string
		Parameters
	}

	// Registry is safe for concurrent use; lookups take a read lock.
	Registry struct {
		mu      sync.RWMutex
		formats map[string]Format
		random  io.Reader
	}

	Option func(*Registry)
)

// WithRandom sets the randomness source handed to every algorithm instance.
func WithRandom(rnd io.Reader) Option {
	return func(r *Registry) {
		r.random = rnd
	}
}

// NewRegistry returns an empty registry. Without WithRandom, instances draw from crypto/rand.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{formats: map[string]Format{}}
	for _, opt := range opts {
		opt(r)
	}
	if r.random == nil {
		r.random = defaultRandom()
	}
	return r
}

// RegisterSchema inserts or replaces the format called name.
func (r *Registry) RegisterSchema(name, algorithmName string, params Parameters) {
	r.mu.Lock()
	defer r.mu.Unlock()
	Logger.WithFields(logrus.Fields{"schema": name, "algorithm": algorithmName}).Debug("registering schema")
	r.formats[name] = Format{Name: name, Algorithm: algorithmName, Parameters: params}
}

// RegisterDefaults installs the standard identity formats.
func (r *Registry) RegisterDefaults() {
	r.RegisterSchema("id_metadata", AlgorithmBonehExact, Parameters{KeySize: 32, Hash: HashSHA256Truncated})
	r.RegisterSchema("id_metadata_big", AlgorithmBonehExact, Parameters{KeySize: 64, Hash: HashSHA256})
	r.RegisterSchema("id_metadata_huge", AlgorithmBonehExact, Parameters{KeySize: 96, Hash: HashSHA512})
	r.RegisterSchema("id_metadata_range_18plus", AlgorithmPengBaoRange, Parameters{KeySize: 32, Min: 18, Max: 200})
	r.RegisterSchema("id_metadata_range_underage", AlgorithmPengBaoRange, Parameters{KeySize: 32, Min: 0, Max: 17})
}

// Formats lists the registered names in sorted order.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.formats))
	for name := range r.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Format(name string) (Format, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formats[name]
	if !ok {
		return Format{}, errors.WrapPrefix(ErrUnknownSchema, name, 0)
	}
	return f, nil
}

// GetAlgorithmInstance builds the algorithm handling name, bound to a snapshot of all
// registered formats.
func (r *Registry) GetAlgorithmInstance(name string) (Algorithm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formats[name]
	if !ok {
		return nil, errors.WrapPrefix(ErrUnknownSchema, name, 0)
	}
	formats := make(map[string]Format, len(r.formats))
	for k, v := range r.formats {
		formats[k] = v
	}
	switch f.Algorithm {
	case AlgorithmBonehExact:
		if _, _, err := HashValue(f.Hash, nil); err != nil {
			return nil, errors.WrapPrefix(err, name, 0)
		}
		return &bonehAlgorithm{format: f, formats: formats, random: r.random}, nil
	case AlgorithmPengBaoRange:
		if f.Min < 0 || f.Min > f.Max {
			return nil, errors.Errorf("%s: invalid range [%d, %d]", name, f.Min, f.Max)
		}
		return &rangeAlgorithm{format: f, formats: formats, random: r.random}, nil
	case AlgorithmIrmaExact:
		return nil, errors.WrapPrefix(ErrUnsupportedAlgorithm, f.Algorithm, 0)
	default:
		return nil, errors.WrapPrefix(ErrUnknownAlgorithm, f.Algorithm, 0)
	}
}

// Deserialize parses a public attestation in the layout of the named format.
func (r *Registry) Deserialize(data []byte, name string) (*Attestation, error) {
	alg, err := r.GetAlgorithmInstance(name)
	if err != nil {
		return nil, err
	}
	return alg.Deserialize(data, name)
}

// DeserializePrivate parses an attestation held by the subject owning sk.
func (r *Registry) DeserializePrivate(sk *boneh.PrivateKey, data []byte, name string) (*Attestation, error) {
	alg, err := r.GetAlgorithmInstance(name)
	if err != nil {
		return nil, err
	}
	return alg.DeserializePrivate(sk, data, name)
}

func compatible(own Format, formats map[string]Format, name string) bool {
	other, ok := formats[name]
	return ok && other.Algorithm == own.Algorithm && other.KeySize == own.KeySize
}
