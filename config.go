package wallet

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ipv8go/wallet/cache"
	"github.com/ipv8go/wallet/internal/common"
	"github.com/ipv8go/wallet/keyvault"
	"github.com/ipv8go/wallet/payload"
	"github.com/ipv8go/wallet/revocation"
)

const (
	DefaultChunkSize         = 800
	DefaultHonestyChallenges = 3
	DefaultParallelism       = 8
)

// Config configures a Community. Zero fields take the defaults.
type Config struct {
	// ChunkSize is the largest chunk of a serialized attestation or revocation update sent
	// in one message. Peers must agree on it.
	ChunkSize int
	// Timeout bounds every exchange except revocation broadcasts, which use
	// cache.RevocationTimeout.
	Timeout time.Duration
	// HonestyChallenges is the number of known-plaintext challenges mixed into an exact
	// verification. Negative disables them.
	HonestyChallenges int
	// Parallelism bounds the concurrent sends of one exchange.
	Parallelism int

	Random io.Reader
	// Vault holds the secret keys of outstanding attestation requests.
	Vault keyvault.Vault
	// Authorities are trusted to revoke attestations.
	Authorities []*keyvault.PublicKey
	// Registerer, when set, exposes the exchange metrics.
	Registerer prometheus.Registerer

	// OnAttestationRequest returns the value to attest for peer, or an error to decline.
	// A nil callback declines every request.
	OnAttestationRequest func(peer, attribute string, metadata map[string]string) ([]byte, error)
	// OnVerifyRequest approves disclosing an attestation to peer. Nil approves all.
	OnVerifyRequest func(peer string, hash [payload.HashSize]byte, idFormat string) bool
	// OnVerificationResult receives the certainty of every value a verification checked.
	OnVerificationResult func(peer string, hash [payload.HashSize]byte, values [][]byte, certainties []float64)
	// OnRevocation is called for every newly applied revocation update.
	OnRevocation func(authority string, u *revocation.Update)
}

func (cfg *Config) setDefaults() error {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = cache.DefaultTimeout
	}
	if cfg.HonestyChallenges == 0 {
		cfg.HonestyChallenges = DefaultHonestyChallenges
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultParallelism
	}
	if cfg.Random == nil {
		rnd, err := common.NewRandom()
		if err != nil {
			return err
		}
		cfg.Random = rnd
	}
	if cfg.Vault == nil {
		cfg.Vault = keyvault.NewMemoryVault()
	}
	return nil
}
