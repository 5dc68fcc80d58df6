package wallet

import (
	"context"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipv8go/wallet/cache"
	"github.com/ipv8go/wallet/keyvault"
	"github.com/ipv8go/wallet/payload"
	"github.com/ipv8go/wallet/revocation"
	"github.com/ipv8go/wallet/schema"
	"github.com/ipv8go/wallet/store"
)

func init() {
	Logger.SetLevel(logrus.FatalLevel)
}

// loopback delivers messages between communities in one process. Peers listed in silent
// swallow everything sent to them.
type loopback struct {
	mu        sync.Mutex
	peers     map[string]*Community
	silent    map[string]bool
	chunkSize int
}

type endpoint struct {
	net  *loopback
	addr string
}

func newLoopback() *loopback {
	return &loopback{peers: map[string]*Community{}, silent: map[string]bool{}}
}

func (e *endpoint) Send(_ context.Context, peer string, data []byte) error {
	e.net.mu.Lock()
	target, silent := e.net.peers[peer], e.net.silent[peer]
	e.net.mu.Unlock()
	if silent {
		return nil
	}
	if target == nil {
		return errors.Errorf("no route to %s", peer)
	}
	data = append([]byte(nil), data...)
	go func() {
		_ = target.HandleMessage(context.Background(), e.addr, data)
	}()
	return nil
}

func (l *loopback) join(t *testing.T, addr string, cfg Config) *Community {
	cfg.ChunkSize = l.chunkSize
	registry := schema.NewRegistry()
	registry.RegisterDefaults()
	c, err := New(&endpoint{net: l, addr: addr}, registry, store.NewMemory(), cfg)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	l.mu.Lock()
	l.peers[addr] = c
	l.mu.Unlock()
	return c
}

func attester(value []byte) func(string, string, map[string]string) ([]byte, error) {
	return func(peer, attribute string, _ map[string]string) ([]byte, error) {
		if attribute != "name" {
			return nil, errors.New("unknown attribute")
		}
		return value, nil
	}
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestExactAttestation(t *testing.T) {
	net := newLoopback()
	net.chunkSize = 64
	net.join(t, "authority", Config{OnAttestationRequest: attester([]byte("MyAttribute"))})
	subject := net.join(t, "subject", Config{})
	var results [][]float64
	verifier := net.join(t, "verifier", Config{
		OnVerificationResult: func(_ string, _ [payload.HashSize]byte, _ [][]byte, certainties []float64) {
			results = append(results, certainties)
		},
	})
	ctx := testContext(t)

	hash, err := subject.RequestAttestation(ctx, "authority", "name", "id_metadata", map[string]string{"purpose": "test"})
	require.NoError(t, err)

	certainties, err := verifier.VerifyAttestationValues(ctx, "subject", hash, [][]byte{[]byte("MyAttribute"), []byte("Other")}, "id_metadata")
	require.NoError(t, err)
	require.Len(t, certainties, 2)
	assert.Greater(t, certainties[0], 0.99)
	assert.Equal(t, 0.0, certainties[1])
	assert.Equal(t, [][]float64{certainties}, results)

	// Sessions leave nothing behind.
	assert.Equal(t, 0, verifier.cache.Len())
}

func TestRangeAttestation(t *testing.T) {
	net := newLoopback()
	net.join(t, "authority", Config{OnAttestationRequest: attester([]byte{25})})
	subject := net.join(t, "subject", Config{})
	verifier := net.join(t, "verifier", Config{})
	ctx := testContext(t)

	hash, err := subject.RequestAttestation(ctx, "authority", "name", "id_metadata_range_18plus", nil)
	require.NoError(t, err)
	certainties, err := verifier.VerifyAttestationValues(ctx, "subject", hash, [][]byte{nil}, "id_metadata_range_18plus")
	require.NoError(t, err)
	assert.Greater(t, certainties[0], 0.99)
}

func TestDeclinedAttestation(t *testing.T) {
	net := newLoopback()
	net.join(t, "authority", Config{OnAttestationRequest: attester([]byte("x"))})
	subject := net.join(t, "subject", Config{Timeout: 200 * time.Millisecond})

	_, err := subject.RequestAttestation(testContext(t), "authority", "age", "id_metadata", nil)
	assert.True(t, errors.Is(err, cache.ErrTimeout))

	_, err = subject.RequestAttestation(testContext(t), "authority", "name", "no_such_format", nil)
	assert.True(t, errors.Is(err, schema.ErrUnknownSchema))
}

func TestVerifyTimeout(t *testing.T) {
	net := newLoopback()
	net.silent["subject"] = true
	verifier := net.join(t, "verifier", Config{Timeout: 200 * time.Millisecond})

	var hash [payload.HashSize]byte
	_, err := verifier.VerifyAttestationValues(testContext(t), "subject", hash, [][]byte{[]byte("v")}, "id_metadata")
	assert.True(t, errors.Is(err, cache.ErrTimeout))
	assert.Equal(t, 0, verifier.cache.Len())
}

func TestVerifyDeclined(t *testing.T) {
	net := newLoopback()
	net.join(t, "authority", Config{OnAttestationRequest: attester([]byte("MyAttribute"))})
	subject := net.join(t, "subject", Config{
		OnVerifyRequest: func(peer string, _ [payload.HashSize]byte, _ string) bool { return peer != "stranger" },
	})
	stranger := net.join(t, "stranger", Config{Timeout: 200 * time.Millisecond})
	ctx := testContext(t)

	hash, err := subject.RequestAttestation(ctx, "authority", "name", "id_metadata", nil)
	require.NoError(t, err)
	_, err = stranger.VerifyAttestationValues(ctx, "subject", hash, [][]byte{[]byte("MyAttribute")}, "id_metadata")
	assert.True(t, errors.Is(err, cache.ErrTimeout))
}

func TestChallengeWithoutDisclosure(t *testing.T) {
	net := newLoopback()
	net.join(t, "authority", Config{OnAttestationRequest: attester([]byte("MyAttribute"))})
	subject := net.join(t, "subject", Config{
		OnVerifyRequest: func(peer string, _ [payload.HashSize]byte, _ string) bool { return peer != "stranger" },
	})
	stranger := net.join(t, "stranger", Config{Timeout: 200 * time.Millisecond})
	verifier := net.join(t, "verifier", Config{})
	ctx := testContext(t)

	hash, err := subject.RequestAttestation(ctx, "authority", "name", "id_metadata", nil)
	require.NoError(t, err)

	// The stranger holds the public attestation from elsewhere and challenges directly.
	held, err := subject.loadHeld(hash[:])
	require.NoError(t, err)
	alg, err := stranger.registry.GetAlgorithmInstance("id_metadata")
	require.NoError(t, err)
	att, err := alg.Deserialize(held.att.Serialize(), "id_metadata")
	require.NoError(t, err)
	_, err = stranger.challenge(ctx, "subject", hash, alg, att)
	assert.True(t, errors.Is(err, cache.ErrTimeout))

	err = subject.onChallenge(ctx, "stranger", &payload.Challenge{AttestationHash: hash, Challenge: []byte{1}})
	assert.True(t, errors.Is(err, ErrRequestDeclined))
	assert.False(t, subject.cache.Has(prefixDisclosure, disclosureID("stranger", hash[:])))

	// An approved verifier is still answered.
	certainties, err := verifier.VerifyAttestationValues(ctx, "subject", hash, [][]byte{[]byte("MyAttribute")}, "id_metadata")
	require.NoError(t, err)
	assert.Greater(t, certainties[0], 0.99)
	assert.True(t, subject.cache.Has(prefixDisclosure, disclosureID("verifier", hash[:])))
}

func TestRevocation(t *testing.T) {
	sk, err := keyvault.GenerateKey(rand.Reader)
	require.NoError(t, err)
	net := newLoopback()
	net.chunkSize = 32
	authority := net.join(t, "authority", Config{OnAttestationRequest: attester([]byte("MyAttribute"))})
	subject := net.join(t, "subject", Config{})
	revoked := make(chan *revocation.Update, 1)
	verifier := net.join(t, "verifier", Config{
		Authorities: []*keyvault.PublicKey{sk.Public()},
		OnRevocation: func(_ string, u *revocation.Update) {
			revoked <- u
		},
	})
	ctx := testContext(t)

	hash, err := subject.RequestAttestation(ctx, "authority", "name", "id_metadata", nil)
	require.NoError(t, err)

	u, err := authority.Revoke(ctx, sk, []string{"verifier", "subject"}, hash[:])
	require.NoError(t, err)
	assert.Equal(t, uint64(1), u.Version)
	assert.True(t, authority.IsRevoked(hash))

	select {
	case got := <-revoked:
		assert.Equal(t, u.ID, got.ID)
	case <-ctx.Done():
		t.Fatal("revocation update not applied")
	}
	assert.True(t, verifier.IsRevoked(hash))
	// The subject does not trust the authority's revocations.
	assert.False(t, subject.IsRevoked(hash))

	_, err = verifier.VerifyAttestationValues(ctx, "subject", hash, [][]byte{[]byte("MyAttribute")}, "id_metadata")
	assert.True(t, errors.Is(err, ErrRevoked))

	u, err = authority.Revoke(ctx, sk, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), u.Version)
}

func TestRevocationsPersist(t *testing.T) {
	sk, err := keyvault.GenerateKey(rand.Reader)
	require.NoError(t, err)
	db := store.NewMemory()
	registry := schema.NewRegistry()
	cfg := Config{Authorities: []*keyvault.PublicKey{sk.Public()}}

	net := newLoopback()
	authority := net.join(t, "authority", Config{})
	c, err := New(&endpoint{net: net, addr: "verifier"}, registry, db, cfg)
	require.NoError(t, err)
	net.mu.Lock()
	net.peers["verifier"] = c
	net.mu.Unlock()

	applied := make(chan struct{})
	c.cfg.OnRevocation = func(string, *revocation.Update) { close(applied) }
	hash := []byte("0123456789abcdef0123")
	_, err = authority.Revoke(testContext(t), sk, []string{"verifier"}, hash)
	require.NoError(t, err)
	<-applied
	c.Close()

	restarted, err := New(&endpoint{net: net, addr: "verifier"}, registry, db, cfg)
	require.NoError(t, err)
	defer restarted.Close()
	var h [payload.HashSize]byte
	copy(h[:], hash)
	assert.True(t, restarted.IsRevoked(h))
}

func TestHandleMalformed(t *testing.T) {
	net := newLoopback()
	c := net.join(t, "peer", Config{})
	ctx := context.Background()

	assert.True(t, errors.Is(c.HandleMessage(ctx, "x", nil), payload.ErrMalformed))
	assert.True(t, errors.Is(c.HandleMessage(ctx, "x", []byte{msgChallenge, 1, 2}), payload.ErrMalformed))
	assert.True(t, errors.Is(c.HandleMessage(ctx, "x", []byte{0xff}), ErrUnknownMessage))

	resp, err := frame(msgChallengeResponse, &payload.ChallengeResponse{Response: []byte{1}})
	require.NoError(t, err)
	assert.True(t, errors.Is(c.HandleMessage(ctx, "x", resp), cache.ErrUnknownCorrelationID))

	req, err := frame(msgRequestAttestation, &payload.RequestAttestation{Metadata: `{"attribute":"name"}`})
	require.NoError(t, err)
	assert.True(t, errors.Is(c.HandleMessage(ctx, "x", req), payload.ErrMalformed))
}

func TestConcurrentRevoke(t *testing.T) {
	sk, err := keyvault.GenerateKey(rand.Reader)
	require.NoError(t, err)
	authority := newLoopback().join(t, "authority", Config{})
	ctx := testContext(t)

	const n = 8
	versions := make([]uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hash := [payload.HashSize]byte{byte(i + 1)}
			u, err := authority.Revoke(ctx, sk, nil, hash[:])
			if assert.NoError(t, err) {
				versions[i] = u.Version
			}
		}(i)
	}
	wg.Wait()

	assert.ElementsMatch(t, []uint64{1, 2, 3, 4, 5, 6, 7, 8}, versions)
	assert.Equal(t, uint64(n), authority.revoked.Version(revocation.AuthorityID(sk.Public())))
	for i := 0; i < n; i++ {
		assert.True(t, authority.IsRevoked([payload.HashSize]byte{byte(i + 1)}))
	}
}
