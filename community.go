package wallet

import (
	"context"
	"encoding"
	"encoding/hex"
	"sync"

	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ipv8go/wallet/boneh"
	"github.com/ipv8go/wallet/cache"
	"github.com/ipv8go/wallet/keyvault"
	"github.com/ipv8go/wallet/payload"
	"github.com/ipv8go/wallet/revocation"
	"github.com/ipv8go/wallet/schema"
	"github.com/ipv8go/wallet/store"
)

// Exchange prefixes in the correlation cache.
const (
	prefixReceiveAttestation = "receive-attestation"
	prefixReceiveVerify      = "receive-verify"
	prefixProving            = "proving-attestation"
	prefixChallenge          = "pending-challenge"
	prefixRevocation         = "pending-revocation"
	prefixDisclosure         = "approved-disclosure"
)

var (
	ErrRevoked         = errors.New("attestation revoked")
	ErrUnknownMessage  = errors.New("unknown message id")
	ErrUnexpectedPeer  = errors.New("message from unexpected peer")
	ErrHashMismatch    = errors.New("attestation does not match its hash")
	ErrRequestDeclined = errors.New("request declined")
)

type (
	// Transport delivers framed messages to a peer address.
	Transport interface {
		Send(ctx context.Context, peer string, data []byte) error
	}

	// Store persists the attestations of a subject and the revocation updates it applied.
	Store interface {
		Insert(r *store.Record) error
		Get(hash []byte) (*store.Record, error)
		Delete(hash []byte) error
		revocation.Store
	}

	// Community plays every role of the protocol: subject, authority and verifier. Incoming
	// messages are passed to HandleMessage, which may be called concurrently.
	Community struct {
		cfg         Config
		transport   Transport
		registry    *schema.Registry
		db          Store
		cache       *cache.Cache
		revoked     *revocation.List
		authorities map[string]*keyvault.PublicKey
		revokeMu    sync.Mutex

		held sync.Map // hex hash -> *heldAttestation
	}

	// heldAttestation is a loaded attestation of which we are the subject.
	heldAttestation struct {
		alg schema.Algorithm
		sk  *boneh.PrivateKey
		att *schema.Attestation
	}
)

// New creates a community and restores the revocation state stored in db.
func New(transport Transport, registry *schema.Registry, db Store, cfg Config) (*Community, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}
	opts := []cache.Option{cache.WithDefaultTimeout(cfg.Timeout), cache.WithRandom(cfg.Random)}
	if cfg.Registerer != nil {
		opts = append(opts, cache.WithRegisterer(cfg.Registerer))
	}
	c := &Community{
		cfg:         cfg,
		transport:   transport,
		registry:    registry,
		db:          db,
		revoked:     revocation.NewList(db),
		authorities: map[string]*keyvault.PublicKey{},
	}
	for _, pk := range cfg.Authorities {
		c.authorities[revocation.AuthorityID(pk)] = pk
	}
	if err := c.revoked.Load(c.authorities); err != nil {
		return nil, errors.WrapPrefix(err, "failed to load revocation updates", 0)
	}
	c.cache = cache.New(opts...)
	return c, nil
}

// Close cancels all outstanding exchanges.
func (c *Community) Close() {
	c.cache.Close()
}

// IsRevoked reports whether a trusted authority revoked the attestation.
func (c *Community) IsRevoked(hash [payload.HashSize]byte) bool {
	return c.revoked.IsRevoked(hash[:])
}

// HandleMessage processes one framed message from peer. Malformed or unexpected messages are
// logged and dropped; the error is returned for the caller's information only.
func (c *Community) HandleMessage(ctx context.Context, peer string, data []byte) error {
	if len(data) == 0 {
		return errors.WrapPrefix(payload.ErrMalformed, "empty message", 0)
	}
	var err error
	body := data[1:]
	switch data[0] {
	case msgVerifyAttestationRequest:
		p := &payload.VerifyAttestationRequest{}
		if err = p.UnmarshalBinary(body); err == nil {
			err = c.onVerifyAttestationRequest(ctx, peer, p)
		}
	case msgAttestationChunk:
		p := &payload.AttestationChunk{}
		if err = p.UnmarshalBinary(body); err == nil {
			err = c.onAttestationChunk(peer, p)
		}
	case msgChallenge:
		p := &payload.Challenge{}
		if err = p.UnmarshalBinary(body); err == nil {
			err = c.onChallenge(ctx, peer, p)
		}
	case msgChallengeResponse:
		p := &payload.ChallengeResponse{}
		if err = p.UnmarshalBinary(body); err == nil {
			err = c.onChallengeResponse(peer, p)
		}
	case msgRequestAttestation:
		p := &payload.RequestAttestation{}
		if err = p.UnmarshalBinary(body); err == nil {
			err = c.onRequestAttestation(ctx, peer, p)
		}
	case msgRevocationUpdateChunk:
		p := &payload.RevocationUpdateChunk{}
		if err = p.UnmarshalBinary(body); err == nil {
			err = c.onRevocationUpdateChunk(peer, p)
		}
	default:
		err = errors.WrapPrefix(ErrUnknownMessage, hex.EncodeToString(data[:1]), 0)
	}
	if err != nil {
		Logger.WithFields(logrus.Fields{"peer": peer, "message": data[0]}).Warn("dropped message: ", err)
	}
	return err
}

func (c *Community) send(ctx context.Context, peer string, id byte, p encoding.BinaryMarshaler) error {
	data, err := frame(id, p)
	if err != nil {
		return err
	}
	return c.transport.Send(ctx, peer, data)
}

// sendChunks splits blob and sends the chunks concurrently.
func (c *Community) sendChunks(ctx context.Context, peer string, id byte, hash [payload.HashSize]byte, blob []byte) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Parallelism)
	for i, chunk := range payload.Split(blob, c.cfg.ChunkSize) {
		var p encoding.BinaryMarshaler
		if id == msgRevocationUpdateChunk {
			p = &payload.RevocationUpdateChunk{Hash: hash, Seq: uint32(i), Data: chunk}
		} else {
			p = &payload.AttestationChunk{Hash: hash, Seq: uint32(i), Data: chunk}
		}
		g.Go(func() error {
			return c.send(ctx, peer, id, p)
		})
	}
	return g.Wait()
}

// loadHeld returns the stored attestation with the given hash, with its secret key.
func (c *Community) loadHeld(hash []byte) (*heldAttestation, error) {
	k := hex.EncodeToString(hash)
	if h, ok := c.held.Load(k); ok {
		return h.(*heldAttestation), nil
	}
	rec, err := c.db.Get(hash)
	if err != nil {
		return nil, err
	}
	alg, err := c.registry.GetAlgorithmInstance(rec.IDFormat)
	if err != nil {
		return nil, err
	}
	sk, err := alg.LoadSecretKey(rec.SecretKey)
	if err != nil {
		return nil, err
	}
	att, err := alg.DeserializePrivate(sk, rec.Blob, rec.IDFormat)
	if err != nil {
		return nil, err
	}
	h := &heldAttestation{alg: alg, sk: sk, att: att}
	c.held.Store(k, h)
	return h, nil
}
