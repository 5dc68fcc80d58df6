package wallet

import (
	"context"
	"encoding/hex"
	"sync"
	"sync/atomic"

	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ipv8go/wallet/big"
	"github.com/ipv8go/wallet/cache"
	"github.com/ipv8go/wallet/internal/common"
	"github.com/ipv8go/wallet/payload"
	"github.com/ipv8go/wallet/schema"
)

type (
	// receiveVerify is the verifier's state while the subject discloses an attestation.
	receiveVerify struct {
		peer     string
		idFormat string
		hash     [payload.HashSize]byte
		alg      schema.Algorithm
		chunks   *payload.Assembler

		once sync.Once
		att  *schema.Attestation
		err  error
	}

	// provingSession collects the responses to the challenges about one attestation. It
	// completes when every challenge is answered.
	provingSession struct {
		peer      string
		id        *big.Int
		alg       schema.Algorithm
		agg       *schema.Aggregate
		remaining int32
	}

	// pendingChallenge is one challenge awaiting its response. Honesty challenges carry the
	// plaintext the response must decode to; regular ones carry -1.
	pendingChallenge struct {
		session   *provingSession
		id        *big.Int
		challenge []byte
		honesty   int
	}
)

// VerifyAttestationValues asks peer to disclose the attestation with the given hash, challenges
// it, and returns the certainty that the attested value equals (or, for range formats, that
// the attestation holds) each of values.
func (c *Community) VerifyAttestationValues(ctx context.Context, peer string, hash [payload.HashSize]byte, values [][]byte, idFormat string) ([]float64, error) {
	if c.revoked.IsRevoked(hash[:]) {
		return nil, errors.WrapPrefix(ErrRevoked, hex.EncodeToString(hash[:]), 0)
	}
	alg, err := c.registry.GetAlgorithmInstance(idFormat)
	if err != nil {
		return nil, err
	}
	att, err := c.fetchAttestation(ctx, peer, hash, alg, idFormat)
	if err != nil {
		return nil, err
	}
	agg, err := c.challenge(ctx, peer, hash, alg, att)
	if err != nil {
		return nil, err
	}

	certainties := make([]float64, len(values))
	for i, v := range values {
		certainties[i] = alg.Certainty(v, agg)
	}
	Logger.WithFields(logrus.Fields{"peer": peer, "hash": hex.EncodeToString(hash[:]), "responses": agg.Responses()}).Debug("verified attestation")
	if c.cfg.OnVerificationResult != nil {
		c.cfg.OnVerificationResult(peer, hash, values, certainties)
	}
	return certainties, nil
}

func (c *Community) fetchAttestation(ctx context.Context, peer string, hash [payload.HashSize]byte, alg schema.Algorithm, idFormat string) (*schema.Attestation, error) {
	state := &receiveVerify{
		peer:     peer,
		idFormat: idFormat,
		hash:     hash,
		alg:      alg,
		chunks:   payload.NewAssembler(c.cfg.ChunkSize),
	}
	id := cache.IDFromHash(prefixReceiveVerify, hash[:])
	entry, err := c.cache.Register(prefixReceiveVerify, id, state)
	if err != nil {
		return nil, err
	}
	if err = c.send(ctx, peer, msgVerifyAttestationRequest, &payload.VerifyAttestationRequest{Hash: hash}); err != nil {
		_, _ = c.cache.Cancel(prefixReceiveVerify, id)
		return nil, err
	}
	if err = entry.Wait(ctx); err != nil {
		return nil, err
	}
	return state.att, state.err
}

func (c *Community) receiveVerifyChunk(peer string, e *cache.Entry, p *payload.AttestationChunk) error {
	state := e.Payload.(*receiveVerify)
	if peer != state.peer {
		return ErrUnexpectedPeer
	}
	blob, done, err := state.chunks.Add(p.Seq, p.Data)
	if err != nil || !done {
		return err
	}
	state.once.Do(func() {
		if common.Sha1(blob) != state.hash {
			state.err = ErrHashMismatch
		} else {
			state.att, state.err = state.alg.Deserialize(blob, state.idFormat)
		}
		_, _ = c.cache.Complete(e.Prefix, e.ID)
	})
	return nil
}

// challenge runs a proving session over att and returns the filled aggregate.
func (c *Community) challenge(ctx context.Context, peer string, hash [payload.HashSize]byte, alg schema.Algorithm, att *schema.Attestation) (*schema.Aggregate, error) {
	challenges, err := alg.CreateChallenges(att)
	if err != nil {
		return nil, err
	}
	pending := make([]*pendingChallenge, 0, len(challenges))
	for _, ch := range challenges {
		pending = append(pending, &pendingChallenge{challenge: ch, honesty: -1})
	}
	if alg.Kind() == schema.BonehExact {
		if pending, err = c.addHonestyChallenges(alg, att, pending); err != nil {
			return nil, err
		}
	}

	if len(pending) == 0 {
		return alg.CreateCertaintyAggregate(att), nil
	}

	session := &provingSession{
		peer:      peer,
		id:        cache.IDFromHash(prefixProving, hash[:]),
		alg:       alg,
		agg:       alg.CreateCertaintyAggregate(att),
		remaining: int32(len(pending)),
	}
	entry, err := c.cache.Register(prefixProving, session.id, session)
	if err != nil {
		return nil, err
	}
	var registered []*cache.Entry
	defer func() {
		// Drop whatever is still outstanding once the session ended.
		for _, e := range registered {
			e.Cancel()
		}
		entry.Cancel()
	}()
	for _, pc := range pending {
		h := common.Sha1(pc.challenge)
		pc.session, pc.id = session, cache.IDFromHash(prefixChallenge, h[:])
		e, err := c.cache.Register(prefixChallenge, pc.id, pc)
		if err != nil {
			return nil, err
		}
		registered = append(registered, e)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Parallelism)
	for _, pc := range pending {
		pc := pc
		g.Go(func() error {
			return c.send(gctx, peer, msgChallenge, &payload.Challenge{AttestationHash: hash, Challenge: pc.challenge})
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	if err = entry.Wait(ctx); err != nil {
		return nil, err
	}
	return session.agg, nil
}

// addHonestyChallenges appends encodings of random known plaintexts and shuffles them in.
func (c *Community) addHonestyChallenges(alg schema.Algorithm, att *schema.Attestation, pending []*pendingChallenge) ([]*pendingChallenge, error) {
	n := big.NewInt(int64(len(schema.HonestyValues)))
	for i := 0; i < c.cfg.HonestyChallenges; i++ {
		v, err := big.RandInt(c.cfg.Random, n)
		if err != nil {
			return nil, err
		}
		value := schema.HonestyValues[v.Int64()]
		ch, err := alg.CreateHonestyChallenge(att.PublicKey(), value)
		if err != nil {
			return nil, err
		}
		pending = append(pending, &pendingChallenge{challenge: ch, honesty: value})
	}
	perm, err := common.Permutation(c.cfg.Random, len(pending))
	if err != nil {
		return nil, err
	}
	shuffled := make([]*pendingChallenge, len(pending))
	for i, j := range perm {
		shuffled[i] = pending[j]
	}
	return shuffled, nil
}

func (c *Community) onChallengeResponse(peer string, p *payload.ChallengeResponse) error {
	id := cache.IDFromHash(prefixChallenge, p.ChallengeHash[:])
	e, ok := c.cache.Get(prefixChallenge, id)
	if !ok {
		return errors.WrapPrefix(cache.ErrUnknownCorrelationID, "challenge response", 0)
	}
	pc := e.Payload.(*pendingChallenge)
	if pc.session.peer != peer {
		return ErrUnexpectedPeer
	}
	if _, err := c.cache.Complete(prefixChallenge, id); err != nil {
		// Answered concurrently.
		return err
	}

	session := pc.session
	var err error
	if pc.honesty >= 0 {
		if !session.alg.ProcessHonestyChallenge(pc.honesty, p.Response) {
			Logger.WithField("peer", peer).Warn("honesty challenge failed")
			session.agg.MarkDishonest()
		}
	} else if err = session.alg.ProcessChallengeResponse(session.agg, pc.challenge, p.Response); err != nil {
		session.agg.MarkDishonest()
	}
	if atomic.AddInt32(&session.remaining, -1) == 0 {
		_, _ = c.cache.Complete(prefixProving, session.id)
	}
	return err
}

// onChallenge answers a challenge about an attestation we hold.
// Only peers whose verification request was approved are answered.
func (c *Community) onChallenge(ctx context.Context, peer string, p *payload.Challenge) error {
	if !c.cache.Has(prefixDisclosure, disclosureID(peer, p.AttestationHash[:])) {
		return errors.WrapPrefix(ErrRequestDeclined, "challenge", 0)
	}
	held, err := c.loadHeld(p.AttestationHash[:])
	if err != nil {
		return err
	}
	resp, err := held.alg.CreateChallengeResponse(held.sk, held.att, p.Challenge)
	if err != nil {
		return err
	}
	return c.send(ctx, peer, msgChallengeResponse, &payload.ChallengeResponse{
		ChallengeHash: common.Sha1(p.Challenge),
		Response:      resp,
	})
}

// onVerifyAttestationRequest discloses the public form of a held attestation.
func (c *Community) onVerifyAttestationRequest(ctx context.Context, peer string, p *payload.VerifyAttestationRequest) error {
	held, err := c.loadHeld(p.Hash[:])
	if err != nil {
		return err
	}
	if c.cfg.OnVerifyRequest != nil && !c.cfg.OnVerifyRequest(peer, p.Hash, held.att.IDFormat) {
		return errors.WrapPrefix(ErrRequestDeclined, "verification", 0)
	}
	// The approval covers the challenges that follow the disclosure.
	_, err = c.cache.Register(prefixDisclosure, disclosureID(peer, p.Hash[:]), nil,
		cache.WithTimeout(2*c.cfg.Timeout))
	if err != nil && !errors.Is(err, cache.ErrDuplicateCorrelationID) {
		return err
	}
	return c.sendChunks(ctx, peer, msgAttestationChunk, p.Hash, held.att.Serialize())
}

// disclosureID identifies an approved disclosure of an attestation to a peer.
func disclosureID(peer string, hash []byte) *big.Int {
	h := common.Sha1(append(append([]byte(nil), hash...), peer...))
	return cache.IDFromHash(prefixDisclosure, h[:])
}
