package wallet

import (
	"context"
	"encoding/hex"
	"sync"

	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"

	"github.com/ipv8go/wallet/cache"
	"github.com/ipv8go/wallet/internal/common"
	"github.com/ipv8go/wallet/payload"
	"github.com/ipv8go/wallet/store"
)

// receiveAttestation is the subject's state while an authority sends an attestation. The
// chunks are keyed by the hash of the public key the subject sent along with its request.
type receiveAttestation struct {
	peer     string
	idFormat string
	keyID    string
	chunks   *payload.Assembler

	once sync.Once
	hash [payload.HashSize]byte
	err  error
}

// RequestAttestation asks the authority at peer to attest attribute in the given format. It
// blocks until the attestation is received and stored, and returns its hash.
func (c *Community) RequestAttestation(ctx context.Context, peer, attribute, idFormat string, metadata map[string]string) ([payload.HashSize]byte, error) {
	var hash [payload.HashSize]byte
	alg, err := c.registry.GetAlgorithmInstance(idFormat)
	if err != nil {
		return hash, err
	}
	sk, err := alg.GenerateSecrets()
	if err != nil {
		return hash, err
	}
	pk := sk.Public().Serialize()
	keyHash := common.Sha1(pk)
	keyID := hex.EncodeToString(keyHash[:])
	if err = c.cfg.Vault.Import(keyID, sk.Serialize()); err != nil {
		return hash, err
	}
	defer func() {
		_ = c.cfg.Vault.Delete(keyID)
	}()

	state := &receiveAttestation{
		peer:     peer,
		idFormat: idFormat,
		keyID:    keyID,
		chunks:   payload.NewAssembler(c.cfg.ChunkSize),
	}
	id := cache.IDFromHash(prefixReceiveAttestation, keyHash[:])
	entry, err := c.cache.Register(prefixReceiveAttestation, id, state)
	if err != nil {
		return hash, err
	}

	meta, err := (&requestMetadata{
		Attribute: attribute,
		PublicKey: hex.EncodeToString(pk),
		IDFormat:  idFormat,
		Metadata:  metadata,
	}).encode()
	if err == nil {
		err = c.send(ctx, peer, msgRequestAttestation, &payload.RequestAttestation{Metadata: meta})
	}
	if err != nil {
		_, _ = c.cache.Cancel(prefixReceiveAttestation, id)
		return hash, err
	}

	Logger.WithFields(logrus.Fields{"peer": peer, "attribute": attribute, "format": idFormat}).Debug("requested attestation")
	if err = entry.Wait(ctx); err != nil {
		return hash, err
	}
	return state.hash, state.err
}

// onRequestAttestation attests the value the application supplies for the request.
func (c *Community) onRequestAttestation(ctx context.Context, peer string, p *payload.RequestAttestation) error {
	meta, err := decodeMetadata(p.Metadata)
	if err != nil {
		return err
	}
	if c.cfg.OnAttestationRequest == nil {
		return errors.WrapPrefix(ErrRequestDeclined, "not an attestation authority", 0)
	}
	alg, err := c.registry.GetAlgorithmInstance(meta.IDFormat)
	if err != nil {
		return err
	}
	pkBytes, err := hex.DecodeString(meta.PublicKey)
	if err != nil {
		return errors.WrapPrefix(payload.ErrMalformed, "public key encoding", 0)
	}
	pk, err := alg.LoadPublicKey(pkBytes)
	if err != nil {
		return err
	}

	value, err := c.cfg.OnAttestationRequest(peer, meta.Attribute, meta.Metadata)
	if err != nil {
		return errors.WrapPrefix(ErrRequestDeclined, err.Error(), 0)
	}
	blob, err := alg.Attest(pk, value)
	if err != nil {
		return err
	}

	Logger.WithFields(logrus.Fields{"peer": peer, "attribute": meta.Attribute, "format": meta.IDFormat}).Info("attesting")
	return c.sendChunks(ctx, peer, msgAttestationChunk, common.Sha1(pkBytes), blob)
}

func (c *Community) onAttestationChunk(peer string, p *payload.AttestationChunk) error {
	id := cache.IDFromHash(prefixReceiveAttestation, p.Hash[:])
	if e, ok := c.cache.Get(prefixReceiveVerify, id); ok {
		return c.receiveVerifyChunk(peer, e, p)
	}
	if e, ok := c.cache.Get(prefixReceiveAttestation, id); ok {
		return c.receiveAttestationChunk(peer, e, p)
	}
	return errors.WrapPrefix(cache.ErrUnknownCorrelationID, "attestation chunk", 0)
}

func (c *Community) receiveAttestationChunk(peer string, e *cache.Entry, p *payload.AttestationChunk) error {
	state := e.Payload.(*receiveAttestation)
	if peer != state.peer {
		return ErrUnexpectedPeer
	}
	blob, done, err := state.chunks.Add(p.Seq, p.Data)
	if err != nil || !done {
		return err
	}
	state.once.Do(func() {
		state.hash, state.err = c.storeAttestation(state, blob)
		_, _ = c.cache.Complete(e.Prefix, e.ID)
	})
	return nil
}

func (c *Community) storeAttestation(state *receiveAttestation, blob []byte) ([payload.HashSize]byte, error) {
	var hash [payload.HashSize]byte
	alg, err := c.registry.GetAlgorithmInstance(state.idFormat)
	if err != nil {
		return hash, err
	}
	skBytes, err := c.cfg.Vault.Get(state.keyID)
	if err != nil {
		return hash, err
	}
	sk, err := alg.LoadSecretKey(skBytes)
	if err != nil {
		return hash, err
	}
	att, err := alg.DeserializePrivate(sk, blob, state.idFormat)
	if err != nil {
		return hash, err
	}
	hash = att.Hash()
	err = c.db.Insert(&store.Record{Hash: hash[:], Blob: blob, SecretKey: skBytes, IDFormat: state.idFormat})
	if err != nil {
		return hash, err
	}
	Logger.WithFields(logrus.Fields{"peer": state.peer, "hash": hex.EncodeToString(hash[:])}).Info("stored attestation")
	return hash, nil
}
