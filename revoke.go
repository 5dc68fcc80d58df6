package wallet

import (
	"context"
	"sync"

	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ipv8go/wallet/cache"
	"github.com/ipv8go/wallet/cbor"
	"github.com/ipv8go/wallet/internal/common"
	"github.com/ipv8go/wallet/keyvault"
	"github.com/ipv8go/wallet/payload"
	"github.com/ipv8go/wallet/revocation"
)

type (
	// revocationEnvelope is the broadcast form of a signed update.
	revocationEnvelope struct {
		Authority []byte // PKIX public key
		Update    keyvault.Message
	}

	pendingRevocation struct {
		chunks *payload.Assembler
		once   sync.Once
	}
)

// Revoke signs an update revoking the given attestation hashes under the next version of
// the authority sk, applies it locally and broadcasts it to peers.
func (c *Community) Revoke(ctx context.Context, sk *keyvault.PrivateKey, peers []string, hashes ...[]byte) (*revocation.Update, error) {
	pk := sk.Public()
	u, msg, err := c.signNextUpdate(sk, hashes)
	if err != nil {
		return nil, err
	}
	pkBytes, err := pk.Marshal()
	if err != nil {
		return nil, err
	}
	blob, err := cbor.Marshal(&revocationEnvelope{Authority: pkBytes, Update: msg})
	if err != nil {
		return nil, err
	}

	hash := common.Sha1(blob)
	g, gctx := errgroup.WithContext(ctx)
	for _, peer := range peers {
		peer := peer
		g.Go(func() error {
			return c.sendChunks(gctx, peer, msgRevocationUpdateChunk, hash, blob)
		})
	}
	Logger.WithFields(logrus.Fields{"update": u.ID, "version": u.Version, "peers": len(peers)}).Info("broadcasting revocation update")
	return u, g.Wait()
}

func (c *Community) onRevocationUpdateChunk(peer string, p *payload.RevocationUpdateChunk) error {
	id := cache.IDFromHash(prefixRevocation, p.Hash[:])
	e, ok := c.cache.Get(prefixRevocation, id)
	if !ok {
		var err error
		state := &pendingRevocation{chunks: payload.NewAssembler(c.cfg.ChunkSize)}
		e, err = c.cache.Register(prefixRevocation, id, state, cache.WithTimeout(cache.RevocationTimeout))
		if errors.Is(err, cache.ErrDuplicateCorrelationID) {
			e, ok = c.cache.Get(prefixRevocation, id)
			if !ok {
				return err
			}
		} else if err != nil {
			return err
		}
	}

	state := e.Payload.(*pendingRevocation)
	blob, done, err := state.chunks.Add(p.Seq, p.Data)
	if err != nil || !done {
		return err
	}
	state.once.Do(func() {
		err = c.applyRevocation(peer, p.Hash, blob)
		_, _ = c.cache.Complete(e.Prefix, e.ID)
	})
	return err
}

func (c *Community) applyRevocation(peer string, hash [payload.HashSize]byte, blob []byte) error {
	if common.Sha1(blob) != hash {
		return errors.WrapPrefix(payload.ErrMalformed, "revocation update hash", 0)
	}
	if !cbor.Wellformed(blob) {
		return errors.WrapPrefix(payload.ErrMalformed, "revocation update encoding", 0)
	}
	env := &revocationEnvelope{}
	if err := cbor.Unmarshal(blob, env); err != nil {
		return errors.WrapPrefix(payload.ErrMalformed, err.Error(), 0)
	}
	pk, err := keyvault.UnmarshalPublicKey(env.Authority)
	if err != nil {
		return errors.WrapPrefix(payload.ErrMalformed, err.Error(), 0)
	}
	authority := revocation.AuthorityID(pk)
	trusted, ok := c.authorities[authority]
	if !ok {
		return errors.WrapPrefix(revocation.ErrUnknownAuthority, authority, 0)
	}

	u, err := c.revoked.Apply(trusted, env.Update)
	if errors.Is(err, revocation.ErrStaleUpdate) {
		Logger.WithFields(logrus.Fields{"peer": peer, "authority": authority, "version": u.Version}).Debug("ignoring known revocation update")
		return nil
	}
	if err != nil {
		return err
	}
	if c.cfg.OnRevocation != nil {
		c.cfg.OnRevocation(authority, u)
	}
	return nil
}

// signNextUpdate signs and applies the next version for the authority sk. Concurrent
// revocations are serialized so that each claims its own version.
func (c *Community) signNextUpdate(sk *keyvault.PrivateKey, hashes [][]byte) (*revocation.Update, keyvault.Message, error) {
	c.revokeMu.Lock()
	defer c.revokeMu.Unlock()
	pk := sk.Public()
	u := revocation.NewUpdate(c.revoked.Version(revocation.AuthorityID(pk))+1, hashes...)
	msg, err := u.Sign(sk)
	if err != nil {
		return nil, nil, err
	}
	if _, err = c.revoked.Apply(pk, msg); err != nil {
		return nil, nil, err
	}
	return u, msg, nil
}
