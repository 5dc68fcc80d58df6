// Package revocation keeps the attestation hashes revoked by trusted authorities. Authorities
// publish signed, versioned updates; a List verifies and applies them, persists them, and
// answers revocation queries through a bloom filter backed by an exact set.
package revocation

import (
	"encoding/hex"
	"sync"

	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"

	"github.com/ipv8go/wallet/keyvault"
	"github.com/ipv8go/wallet/store"
)

var Logger *logrus.Logger

func init() {
	Logger = logrus.New()
}

var (
	ErrStaleUpdate      = errors.New("revocation update version already applied")
	ErrUnknownAuthority = errors.New("unknown revocation authority")
)

// Store persists applied updates.
type Store interface {
	AddRevocation(r *store.RevocationRecord) error
	Revocations(authority string, from uint64) ([]store.RevocationRecord, error)
}

// List is the revocation state of a wallet.
type List struct {
	filter *Filter
	store  Store

	mu       sync.RWMutex
	revoked  map[string]struct{}
	versions map[string]map[uint64]struct{}
}

func NewList(s Store) *List {
	return &List{
		filter:   NewFilter(0, 0),
		store:    s,
		revoked:  map[string]struct{}{},
		versions: map[string]map[uint64]struct{}{},
	}
}

// Apply verifies msg against the authority key, stores it and marks its hashes revoked.
// A version applied before yields ErrStaleUpdate.
func (l *List) Apply(pk *keyvault.PublicKey, msg keyvault.Message) (*Update, error) {
	u, err := VerifyUpdate(pk, msg)
	if err != nil {
		return nil, err
	}
	authority := AuthorityID(pk)
	if l.applied(authority, u.Version) {
		return u, ErrStaleUpdate
	}
	if l.store != nil {
		err = l.store.AddRevocation(&store.RevocationRecord{Authority: authority, Version: u.Version, Message: msg})
		if err != nil {
			return nil, err
		}
	}
	l.apply(authority, u)
	Logger.WithFields(logrus.Fields{"authority": authority, "update": u.ID, "version": u.Version, "revoked": len(u.Revoked)}).Debug("applied revocation update")
	return u, nil
}

func (l *List) applied(authority string, version uint64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.versions[authority][version]
	return ok
}

func (l *List) apply(authority string, u *Update) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.versions[authority] == nil {
		l.versions[authority] = map[uint64]struct{}{}
	}
	l.versions[authority][u.Version] = struct{}{}
	for _, h := range u.Revoked {
		l.revoked[hex.EncodeToString(h)] = struct{}{}
		l.filter.Add(h)
	}
}

// Load reapplies the stored updates of the given authorities, keyed by AuthorityID.
// Records failing verification are skipped.
func (l *List) Load(authorities map[string]*keyvault.PublicKey) error {
	if l.store == nil {
		return nil
	}
	records, err := l.store.Revocations("", 0)
	if err != nil {
		return err
	}
	for _, r := range records {
		pk, ok := authorities[r.Authority]
		if !ok {
			Logger.WithField("authority", r.Authority).Debug("skipping stored update of untrusted authority")
			continue
		}
		u, err := VerifyUpdate(pk, r.Message)
		if err != nil {
			Logger.WithField("authority", r.Authority).Warn("stored revocation update failed verification")
			continue
		}
		l.apply(r.Authority, u)
	}
	return nil
}

// IsRevoked reports whether any applied update revoked hash.
func (l *List) IsRevoked(hash []byte) bool {
	if !l.filter.MayContain(hash) {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.revoked[hex.EncodeToString(hash)]
	return ok
}

// Version returns the highest applied version of authority, 0 if none.
func (l *List) Version(authority string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var max uint64
	for v := range l.versions[authority] {
		if v > max {
			max = v
		}
	}
	return max
}
