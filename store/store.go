// Package store persists attestations held by a wallet and the revocation updates it has seen,
// in a bolthold database or in memory.
package store

import (
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
	"github.com/timshannon/bolthold"
	bolt "go.etcd.io/bbolt"

	"github.com/ipv8go/wallet/cbor"
)

var Logger *logrus.Logger

func init() {
	Logger = logrus.New()
}

var ErrNotFound = errors.New("record not found")

type (
	// Record is an attestation held by its subject.
	Record struct {
		Hash      []byte
		Blob      []byte
		SecretKey []byte
		IDFormat  string
	}

	// RevocationRecord is a signed revocation update as received from an authority.
	RevocationRecord struct {
		Authority string // hex of the authority key id
		Version   uint64
		Message   []byte
	}

	// DB is a bolthold database of Record and RevocationRecord instances.
	DB struct {
		bolt *bolthold.Store
	}

	// Memory keeps the same records in maps.
	Memory struct {
		mu          sync.RWMutex
		records     map[string]*Record
		revocations map[string]*RevocationRecord
	}
)

func hashKey(hash []byte) string {
	return hex.EncodeToString(hash)
}

func revocationKey(authority string, version uint64) string {
	return authority + "/" + hex.EncodeToString([]byte{
		byte(version >> 56), byte(version >> 48), byte(version >> 40), byte(version >> 32),
		byte(version >> 24), byte(version >> 16), byte(version >> 8), byte(version),
	})
}

// Open opens or creates the database at path.
func Open(path string) (*DB, error) {
	b, err := bolthold.Open(path, 0600, &bolthold.Options{
		Encoder: cbor.Marshal,
		Decoder: cbor.Unmarshal,
		Options: &bolt.Options{Timeout: 1 * time.Second},
	})
	if err != nil {
		return nil, errors.WrapPrefix(err, "failed to open attestation database", 0)
	}
	return &DB{bolt: b}, nil
}

// Insert stores r, replacing any record with the same hash.
func (db *DB) Insert(r *Record) error {
	return db.bolt.Upsert(hashKey(r.Hash), r)
}

func (db *DB) Get(hash []byte) (*Record, error) {
	r := &Record{}
	if err := db.bolt.Get(hashKey(hash), r); err == bolthold.ErrNotFound {
		return nil, errors.WrapPrefix(ErrNotFound, hashKey(hash), 0)
	} else if err != nil {
		return nil, err
	}
	return r, nil
}

func (db *DB) Delete(hash []byte) error {
	err := db.bolt.Delete(hashKey(hash), &Record{})
	if err == bolthold.ErrNotFound {
		return errors.WrapPrefix(ErrNotFound, hashKey(hash), 0)
	}
	return err
}

// Records returns every stored attestation of the given format, or all when idFormat is empty.
func (db *DB) Records(idFormat string) ([]Record, error) {
	var records []Record
	var query *bolthold.Query
	if idFormat != "" {
		query = bolthold.Where("IDFormat").Eq(idFormat)
	}
	if err := db.bolt.Find(&records, query); err != nil {
		return nil, err
	}
	return records, nil
}

// AddRevocation stores a verified revocation update; a stored version is never replaced.
func (db *DB) AddRevocation(r *RevocationRecord) error {
	err := db.bolt.Insert(revocationKey(r.Authority, r.Version), r)
	if err == bolthold.ErrKeyExists {
		Logger.WithFields(logrus.Fields{"authority": r.Authority, "version": r.Version}).Debug("revocation update already stored")
		return nil
	}
	return err
}

// Revocations returns the updates of authority (all authorities when empty) from version on,
// ordered by version.
func (db *DB) Revocations(authority string, from uint64) ([]RevocationRecord, error) {
	var all []RevocationRecord
	var query *bolthold.Query
	if authority != "" {
		query = bolthold.Where("Authority").Eq(authority)
	}
	if err := db.bolt.Find(&all, query); err != nil {
		return nil, err
	}
	return filterRevocations(all, from), nil
}

func (db *DB) Close() error {
	if db.bolt != nil {
		return db.bolt.Close()
	}
	return nil
}

func filterRevocations(all []RevocationRecord, from uint64) []RevocationRecord {
	records := all[:0]
	for _, r := range all {
		if r.Version >= from {
			records = append(records, r)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Authority != records[j].Authority {
			return records[i].Authority < records[j].Authority
		}
		return records[i].Version < records[j].Version
	})
	return records
}

func NewMemory() *Memory {
	return &Memory{
		records:     map[string]*Record{},
		revocations: map[string]*RevocationRecord{},
	}
}

func (m *Memory) Insert(r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.records[hashKey(r.Hash)] = &cp
	return nil
}

func (m *Memory) Get(hash []byte) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[hashKey(hash)]
	if !ok {
		return nil, errors.WrapPrefix(ErrNotFound, hashKey(hash), 0)
	}
	cp := *r
	return &cp, nil
}

func (m *Memory) Delete(hash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[hashKey(hash)]; !ok {
		return errors.WrapPrefix(ErrNotFound, hashKey(hash), 0)
	}
	delete(m.records, hashKey(hash))
	return nil
}

func (m *Memory) Records(idFormat string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var records []Record
	for _, r := range m.records {
		if idFormat == "" || r.IDFormat == idFormat {
			records = append(records, *r)
		}
	}
	return records, nil
}

func (m *Memory) AddRevocation(r *RevocationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := revocationKey(r.Authority, r.Version)
	if _, ok := m.revocations[k]; !ok {
		cp := *r
		m.revocations[k] = &cp
	}
	return nil
}

func (m *Memory) Revocations(authority string, from uint64) ([]RevocationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []RevocationRecord
	for _, r := range m.revocations {
		if authority == "" || r.Authority == authority {
			all = append(all, *r)
		}
	}
	return filterRevocations(all, from), nil
}

func (m *Memory) Close() error {
	return nil
}
