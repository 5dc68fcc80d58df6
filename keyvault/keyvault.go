// Package keyvault holds the key material of a wallet: a byte-oriented Vault for secret keys,
// ECDSA identity keys with their PEM encodings, and signed CBOR messages.
package keyvault

import (
	"sync"

	"github.com/go-errors/errors"
)

var ErrKeyNotFound = errors.New("vault: key not found")

// Vault stores serialized keys by id.
type Vault interface {
	Import(keyID string, key []byte) error
	Get(keyID string) ([]byte, error)
	Delete(keyID string) error
}

type MemoryVault struct {
	lock sync.RWMutex
	keys map[string][]byte
}

func NewMemoryVault() *MemoryVault {
	return &MemoryVault{keys: make(map[string][]byte)}
}

func (v *MemoryVault) Import(keyID string, key []byte) error {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.keys[keyID] = append([]byte(nil), key...)
	return nil
}

func (v *MemoryVault) Get(keyID string) ([]byte, error) {
	v.lock.RLock()
	defer v.lock.RUnlock()
	key, ok := v.keys[keyID]
	if !ok {
		return nil, errors.WrapPrefix(ErrKeyNotFound, keyID, 0)
	}
	return append([]byte(nil), key...), nil
}

func (v *MemoryVault) Delete(keyID string) error {
	v.lock.Lock()
	defer v.lock.Unlock()
	delete(v.keys, keyID)
	return nil
}
