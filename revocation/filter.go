package revocation

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/bits-and-blooms/bitset"
)

const (
	DefaultFilterBits   = 1 << 16
	DefaultFilterHashes = 7
)

// Filter is a bloom filter over attestation hashes, safe for concurrent use. MayContain
// never reports false for an added hash.
type Filter struct {
	mu     sync.RWMutex
	bits   *bitset.BitSet
	size   uint
	hashes uint
	count  uint
}

func NewFilter(size, hashes uint) *Filter {
	if size == 0 {
		size = DefaultFilterBits
	}
	if hashes == 0 {
		hashes = DefaultFilterHashes
	}
	return &Filter{bits: bitset.New(size), size: size, hashes: hashes}
}

// positions derives the bit indices of hash by double hashing.
func (f *Filter) positions(hash []byte) []uint {
	digest := sha256.Sum256(hash)
	h1 := binary.BigEndian.Uint64(digest[0:8])
	h2 := binary.BigEndian.Uint64(digest[8:16]) | 1
	pos := make([]uint, f.hashes)
	for i := range pos {
		pos[i] = uint((h1 + uint64(i)*h2) % uint64(f.size))
	}
	return pos
}

func (f *Filter) Add(hash []byte) {
	pos := f.positions(hash)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range pos {
		f.bits.Set(p)
	}
	f.count++
}

func (f *Filter) MayContain(hash []byte) bool {
	pos := f.positions(hash)
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, p := range pos {
		if !f.bits.Test(p) {
			return false
		}
	}
	return true
}

// Len returns the number of Add calls.
func (f *Filter) Len() uint {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.count
}
