package common

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"io"
	"sync/atomic"

	"github.com/go-errors/errors"
	"github.com/ipv8go/wallet/big"
)

// CPRNG is a simple thread-safe cryptographically secure pseudo-random number generator.
// Implemented with AES in counter mode with the seed as key and an
// atomic uint64 as counter. One instance is created at startup and handed to every
// component that needs randomness.
type CPRNG struct {
	block   cipher.Block
	counter uint64
}

func NewCPRNG(seed *[32]byte) (*CPRNG, error) {
	c, err := aes.NewCipher(seed[:])
	if err != nil {
		return nil, err
	}
	return &CPRNG{
		block:   c,
		counter: 0,
	}, nil
}

// NewRandom returns a CPRNG seeded from crypto/rand.
func NewRandom() (*CPRNG, error) {
	var seed [32]byte
	if _, err := io.ReadFull(rand.Reader, seed[:]); err != nil {
		return nil, errors.WrapPrefix(err, "failed to seed CPRNG", 0)
	}
	return NewCPRNG(&seed)
}

func (c *CPRNG) Read(buf []byte) (n int, err error) {
	var pt, ct [16]byte
	n = len(buf)
	if n == 0 {
		return
	}

	nBlocks := uint64(((len(buf) - 1) / 16) + 1)

	// Reserve nBlocks counter values at once so concurrent readers never share a block.
	iv := atomic.AddUint64(&c.counter, nBlocks) - nBlocks
	for len(buf) > 0 {
		binary.LittleEndian.PutUint64(pt[:], iv)
		iv++
		if len(buf) >= 16 {
			c.block.Encrypt(buf, pt[:])
			buf = buf[16:]
			continue
		}
		c.block.Encrypt(ct[:], pt[:])
		copy(buf, ct[:len(buf)])
		break
	}
	return
}

// RandomBigInt returns a random big integer value in the range [0,(2^numBits)-1], inclusive.
func RandomBigInt(rnd io.Reader, numBits uint) (*big.Int, error) {
	return big.RandInt(rnd, big.Lsh1(numBits))
}

// RandomPositive returns a random integer in [1, limit).
func RandomPositive(rnd io.Reader, limit *big.Int) (*big.Int, error) {
	return big.RandRange(rnd, big.One(), limit)
}

// MustRandomPositive is RandomPositive for callers that cannot meaningfully recover from a
// broken randomness source.
func MustRandomPositive(rnd io.Reader, limit *big.Int) *big.Int {
	r, err := RandomPositive(rnd, limit)
	if err != nil {
		panic(errors.WrapPrefix(err, "randomness source failed", 0))
	}
	return r
}

// Permutation returns a uniformly random permutation of [0, n) drawn from rnd
// (Fisher-Yates).
func Permutation(rnd io.Reader, n int) ([]int, error) {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j, err := big.RandInt(rnd, big.NewInt(int64(i+1)))
		if err != nil {
			return nil, err
		}
		k := int(j.Int64())
		perm[i], perm[k] = perm[k], perm[i]
	}
	return perm, nil
}
