package common

import (
	"io"

	"github.com/go-errors/errors"

	"github.com/ipv8go/wallet/big"
)

// SmallPrimes is a list of small prime numbers that allows us to rapidly
// exclude some fraction of composite candidates when searching for a random
// prime. It does not include two because candidates are odd by construction.
var SmallPrimes = []uint8{
	3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53,
}

// SmallPrimesProduct is the product of the values in SmallPrimes.
var SmallPrimesProduct = new(big.Int).SetUint64(16294579238595022365)

// RandomPrime returns a random probable prime of exactly bits bits.
func RandomPrime(rnd io.Reader, bits uint) (*big.Int, error) {
	if bits < 3 {
		return nil, errors.New("randomPrime: prime size must be at least 3-bit")
	}
	for {
		p, err := RandomPrimeInRange(rnd, bits-1, bits-1)
		if err != nil {
			return nil, err
		}
		if uint(p.BitLen()) == bits {
			return p, nil
		}
	}
}

// RandomPrimeInRange returns a random probable prime in the range [2^start, 2^start + 2^length]
// This code is an adaption of Go's own Prime function in rand/util.go
func RandomPrimeInRange(rnd io.Reader, start, length uint) (*big.Int, error) {
	if start < 2 {
		return nil, errors.New("randomPrimeInRange: prime size must be at least 2-bit")
	}

	b := length % 8
	if b == 0 {
		b = 8
	}

	startVal := big.Lsh1(start)
	bytes := make([]byte, (length+7)/8)
	offset := new(big.Int)
	p := new(big.Int)
	bigMod := new(big.Int)

NextCandidate:
	for {
		if _, err := io.ReadFull(rnd, bytes); err != nil {
			return nil, err
		}

		// Clear bits in the first byte to make sure the candidate has a size <= length.
		bytes[0] &= uint8(int(1<<b) - 1)
		// Even candidates this large are never prime.
		bytes[len(bytes)-1] |= 1

		offset.SetBytes(bytes)
		p.Add(startVal, offset)

		bigMod.Mod(p, SmallPrimesProduct)
		mod := bigMod.Uint64()
		for _, prime := range SmallPrimes {
			if mod%uint64(prime) == 0 && (start > 6 || mod != uint64(prime)) {
				continue NextCandidate
			}
		}

		if p.ProbablyPrime(20) {
			return p, nil
		}
	}
}
