package boneh

import (
	"math"

	"github.com/ipv8go/wallet/big"
)

// RelativityMap counts bit-pair sums: buckets 0, 1, 2 and Mismatch.
type RelativityMap map[int]int

func NewRelativityMap() RelativityMap {
	return RelativityMap{0: 0, 1: 0, 2: 0, Mismatch: 0}
}

// Total is the number of counted responses.
func (m RelativityMap) Total() int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}

// BinaryRelativity returns the histogram of adjacent bit-pair sums of value in bitSpace bits.
func BinaryRelativity(value *big.Int, bitSpace int) (RelativityMap, error) {
	bits, err := Bits(value, bitSpace)
	if err != nil {
		return nil, err
	}
	m := NewRelativityMap()
	for i := 0; i+1 < len(bits); i++ {
		m[int(bits[i]+bits[i+1])]++
	}
	return m, nil
}

// BinaryRelativityMatch is a one-sided ratio test: any bucket observed more often than expected
// disqualifies, otherwise the ratios of the nonzero buckets multiply. The order of the
// arguments matters.
func BinaryRelativityMatch(expected, observed RelativityMap) float64 {
	match := 1.0
	for k, o := range observed {
		if o > expected[k] {
			return 0
		}
	}
	for k, o := range observed {
		e := expected[k]
		if e == 0 || o == 0 {
			continue
		}
		match *= float64(o) / float64(e)
	}
	return match
}

// BinaryRelativityCertainty scales the match by 1 - 0.5^n for n observed responses.
func BinaryRelativityCertainty(expected, observed RelativityMap) float64 {
	return BinaryRelativityMatch(expected, observed) * (1 - math.Pow(0.5, float64(observed.Total())))
}
