package payload

import (
	"sync"
)

// MaxChunks bounds the number of chunks an Assembler accepts for one blob.
const MaxChunks = 1 << 12

// Assembler collects the chunks produced by Split, in any order, and joins them once the
// terminal chunk and all chunks before it have arrived.
type Assembler struct {
	mu     sync.Mutex
	size   int
	chunks map[uint32][]byte
	last   int64
}

func NewAssembler(size int) *Assembler {
	return &Assembler{size: size, chunks: map[uint32][]byte{}, last: -1}
}

// Add stores chunk number seq. It returns the joined blob and true when the blob is complete.
// Repeated chunks overwrite earlier copies.
func (a *Assembler) Add(seq uint32, chunk []byte) ([]byte, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(chunk) > a.size {
		return nil, false, malformed("oversized chunk", nil)
	}
	if seq >= MaxChunks || (a.last >= 0 && int64(seq) > a.last) {
		return nil, false, malformed("chunk beyond end of data", nil)
	}
	if len(chunk) < a.size {
		if a.last >= 0 && a.last != int64(seq) {
			return nil, false, malformed("second terminal chunk", nil)
		}
		for stored := range a.chunks {
			if stored > seq {
				return nil, false, malformed("chunk beyond end of data", nil)
			}
		}
		a.last = int64(seq)
	} else if a.last == int64(seq) {
		return nil, false, malformed("full chunk in terminal position", nil)
	}
	a.chunks[seq] = append([]byte(nil), chunk...)

	if a.last < 0 {
		return nil, false, nil
	}
	for i := uint32(0); int64(i) <= a.last; i++ {
		if _, ok := a.chunks[i]; !ok {
			return nil, false, nil
		}
	}
	data := make([]byte, 0, int(a.last)*a.size+len(a.chunks[uint32(a.last)]))
	for i := uint32(0); int64(i) <= a.last; i++ {
		data = append(data, a.chunks[i]...)
	}
	return data, true, nil
}
