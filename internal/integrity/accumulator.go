package integrity

import (
	"encoding/hex"
	"hash"
)

// Accumulator hashes bytes as they are written so the file does not need a
// second read pass. Use it as an extra sink next to the destination file.
type Accumulator struct {
	digest Digest
	h      hash.Hash
}

// NewAccumulator returns nil when declared holds no usable digest.
func NewAccumulator(declared []Digest) *Accumulator {
	d, ok := Select(declared)
	if !ok {
		return nil
	}
	return &Accumulator{digest: d, h: d.Algo.New()}
}

func (a *Accumulator) Write(p []byte) (int, error) { return a.h.Write(p) }

// Reset discards everything written so far.
func (a *Accumulator) Reset() { a.h.Reset() }

// Outcome compares the bytes seen so far against the selected digest.
// A nil Accumulator reports a skipped verification.
func (a *Accumulator) Outcome() Outcome {
	if a == nil {
		return Outcome{}
	}
	return Compare(a.digest, hex.EncodeToString(a.h.Sum(nil)))
}
