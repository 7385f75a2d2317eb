package sample

import (
	"math/rand/v2"
)

// NewRNG returns the random source used for sampling. A non-negative
// seed produces a deterministic stream so the same invocation can be
// replayed; a negative seed draws the stream from the process entropy
// source.
func NewRNG(seed int64) *rand.Rand {
	if seed < 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	// PCG requires two parameters: sequence and stream. Use a golden
	// ratio hash of the seed for the stream so the two are
	// statistically independent.
	sequence := uint64(seed)
	return rand.New(rand.NewPCG(sequence, sequence^0x9E3779B9))
}
