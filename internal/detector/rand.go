package detector

import (
	"math/rand"
	"sync/atomic"
	"time"
)

// RandomSource supplies the uniform draw used for score jitter. Production
// code uses math/rand; tests substitute a fixed source for determinism.
type RandomSource interface {
	Float64() float64
}

var seedCounter int64

// NewRandomSource returns an independent rand.Rand. Each concurrent analysis
// gets its own instance so jitter is never correlated across calls.
func NewRandomSource() RandomSource {
	seed := time.Now().UnixNano() + atomic.AddInt64(&seedCounter, 1)
	return rand.New(rand.NewSource(seed))
}

// zeroJitterSource always returns 0.5, which the combiner maps to a jitter
// of exactly zero.
type zeroJitterSource struct{}

func (zeroJitterSource) Float64() float64 { return 0.5 }
