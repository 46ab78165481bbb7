package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
)

// NewRNG returns a math/rand source seeded from crypto/rand. Role shuffles
// must not be predictable from the clock, so the seed comes from the OS.
// Tests pass their own deterministic source instead.
func NewRNG() *rand.Rand {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic("game: crypto seed unavailable: " + err.Error())
	}
	return rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(b[:]))))
}

// percent rolls true with probability p/100.
func percent(rng *rand.Rand, p int) bool {
	if p >= 100 {
		return true
	}
	if p <= 0 {
		return false
	}
	return rng.Intn(100) < p
}

// pick returns a uniformly chosen element of xs. Panics on empty input.
func pick[T any](rng *rand.Rand, xs []T) T {
	return xs[rng.Intn(len(xs))]
}
