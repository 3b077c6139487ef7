// Package rand produces random values that need no security, such as request
// ids and retry jitter. One PCG source seeded from crypto/rand is shared
// behind a mutex.
package rand

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

type source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

var global = newSource()

func newSource() *source {
	seed := make([]byte, 16)
	if _, err := cryptorand.Read(seed); err != nil {
		panic("rand: seeding from crypto/rand: " + err.Error())
	}

	return &source{
		//nolint:gosec // ids and jitter need no security
		rng: rand.New(rand.NewPCG(
			binary.LittleEndian.Uint64(seed[:8]),
			binary.LittleEndian.Uint64(seed[8:]),
		)),
	}
}

// NewRequestID returns length characters drawn uniformly from [A-Za-z0-9].
func NewRequestID(length int) string {
	buf := make([]byte, length)

	global.mu.Lock()
	for i := range buf {
		buf[i] = charset[global.rng.IntN(len(charset))]
	}
	global.mu.Unlock()

	return string(buf)
}

// Float64 returns a value in [0, 1).
func Float64() float64 {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.rng.Float64()
}

// Jitter returns a value in [-1, 1).
func Jitter() float64 {
	return 2*Float64() - 1
}
