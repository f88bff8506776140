package classifier

import (
	"math/rand/v2"
	"sync"
)

// Fake pretends to run image recognition by drawing a random confidence,
// in percent, for every image and comparing it with the threshold.
type Fake struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewFake creates a Fake with a deterministic seed.
func NewFake(seed uint64) *Fake {
	return &Fake{
		rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // Not used for security.
	}
}

// ContainsCat reports whether the drawn confidence exceeds the threshold.
func (f *Fake) ContainsCat(_ []byte, confidenceThreshold float32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.rnd.Float32()*100 > confidenceThreshold
}

// Fixed always returns the same answer.
type Fixed bool

// ContainsCat implements the classifier contract.
func (f Fixed) ContainsCat([]byte, float32) bool {
	return bool(f)
}
