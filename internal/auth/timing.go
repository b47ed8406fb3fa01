package auth

import (
	"crypto/rand"
	"math/big"
	"time"
)

// TimingDelay equalizes response timing on authentication-adjacent paths so
// account existence cannot be inferred from latency differences.
type TimingDelay struct {
	base   time.Duration
	jitter time.Duration
}

// NewTimingDelay creates a delay helper with the given base and random
// jitter bounds.
func NewTimingDelay(base, jitter time.Duration) *TimingDelay {
	return &TimingDelay{base: base, jitter: jitter}
}

// Wait sleeps for the base duration plus a cryptographically random jitter.
func (td *TimingDelay) Wait() {
	delay := td.base

	if td.jitter > 0 {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(td.jitter)))
		if err == nil {
			delay += time.Duration(n.Int64())
		}
	}

	time.Sleep(delay)
}
