package infrastructure

import (
	"math"
	"math/rand"
	"time"
)

// backoffPolicy computes exponential reconnect delays capped at maxDelay,
// with random jitter so restarting replicas do not reconnect in lockstep.
type backoffPolicy struct {
	factor   float64
	minDelay time.Duration
	maxDelay time.Duration
	rng      *rand.Rand
}

func newBackoffPolicy(factor, defaultFactor float64, minDelay, defaultMin, maxDelay, defaultMax time.Duration) backoffPolicy {
	if factor < 1 {
		factor = defaultFactor
	}
	if minDelay <= 0 {
		minDelay = defaultMin
	}
	if maxDelay <= 0 {
		maxDelay = defaultMax
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}

	return backoffPolicy{
		factor:   factor,
		minDelay: minDelay,
		maxDelay: maxDelay,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p backoffPolicy) delay(attempt int) time.Duration {
	backoff := float64(p.minDelay) * math.Pow(p.factor, float64(attempt))
	if backoff > float64(p.maxDelay) {
		backoff = float64(p.maxDelay)
	}

	base := time.Duration(backoff)
	if p.maxDelay <= p.minDelay {
		return base
	}

	jitter := time.Duration(p.rng.Int63n(int64(p.maxDelay-p.minDelay) + 1))
	if base+jitter > p.maxDelay {
		return p.maxDelay
	}

	return base + jitter
}
