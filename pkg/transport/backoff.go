package transport

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff computes the delay before a retry. Attempt starts at 1 for the first retry.
// Implementations must be safe for concurrent use.
type Backoff interface {
	Delay(attempt int) time.Duration
}

// ExponentialBackoff grows the delay by Multiplier per attempt, capped at Max, with
// a random spread of ±Jitter.
type ExponentialBackoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// Delay implements Backoff.
func (e ExponentialBackoff) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := positiveOr(e.Initial, 500*time.Millisecond)
	ceiling := positiveOr(e.Max, 10*time.Second)
	mult := e.Multiplier
	if mult <= 0 {
		mult = 2
	}

	d := float64(initial) * math.Pow(mult, float64(attempt-1))
	if e.Jitter > 0 {
		d *= 1 + (rand.Float64()*2-1)*e.Jitter
	}
	return time.Duration(min(d, float64(ceiling)))
}

// ConstantBackoff waits the same interval before every retry.
type ConstantBackoff time.Duration

// Delay implements Backoff.
func (c ConstantBackoff) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return time.Duration(c)
}

// DefaultBackoff is used for batch retries unless overridden.
func DefaultBackoff() Backoff {
	return ExponentialBackoff{
		Initial:    500 * time.Millisecond,
		Max:        10 * time.Second,
		Multiplier: 2,
		Jitter:     0.1,
	}
}

func positiveOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
