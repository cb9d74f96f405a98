package service

import (
	"math/rand"
	"time"
)

// Backoff computes exponential retry delays with jitter. Attempt numbering
// starts at 1; attempt 0 and below return Min.
type Backoff struct {
	Min    time.Duration
	Max    time.Duration
	Factor float64
	Jitter bool
}

func NewBackoff(min, max time.Duration, factor float64) *Backoff {
	return &Backoff{
		Min:    min,
		Max:    max,
		Factor: factor,
		Jitter: true,
	}
}

func (b *Backoff) Duration(attempt int) time.Duration {
	if attempt <= 0 {
		return b.Min
	}

	duration := float64(b.Min)
	for i := 1; i < attempt; i++ {
		duration *= b.Factor
		if duration >= float64(b.Max) {
			duration = float64(b.Max)
			break
		}
	}

	if b.Jitter {
		duration = duration * (0.5 + rand.Float64()*0.5)
	}

	return time.Duration(duration)
}
