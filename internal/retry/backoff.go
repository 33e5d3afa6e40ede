package retry

import (
	"math/rand"
	"time"
)

const (
	// BackoffBase is the delay before the first retry.
	BackoffBase = 1000 * time.Millisecond
	// BackoffMax caps the delay regardless of attempt count.
	BackoffMax = 60000 * time.Millisecond
	// backoffJitterFraction spreads retries across instances so they do not
	// synchronize against a recovering upstream.
	backoffJitterFraction = 0.3
)

// Backoff returns the delay before retry number attempt (0-based): the base
// delay doubled per attempt, plus up to 30% random jitter, capped at
// BackoffMax. Backoff(0) lies in [1000ms, 1300ms).
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := BackoffBase
	for i := 0; i < attempt; i++ {
		if delay >= BackoffMax/2 {
			delay = BackoffMax
			break
		}
		delay *= 2
	}
	if delay > BackoffMax {
		delay = BackoffMax
	}

	// Half-open jitter range: strictly less than 30% of the delay.
	jitter := time.Duration(rand.Int63n(int64(float64(delay) * backoffJitterFraction)))
	delay += jitter
	if delay > BackoffMax {
		delay = BackoffMax
	}
	return delay
}
