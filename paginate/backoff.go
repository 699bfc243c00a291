package paginate

import "time"

// DefaultRetryDelays returns the backoff delays applied between page retry
// attempts: 1s, 2s, 4s. With the initial attempt this allows four attempts
// per page.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// ExponentialDelays builds a backoff schedule allowing maxAttempts total
// attempts per page: maxAttempts-1 delays doubling from base.
// Returns nil when maxAttempts permits no retry.
func ExponentialDelays(maxAttempts int, base time.Duration) []time.Duration {
	if maxAttempts <= 1 {
		return nil
	}
	delays := make([]time.Duration, maxAttempts-1)
	d := base
	for i := range delays {
		delays[i] = d
		d *= 2
	}
	return delays
}
