// ABOUTME: Retry helpers for external I/O with exponential backoff
// ABOUTME: Shared by the embedding client, LLM client, and ingestion pipeline
package util

import (
	"math/rand/v2"
	"time"
)

// maxBackoff caps a single backoff sleep.
const maxBackoff = 30 * time.Second

// Backoff returns exponential backoff with jitter for the given
// attempt (1-based). Attempt 0 or below returns 0.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	if attempt > 30 {
		attempt = 30
	}
	d := base * time.Duration(1<<uint(attempt))
	if d > maxBackoff {
		d = maxBackoff
	}
	// Jitter between -25% and +25%
	jitter := time.Duration(rand.Int64N(int64(d)/2)) - d/4
	return d + jitter
}
