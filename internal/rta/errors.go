package rta

import "fmt"

// Overloaded signals that the remote transcriber returned 429 or 503. It is
// never retried internally: WhisperLive-style callers want to keep
// buffering and transcribe the latest audio window rather than block on
// retries for an older chunk (§4.2).
type Overloaded struct {
	StatusCode  int
	RetryAfterS float64
	Detail      string
}

func (e *Overloaded) Error() string {
	return fmt.Sprintf("rta: remote transcriber overloaded (HTTP %d, retry_after=%.1fs): %s", e.StatusCode, e.RetryAfterS, e.Detail)
}
