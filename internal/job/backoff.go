package job

import (
	"errors"
	"fmt"
	"time"
)

// BackoffType selects how retry delays grow.
type BackoffType string

// Supported backoff strategies.
const (
	BackoffExponential BackoffType = "exponential"
	BackoffFixed       BackoffType = "fixed"
)

// MaxBackoff caps every computed retry delay.
const MaxBackoff = time.Hour

// Backoff is the retry delay policy of a job.
type Backoff struct {
	Type  BackoffType   `json:"type"`
	Delay time.Duration `json:"delay"`
}

// DefaultBackoff is exponential starting at one second.
func DefaultBackoff() Backoff {
	return Backoff{Type: BackoffExponential, Delay: DefaultBackoffBase}
}

// Validate reports an error for unknown types or negative delays.
func (b Backoff) Validate() error {
	if b.Type != BackoffExponential && b.Type != BackoffFixed {
		return errors.Join(ErrInvalidJob, fmt.Errorf("unknown backoff type %q", b.Type))
	}
	if b.Delay < 0 {
		return errors.Join(ErrInvalidJob, errors.New("backoff delay must not be negative"))
	}
	return nil
}

// Next returns the delay before the retry that follows the given attempt
// (1-based). Exponential delays are Delay * 2^(attempt-1).
func (b Backoff) Next(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if b.Type == BackoffFixed || b.Delay == 0 {
		return min(b.Delay, MaxBackoff)
	}

	d := b.Delay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= MaxBackoff || d <= 0 {
			return MaxBackoff
		}
	}
	return min(d, MaxBackoff)
}
