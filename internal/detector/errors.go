package detector

import (
	"errors"
	"fmt"
	"time"
)

// ErrCircuitOpen is returned while the breaker holds detection off after
// repeated failures. Callers back off and wait for a Reset.
var ErrCircuitOpen = errors.New("detector: circuit breaker open")

// DetectionTimeoutError reports a scan cycle that overran its deadline.
// The scan keeps running in the background but its result is discarded.
type DetectionTimeoutError struct {
	Deadline time.Duration
}

func (e *DetectionTimeoutError) Error() string {
	return fmt.Sprintf("detector: detection exceeded %s deadline", e.Deadline)
}
