package swrcache

import (
	"errors"
	"fmt"
)

// Sentinel errors for cache and warmup operations.
var (
	// ErrNilProducer is returned when a cold miss has no producer to call.
	ErrNilProducer = errors.New("swrcache: cached requires a producer")

	// ErrInvalidTTL is returned by the entry store for ttl <= 0.
	ErrInvalidTTL = errors.New("swrcache: ttl must be positive")

	// ErrProducerPanic wraps a panic recovered from a detached refresh or warmup task.
	ErrProducerPanic = errors.New("swrcache: producer panicked")

	// ErrWarmupSealed is returned by Register once the warmup has started running.
	ErrWarmupSealed = errors.New("swrcache: warmup registry is sealed")

	// ErrNilTask is returned when registering a nil warmup task.
	ErrNilTask = errors.New("swrcache: warmup task is nil")
)

// ProducerError reports a producer failure on the synchronous miss path.
// It is the only error Cached surfaces to callers.
type ProducerError struct {
	Key string
	Err error
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("swrcache: producer for key %q failed: %v", e.Key, e.Err)
}

func (e *ProducerError) Unwrap() error { return e.Err }

func recoveredError(recovered any) error {
	if err, ok := recovered.(error); ok {
		return fmt.Errorf("%w: %w", ErrProducerPanic, err)
	}
	return fmt.Errorf("%w: %v", ErrProducerPanic, recovered)
}
