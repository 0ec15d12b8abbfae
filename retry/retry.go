// Package retry wraps provider calls with a bounded, fixed-delay retry
// policy. Retry decisions are made by error kind, so validation and
// content-filter failures surface immediately instead of burning
// attempts on outcomes that cannot change.
package retry

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/parley-llm/parley/llm"
)

const (
	// DefaultMaxAttempts is the default number of times an operation is
	// invoked before the final error propagates.
	DefaultMaxAttempts = 5
	// DefaultDelay is the default constant delay between attempts.
	DefaultDelay = 2 * time.Second
)

// Executor executes operations with bounded retries and a constant
// per-attempt delay. The zero value is not usable; construct with New.
type Executor struct {
	maxAttempts uint64
	delay       time.Duration
	retryable   func(error) bool
	logger      zerolog.Logger
}

// New creates an Executor with the default policy: 5 attempts, 2s
// constant delay, retrying transient and unclassified errors only.
func New(logger zerolog.Logger) *Executor {
	return &Executor{
		maxAttempts: DefaultMaxAttempts,
		delay:       DefaultDelay,
		retryable:   llm.IsRetryableError,
		logger:      logger,
	}
}

// WithPolicy returns a copy of the executor with the given attempt
// bound and delay. maxAttempts below 1 is clamped to 1.
func (e *Executor) WithPolicy(maxAttempts uint64, delay time.Duration) *Executor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	clone := *e
	clone.maxAttempts = maxAttempts
	clone.delay = delay
	return &clone
}

// WithRetryable returns a copy of the executor using the given
// predicate to decide whether an error may be retried.
func (e *Executor) WithRetryable(retryable func(error) bool) *Executor {
	clone := *e
	clone.retryable = retryable
	return &clone
}

// MaxAttempts returns the configured attempt bound.
func (e *Executor) MaxAttempts() uint64 {
	return e.maxAttempts
}

// Do invokes op until it succeeds, returns a non-retryable error, or
// the attempt bound is exhausted. The final error propagates unchanged.
// There is no cooperative cancellation inside the loop: a retry
// sequence runs to completion or exhaustion.
func (e *Executor) Do(label string, op func() error) error {
	attempt := 0
	wrapped := func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !e.retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		e.logger.Warn().
			Err(err).
			Str("operation", label).
			Int("attempt", attempt).
			Uint64("max_attempts", e.maxAttempts).
			Dur("delay", wait).
			Msg("Operation failed, retrying")
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(e.delay), e.maxAttempts-1)
	return backoff.RetryNotify(wrapped, policy, notify)
}

// Do invokes op through the executor and returns its result. This is
// the generic companion to Executor.Do for operations that produce a
// value.
func Do[T any](e *Executor, label string, op func() (T, error)) (T, error) {
	var result T
	err := e.Do(label, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
