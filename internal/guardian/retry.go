package guardian

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	errs "github.com/dht-tools/dht/internal/errors"
)

// errTimeoutKill is an internal sentinel that routes a timeout kill through
// the retrier's error path. It never escapes Retrier.Run.
var errTimeoutKill = errs.Timeout("guardian.Retrier", "run killed by timeout")

// RetryConfig bounds the retry behavior of a Retrier.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryConfig is the caller-side convention: up to three attempts
// with a small exponential backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
	}
}

// Retrier re-invokes a Guardian with the same policy on retryable failure
// classes: timeout kills and transient spawn errors. Memory kills are never
// retried; the caller must raise the ceiling first. The Guardian itself
// stays stateless and single-shot.
type Retrier struct {
	guardian *Guardian
	retrier  retry.Retry[*Result]
}

// NewRetrier wraps the guardian with bounded exponential backoff.
func NewRetrier(g *Guardian, cfg RetryConfig) *Retrier {
	return &Retrier{
		guardian: g,
		retrier: retry.New[*Result](retry.Config{
			MaxAttempts:   cfg.MaxAttempts,
			InitialDelay:  cfg.InitialDelay,
			MaxDelay:      cfg.MaxDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    2.0,
			Jitter:        true,
			IsRetryable:   IsRetryable,
		}),
	}
}

// Run executes the command, retrying on retryable failures. When every
// attempt is killed by timeout, the last Result is returned so the caller
// still sees the captured output and kill reason.
func (r *Retrier) Run(ctx context.Context, cmd Command, policy LimitPolicy) (*Result, error) {
	var lastKilled *Result

	result, err := r.retrier.Do(ctx, func(ctx context.Context) (*Result, error) {
		res, err := r.guardian.Run(ctx, cmd, policy)
		if err != nil {
			return nil, err
		}
		if res.Killed && res.Reason == KillTimeout {
			lastKilled = res
			return nil, errTimeoutKill
		}
		return res, nil
	})
	if err != nil {
		if stderrors.Is(err, errTimeoutKill) && lastKilled != nil {
			return lastKilled, nil
		}
		return nil, err
	}
	return result, nil
}

// IsRetryable classifies guardian errors for retry purposes. Timeout kills
// are retryable; spawn errors only when the OS reports a transient
// condition; everything else, including memory kills and validation
// failures, is not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errs.IsKind(err, errs.KindTimeout) {
		return true
	}
	if errs.IsKind(err, errs.KindSpawn) {
		msg := strings.ToLower(err.Error())
		return strings.Contains(msg, "resource temporarily unavailable") ||
			strings.Contains(msg, "try again")
	}
	return false
}
