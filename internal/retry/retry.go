// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package retry runs the attempts of one submission with a fixed,
// cancellable delay between them.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fritzduchardt/fabric-ui/internal/metrics"
	"github.com/fritzduchardt/fabric-ui/internal/session"
)

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// DefaultMaxAttempts is the total number of attempts, the first included.
	DefaultMaxAttempts = 10

	// DefaultDelay is the pause between attempts.
	DefaultDelay = 5 * time.Second
)

// =============================================================================
// STATES
// =============================================================================

// State is the position of a Run in the retry state machine.
type State int

const (
	Attempting State = iota
	Success
	RetryableFailure
	Cancelled
	Exhausted
	// Failed ends a run on an error wrapped with Permanent.
	Failed
)

func (s State) String() string {
	switch s {
	case Attempting:
		return "attempting"
	case Success:
		return "success"
	case RetryableFailure:
		return "retryable_failure"
	case Cancelled:
		return "cancelled"
	case Exhausted:
		return "exhausted"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == Success || s == Cancelled || s == Exhausted || s == Failed
}

// =============================================================================
// ERRORS
// =============================================================================

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// ErrCancelled is the LastErr of a cancelled run that had no other error.
var ErrCancelled = errors.New("request cancelled")

// =============================================================================
// CONTROLLER
// =============================================================================

// Result is the outcome of a Run.
type Result struct {
	State       State
	Attempts    int
	MaxAttempts int
	// LastErr is the error of the final attempt, nil on success.
	LastErr error
}

// AttemptFunc performs attempt n (1-based) under ctx.
type AttemptFunc func(ctx context.Context, n int) error

// NotifyFunc is called before the delay that follows a failed attempt n.
type NotifyFunc func(n int, err error)

// Controller runs attempts until one succeeds, the request is cancelled, or
// the attempts run out.
type Controller struct {
	MaxAttempts int
	Delay       time.Duration
	Logger      *zap.Logger
}

// New returns a controller with the default limits.
func New(logger *zap.Logger) *Controller {
	return &Controller{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultDelay,
		Logger:      logger,
	}
}

func (c *Controller) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Controller) maxAttempts() int {
	if c.MaxAttempts < 1 {
		return 1
	}
	return c.MaxAttempts
}

// Run drives req through its attempts. Every attempt gets a fresh context
// from req. Cancellation always wins: a run whose request was cancelled
// while an attempt was in flight ends Cancelled even if that attempt
// succeeded.
func (c *Controller) Run(req *session.Request, attempt AttemptFunc, notify NotifyFunc) Result {
	log := c.logger().With(zap.String("request_id", req.ID()))
	limit := c.maxAttempts()
	res := Result{State: Attempting, MaxAttempts: limit}

	for n := 1; n <= limit; n++ {
		if req.IsCancelled() {
			return c.finish(res, Cancelled, ErrCancelled)
		}

		res.Attempts = n
		err := c.runAttempt(req, attempt, n)

		if req.IsCancelled() {
			if err == nil {
				err = ErrCancelled
			}
			return c.finish(res, Cancelled, err)
		}
		if err == nil {
			return c.finish(res, Success, nil)
		}
		if IsPermanent(err) {
			log.Warn("attempt failed permanently", zap.Int("attempt", n), zap.Error(err))
			return c.finish(res, Failed, err)
		}
		if n == limit {
			log.Warn("attempts exhausted", zap.Int("attempts", n), zap.Error(err))
			return c.finish(res, Exhausted, err)
		}

		res.State = RetryableFailure
		res.LastErr = err
		metrics.Attempts.WithLabelValues(metrics.ResultRetry).Inc()
		log.Info("attempt failed, retrying",
			zap.Int("attempt", n),
			zap.Int("max_attempts", limit),
			zap.Duration("delay", c.Delay),
			zap.Error(err),
		)
		if notify != nil {
			notify(n, err)
		}

		if !Sleep(req.Done(), c.Delay) {
			return c.finish(res, Cancelled, err)
		}
		res.State = Attempting
	}

	// Unreachable: the loop returns on its last iteration.
	return c.finish(res, Exhausted, res.LastErr)
}

func (c *Controller) runAttempt(req *session.Request, attempt AttemptFunc, n int) error {
	ctx, release := req.Attempt()
	defer release()
	return attempt(ctx, n)
}

func (c *Controller) finish(res Result, state State, err error) Result {
	res.State = state
	res.LastErr = err

	switch state {
	case Success:
		metrics.Attempts.WithLabelValues(metrics.ResultSuccess).Inc()
	case Cancelled:
		metrics.Attempts.WithLabelValues(metrics.ResultCancelled).Inc()
	case Exhausted:
		metrics.Attempts.WithLabelValues(metrics.ResultExhausted).Inc()
	case Failed:
		metrics.Attempts.WithLabelValues(metrics.ResultFailed).Inc()
	}
	return res
}

// =============================================================================
// SLEEP
// =============================================================================

// Sleep waits for d or until done is closed. It returns false when the wait
// was cut short.
func Sleep(done <-chan struct{}, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-done:
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-done:
		return false
	case <-timer.C:
		return true
	}
}

// SleepContext is Sleep driven by a context.
func SleepContext(ctx context.Context, d time.Duration) error {
	if !Sleep(ctx.Done(), d) {
		return ctx.Err()
	}
	return nil
}
