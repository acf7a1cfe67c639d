package crawler

import (
	"context"
	"time"

	"apartment-hunter/config"
)

// AutoThrottle adapts the delay between requests to observed latency,
// aiming at a fixed concurrency ratio against the target site. With a
// single in-flight request and target concurrency 0.2, a page that
// takes one second earns a five second delay.
type AutoThrottle struct {
	policy config.ThrottlePolicy
	delay  time.Duration
}

// NewAutoThrottle creates a throttle starting at the policy's start delay.
func NewAutoThrottle(policy config.ThrottlePolicy) *AutoThrottle {
	return &AutoThrottle{
		policy: policy,
		delay:  policy.StartDelay,
	}
}

// Wait sleeps for the current delay or returns early when the context
// is cancelled.
func (t *AutoThrottle) Wait(ctx context.Context) error {
	if t.delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(t.delay):
		return nil
	}
}

// Observe feeds a request latency back into the throttle. The next
// delay is the average of the current delay and latency divided by the
// target concurrency, clamped to the policy bounds.
func (t *AutoThrottle) Observe(latency time.Duration) {
	target := time.Duration(float64(latency) / t.policy.TargetConcurrency)
	next := (t.delay + target) / 2
	if next < t.policy.MinDelay {
		next = t.policy.MinDelay
	}
	if next > t.policy.MaxDelay {
		next = t.policy.MaxDelay
	}
	t.delay = next
}

// Delay returns the current delay.
func (t *AutoThrottle) Delay() time.Duration {
	return t.delay
}
