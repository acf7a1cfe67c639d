package renderer

import (
	"context"
	"time"
)

// Condition is a JavaScript boolean expression evaluated against the
// live DOM of the current page.
type Condition string

// Renderer drives a browser session. Implementations own exactly one
// session between Open and Close; retries are the caller's concern.
type Renderer interface {
	// Open acquires the browser session.
	Open(ctx context.Context) error

	// Navigate loads a URL in the session.
	Navigate(ctx context.Context, url string) error

	// WaitUntil blocks until the condition holds or the timeout
	// elapses, in which case it fails with a render timeout error.
	WaitUntil(ctx context.Context, cond Condition, timeout time.Duration) error

	// HTML returns the fully rendered markup of the current page.
	HTML(ctx context.Context) (string, error)

	// Eval runs a JavaScript snippet on the current page, discarding
	// the result. Used for scrolling and dismissing interstitials.
	Eval(ctx context.Context, js string) error

	// LastStatus returns the HTTP status of the last navigated
	// document, or 0 when unknown.
	LastStatus() int

	// Close releases the session. Safe to call on every exit path.
	Close()
}

// Factory constructs a fresh Renderer. The crawler takes a Factory so
// tests can substitute a deterministic fake.
type Factory func() Renderer
