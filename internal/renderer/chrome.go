package renderer

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	apperrors "apartment-hunter/pkg/errors"
)

// pollInterval is how often WaitUntil re-evaluates its condition.
const pollInterval = 200 * time.Millisecond

// ChromeRenderer implements Renderer on top of a headless Chrome
// session driven through chromedp.
type ChromeRenderer struct {
	headless bool

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	mu     sync.Mutex
	status int
}

// NewChromeFactory returns a Factory producing Chrome-backed renderers.
func NewChromeFactory(headless bool) Factory {
	return func() Renderer {
		return &ChromeRenderer{headless: headless}
	}
}

// Open launches the browser and enables network events so navigation
// status codes can be observed.
func (r *ChromeRenderer) Open(ctx context.Context) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", r.headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("lang", "fi-FI"),
		chromedp.WindowSize(1920, 1080),
	)

	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	r.tabCtx, r.tabCancel = chromedp.NewContext(r.allocCtx)

	chromedp.ListenTarget(r.tabCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Type == network.ResourceTypeDocument {
				r.mu.Lock()
				r.status = int(resp.Response.Status)
				r.mu.Unlock()
			}
		}
	})

	if err := chromedp.Run(r.tabCtx, network.Enable()); err != nil {
		r.Close()
		return err
	}
	return nil
}

// Navigate loads the URL and records the main-document status code.
func (r *ChromeRenderer) Navigate(ctx context.Context, url string) error {
	r.mu.Lock()
	r.status = 0
	r.mu.Unlock()

	runCtx, cancel := r.withDeadline(ctx)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.Navigate(url))
}

// WaitUntil polls the condition until it holds or the timeout elapses.
func (r *ChromeRenderer) WaitUntil(ctx context.Context, cond Condition, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		var ok bool
		evalCtx, cancel := context.WithTimeout(r.tabCtx, timeout)
		err := chromedp.Run(evalCtx, chromedp.Evaluate(string(cond), &ok))
		cancel()
		if err == nil && ok {
			return nil
		}
		if time.Now().After(deadline) {
			return apperrors.NewRenderTimeout("renderer", string(cond))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// HTML returns the rendered markup of the current document.
func (r *ChromeRenderer) HTML(ctx context.Context) (string, error) {
	runCtx, cancel := r.withDeadline(ctx)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", err
	}
	return html, nil
}

// Eval runs a script on the current page and discards its result.
func (r *ChromeRenderer) Eval(ctx context.Context, js string) error {
	runCtx, cancel := r.withDeadline(ctx)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.Evaluate(js, nil))
}

// LastStatus returns the status of the last navigated document.
func (r *ChromeRenderer) LastStatus() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Close releases the browser session.
func (r *ChromeRenderer) Close() {
	if r.tabCancel != nil {
		r.tabCancel()
	}
	if r.allocCancel != nil {
		r.allocCancel()
	}
}

// withDeadline ties a chromedp run to the caller's context without
// detaching it from the browser tab.
func (r *ChromeRenderer) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(r.tabCtx, deadline)
	}
	return context.WithCancel(r.tabCtx)
}
