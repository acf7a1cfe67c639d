package crawler

import (
	"context"
	"fmt"
	"time"

	"apartment-hunter/internal/renderer"
	apperrors "apartment-hunter/pkg/errors"
)

// fakeRenderer serves canned HTML per URL with scripted per-URL status
// sequences, recording every navigation so tests can assert on fetch
// order and retry counts.
type fakeRenderer struct {
	pages    map[string]string // url -> rendered HTML
	statuses map[string][]int  // url -> status per successive navigation
	failWait map[string]bool   // url -> WaitUntil times out

	current     string
	navigations []string
	opened      bool
	closed      bool
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		pages:    make(map[string]string),
		statuses: make(map[string][]int),
		failWait: make(map[string]bool),
	}
}

func (f *fakeRenderer) factory() renderer.Factory {
	return func() renderer.Renderer { return f }
}

func (f *fakeRenderer) Open(_ context.Context) error {
	f.opened = true
	return nil
}

func (f *fakeRenderer) Navigate(_ context.Context, url string) error {
	f.navigations = append(f.navigations, url)
	f.current = url
	return nil
}

func (f *fakeRenderer) WaitUntil(_ context.Context, _ renderer.Condition, _ time.Duration) error {
	if f.failWait[f.current] {
		return apperrors.NewRenderTimeout("render", "condition never held")
	}
	return nil
}

func (f *fakeRenderer) HTML(_ context.Context) (string, error) {
	html, ok := f.pages[f.current]
	if !ok {
		return "", fmt.Errorf("no fixture for %s", f.current)
	}
	return html, nil
}

func (f *fakeRenderer) Eval(_ context.Context, _ string) error {
	return nil
}

// LastStatus pops the next scripted status for the current URL,
// defaulting to 200 once the script runs out.
func (f *fakeRenderer) LastStatus() int {
	seq := f.statuses[f.current]
	if len(seq) == 0 {
		return 200
	}
	status := seq[0]
	f.statuses[f.current] = seq[1:]
	return status
}

func (f *fakeRenderer) Close() {
	f.closed = true
}

// visits counts navigations to one URL.
func (f *fakeRenderer) visits(url string) int {
	n := 0
	for _, v := range f.navigations {
		if v == url {
			n++
		}
	}
	return n
}
