package crawler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"apartment-hunter/internal/renderer"
	apperrors "apartment-hunter/pkg/errors"
)

// paginationTotalSelector finds the element whose text holds the
// "current/total" pagination counter.
const paginationTotalSelector = `span[ng-bind*="totalPages"]`

// paginationTotalCondition waits for the counter to be rendered.
const paginationTotalCondition renderer.Condition = `document.querySelector('span[ng-bind*="totalPages"]') !== null`

// dismissModalJS clicks the consent interstitial away when it is
// present. A missing modal is not an error.
const dismissModalJS = `(() => {
	const btn = document.querySelector('#onetrust-accept-btn-handler, button[class*="accept"]');
	if (btn) { btn.click(); }
	return true;
})()`

// DiscoverPageCount renders the start URL and parses the total page
// count from the pagination indicator. Runs exactly once per crawl
// session.
func DiscoverPageCount(ctx context.Context, r renderer.Renderer, startURL string, wait time.Duration) (int, error) {
	if err := r.Navigate(ctx, startURL); err != nil {
		return 0, apperrors.NewDiscovery("discover", "failed to load start page", err)
	}

	// Best effort; the modal only shows up on fresh sessions.
	_ = r.Eval(ctx, dismissModalJS)

	if err := r.WaitUntil(ctx, paginationTotalCondition, wait); err != nil {
		return 0, apperrors.NewDiscovery("discover", "pagination indicator never appeared", err)
	}

	html, err := r.HTML(ctx)
	if err != nil {
		return 0, apperrors.NewDiscovery("discover", "could not read rendered page", err)
	}

	return parsePageCount(html)
}

// parsePageCount extracts the total from a "current/total" counter.
func parsePageCount(html string) (int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, apperrors.NewDiscovery("discover", "invalid markup", err)
	}

	sel := doc.Find(paginationTotalSelector)
	if sel.Length() == 0 {
		return 0, apperrors.NewDiscovery("discover", "pagination indicator not in markup", nil)
	}

	text := strings.TrimSpace(sel.Last().Text())
	parts := strings.Split(text, "/")
	total, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1]))
	if err != nil {
		return 0, apperrors.NewDiscovery("discover", "unparsable pagination counter: "+text, err)
	}
	return total, nil
}
