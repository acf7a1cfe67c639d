package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"apartment-hunter/config"
	"apartment-hunter/internal/renderer"
	"apartment-hunter/logger"
	apperrors "apartment-hunter/pkg/errors"
)

const scrollToBottomJS = `window.scrollTo(0, document.body.scrollHeight)`

// itemReadyCondition is enough for item pages; their fields are in the
// initial render.
const itemReadyCondition renderer.Condition = `document.readyState === "complete"`

// cardCountCondition waits until a pagination page has rendered at
// least n listing cards.
func cardCountCondition(n int) renderer.Condition {
	return renderer.Condition(fmt.Sprintf(
		`document.querySelectorAll('div[class*="cards-v2__card"]').length >= %d`, n))
}

// Crawler walks the paginated search results in increasing page order
// with a single in-flight request, persisting every extracted listing
// through the state store. Extraction failures skip the affected item
// and the crawl continues.
type Crawler struct {
	cfg         *config.Config
	newRenderer renderer.Factory
	store       *Store
	throttle    *AutoThrottle
	log         *logger.Logger
	now         func() time.Time
}

// New creates a crawler. The renderer factory is injected so tests can
// run against a deterministic fake.
func New(cfg *config.Config, factory renderer.Factory, store *Store) *Crawler {
	return &Crawler{
		cfg:         cfg,
		newRenderer: factory,
		store:       store,
		throttle:    NewAutoThrottle(cfg.Throttle),
		log:         logger.ForComponent("crawler"),
		now:         time.Now,
	}
}

// Run crawls until the target record count is reached, the crawl
// timeout elapses, or all pages are exhausted. It returns every
// accumulated record, previous runs included.
func (c *Crawler) Run(ctx context.Context) ([]ListingRecord, error) {
	if c.reachedTarget() {
		c.log.Info().Int("records", c.store.Count()).Msg("Target already reached by previous runs")
		return c.store.Records(), nil
	}

	if c.cfg.CrawlTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CrawlTimeout)
		defer cancel()
	}

	r := c.newRenderer()
	if err := r.Open(ctx); err != nil {
		return nil, err
	}
	defer r.Close()

	startURL := SearchURL(c.cfg.Filters, 1)
	c.log.Info().Str("url", startURL).Msg("Discovering pagination depth")

	total, err := DiscoverPageCount(ctx, r, startURL, c.cfg.RenderWait)
	if err != nil {
		return nil, err
	}
	c.log.Info().Int("pages", total).Msg("Discovered pagination depth")

	for page := 1; page <= total; page++ {
		if c.stopped(ctx) {
			break
		}
		if err := c.crawlPage(ctx, r, page, total); err != nil {
			if ctx.Err() != nil {
				break
			}
			c.log.Warn().Err(err).Int("page", page).Msg("Skipping pagination page")
		}
	}

	c.log.Info().
		Int("records", c.store.Count()).
		Msg("Crawl finished")
	return c.store.Records(), nil
}

// crawlPage fetches one pagination page and visits its unvisited items
// in extraction order.
func (c *Crawler) crawlPage(ctx context.Context, r renderer.Renderer, page, total int) error {
	expect := c.cfg.ListingsPerPage
	if page == total {
		// The final page can be partial but never empty.
		expect = 1
	}

	req := PageFetchRequest{URL: SearchURL(c.cfg.Filters, page), Page: page, Kind: RequestPagination}
	html, err := c.fetch(ctx, r, req, cardCountCondition(expect))
	if err != nil {
		return err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return apperrors.NewExtraction("crawl", "invalid pagination markup", err)
	}

	links := ItemLinks(doc, c.cfg.Filters.BaseURL)
	c.log.Debug().Int("page", page).Int("links", len(links)).Msg("Extracted item links")

	for _, link := range links {
		if c.stopped(ctx) {
			return nil
		}
		if c.store.Visited(link) {
			continue
		}
		if err := c.crawlItem(ctx, r, link, page); err != nil {
			if ctx.Err() != nil {
				return err
			}
			c.log.Warn().Err(err).Str("url", link).Msg("Skipping listing")
		}
	}
	return nil
}

// crawlItem renders one listing page, extracts it and persists the
// result. The URL is marked visited only after a successful append so
// a failed item stays eligible for a later session.
func (c *Crawler) crawlItem(ctx context.Context, r renderer.Renderer, link string, page int) error {
	req := PageFetchRequest{URL: link, Page: page, Kind: RequestItem}
	html, err := c.fetch(ctx, r, req, itemReadyCondition)
	if err != nil {
		return err
	}

	rec, err := ExtractListing(link, html, c.now())
	if err != nil {
		return err
	}

	if err := c.store.Append(rec); err != nil {
		return err
	}
	if err := c.store.MarkVisited(link); err != nil {
		return err
	}

	c.log.Info().
		Str("title", rec.Title).
		Int("records", c.store.Count()).
		Msg("Captured listing")
	return nil
}

// fetch renders one URL under throttle and retry policy. Transient
// document statuses are retried with increasing delay until the
// attempt budget runs out; anything else fails immediately.
func (c *Crawler) fetch(ctx context.Context, r renderer.Renderer, req PageFetchRequest, cond renderer.Condition) (string, error) {
	policy := c.cfg.CrawlRetry
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := c.throttle.Wait(ctx); err != nil {
			return "", err
		}

		start := time.Now()
		err := r.Navigate(ctx, req.URL)
		if err == nil {
			if status := r.LastStatus(); status >= 400 {
				err = apperrors.NewFetch("fetch", "document request failed", status, nil)
			}
		}
		if err == nil && req.Kind == RequestPagination {
			// Card rendering is lazy; nudge the page to the bottom.
			_ = r.Eval(ctx, scrollToBottomJS)
		}
		if err == nil {
			err = r.WaitUntil(ctx, cond, c.cfg.RenderWait)
		}
		c.throttle.Observe(time.Since(start))

		if err == nil {
			return r.HTML(ctx)
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", err
		}

		status := 0
		var pe *apperrors.PipelineError
		if errors.As(err, &pe) {
			status = pe.Status
		}
		if !policy.Retryable(status) {
			return "", err
		}

		if attempt < policy.MaxAttempts {
			wait := time.Duration(attempt) * policy.BackoffBase
			c.log.Warn().
				Err(err).
				Str("url", req.URL).
				Int("attempt", attempt).
				Dur("wait", wait).
				Msg("Transient fetch failure, retrying")
			if err := sleepCtx(ctx, wait); err != nil {
				return "", err
			}
		}
	}

	return "", apperrors.NewFetch("fetch",
		fmt.Sprintf("retry budget exhausted after %d attempts", policy.MaxAttempts), 0, lastErr)
}

// stopped reports whether a cooperative cancellation signal fired:
// context done or target record count reached.
func (c *Crawler) stopped(ctx context.Context) bool {
	return ctx.Err() != nil || c.reachedTarget()
}

func (c *Crawler) reachedTarget() bool {
	return c.cfg.TargetListings > 0 && c.store.Count() >= c.cfg.TargetListings
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
