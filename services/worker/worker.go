package worker

import (
	"context"

	"apartment-hunter/internal/crawler"
	"apartment-hunter/internal/scorer"
	"apartment-hunter/logger"
	"apartment-hunter/services/publisher"
)

// Crawler produces raw listing records.
type Crawler interface {
	Run(ctx context.Context) ([]crawler.ListingRecord, error)
}

// Scorer turns raw records into ranked listings.
type Scorer interface {
	Run(ctx context.Context, records []crawler.ListingRecord) ([]scorer.ScoredListing, scorer.Stats, error)
}

// Sink receives the final ranked sequence.
type Sink interface {
	Name() string
	Write(ctx context.Context, listings []scorer.ScoredListing) error
}

// Pipeline runs one crawl-enrich-rank pass and fans the result out to
// the publisher and sinks. Sink and publish failures are logged and do
// not abort the run; the crawl and scoring stages are load-bearing and
// their errors propagate.
type Pipeline struct {
	crawler   Crawler
	scorer    Scorer
	publisher publisher.Publisher // optional
	sinks     []Sink
	log       *logger.Logger
}

// NewPipeline creates a pipeline. pub may be nil when no downstream
// stream is configured.
func NewPipeline(c Crawler, s Scorer, pub publisher.Publisher, sinks ...Sink) *Pipeline {
	return &Pipeline{
		crawler:   c,
		scorer:    s,
		publisher: pub,
		sinks:     sinks,
		log:       logger.ForComponent("pipeline"),
	}
}

// Run executes the pipeline once and returns the ranked listings.
func (p *Pipeline) Run(ctx context.Context) ([]scorer.ScoredListing, error) {
	records, err := p.crawler.Run(ctx)
	if err != nil {
		return nil, err
	}
	p.log.Info().Int("records", len(records)).Msg("Crawl stage complete")

	ranked, stats, err := p.scorer.Run(ctx, records)
	if err != nil {
		return nil, err
	}

	if p.publisher != nil {
		published := 0
		for _, listing := range ranked {
			if err := p.publisher.Publish(ctx, listing); err != nil {
				p.log.Error().Err(err).Str("url", listing.URL).Msg("Could not publish listing")
				continue
			}
			published++
		}
		p.log.Info().Int("published", published).Msg("Published ranked listings")
	}

	for _, sink := range p.sinks {
		if err := sink.Write(ctx, ranked); err != nil {
			p.log.Error().Err(err).Str("sink", sink.Name()).Msg("Sink write failed")
			continue
		}
		p.log.Info().Str("sink", sink.Name()).Int("listings", len(ranked)).Msg("Sink write complete")
	}

	p.log.Info().
		Int("raw", stats.Raw).
		Int("within_distance", stats.WithinDistance).
		Int("cleaned", stats.Cleaned).
		Int("enriched", stats.Enriched).
		Int("ranked", stats.Ranked).
		Msg("Pipeline finished")

	return ranked, nil
}
