package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apartment-hunter/internal/crawler"
	"apartment-hunter/internal/scorer"
)

type stubCrawler struct {
	records []crawler.ListingRecord
	err     error
}

func (s *stubCrawler) Run(_ context.Context) ([]crawler.ListingRecord, error) {
	return s.records, s.err
}

type stubScorer struct {
	got    []crawler.ListingRecord
	ranked []scorer.ScoredListing
	err    error
}

func (s *stubScorer) Run(_ context.Context, records []crawler.ListingRecord) ([]scorer.ScoredListing, scorer.Stats, error) {
	s.got = records
	return s.ranked, scorer.Stats{Raw: len(records), Ranked: len(s.ranked)}, s.err
}

type stubSink struct {
	name    string
	written []scorer.ScoredListing
	err     error
}

func (s *stubSink) Name() string { return s.name }

func (s *stubSink) Write(_ context.Context, listings []scorer.ScoredListing) error {
	s.written = listings
	return s.err
}

type stubPublisher struct {
	published []scorer.ScoredListing
	err       error
}

func (s *stubPublisher) Publish(_ context.Context, listing scorer.ScoredListing) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, listing)
	return nil
}

func (s *stubPublisher) Close() error { return nil }

func rankedFixture() []scorer.ScoredListing {
	return []scorer.ScoredListing{
		{ListingRecord: crawler.ListingRecord{URL: "https://example.fi/1"}, Score: 120},
		{ListingRecord: crawler.ListingRecord{URL: "https://example.fi/2"}, Score: 80},
	}
}

func TestPipelineRun(t *testing.T) {
	records := []crawler.ListingRecord{{URL: "https://example.fi/1"}, {URL: "https://example.fi/2"}}
	c := &stubCrawler{records: records}
	s := &stubScorer{ranked: rankedFixture()}
	pub := &stubPublisher{}
	sink := &stubSink{name: "csv"}

	p := NewPipeline(c, s, pub, sink)

	ranked, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, records, s.got)
	assert.Equal(t, rankedFixture(), ranked)
	assert.Equal(t, rankedFixture(), sink.written)
	assert.Len(t, pub.published, 2)
}

func TestPipelineCrawlFailureAborts(t *testing.T) {
	c := &stubCrawler{err: errors.New("discovery failed")}
	s := &stubScorer{}
	sink := &stubSink{name: "csv"}

	p := NewPipeline(c, s, nil, sink)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, s.got)
	assert.Nil(t, sink.written)
}

func TestPipelineScorerFailureAborts(t *testing.T) {
	c := &stubCrawler{records: []crawler.ListingRecord{{URL: "https://example.fi/1"}}}
	s := &stubScorer{err: errors.New("context cancelled")}
	sink := &stubSink{name: "csv"}

	p := NewPipeline(c, s, nil, sink)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, sink.written)
}

func TestPipelineSinkFailureDoesNotAbort(t *testing.T) {
	c := &stubCrawler{}
	s := &stubScorer{ranked: rankedFixture()}
	failing := &stubSink{name: "postgres", err: errors.New("connection lost")}
	ok := &stubSink{name: "csv"}

	p := NewPipeline(c, s, nil, failing, ok)

	ranked, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, ranked, 2)
	assert.Equal(t, rankedFixture(), ok.written)
}

func TestPipelinePublishFailureDoesNotAbort(t *testing.T) {
	c := &stubCrawler{}
	s := &stubScorer{ranked: rankedFixture()}
	pub := &stubPublisher{err: errors.New("stream unavailable")}

	p := NewPipeline(c, s, pub)

	ranked, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, ranked, 2)
}

func TestPipelineWithoutPublisherOrSinks(t *testing.T) {
	p := NewPipeline(&stubCrawler{}, &stubScorer{}, nil)

	ranked, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ranked)
}
