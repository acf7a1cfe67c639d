package scorer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apartment-hunter/config"
	"apartment-hunter/internal/crawler"
	"apartment-hunter/internal/transit"
	apperrors "apartment-hunter/pkg/errors"
)

// fakeGeo answers every routing query with fixed values and can be
// told to fail for specific listing coordinates.
type fakeGeo struct {
	walkSeconds  float64
	walkDistance float64
	travel       float64
	zones        string
	failLat      map[float64]bool
}

func (f *fakeGeo) WalkingDistance(_ context.Context, from, _ transit.Coordinate) (transit.Itinerary, error) {
	if f.failLat[from.Lat] {
		return transit.Itinerary{}, apperrors.NewGeo("transit", "retry budget exhausted", 0, nil)
	}
	return transit.Itinerary{Duration: f.walkSeconds, WalkDistance: f.walkDistance}, nil
}

func (f *fakeGeo) TravelTime(_ context.Context, from, _ transit.Coordinate) (transit.Itinerary, error) {
	if f.failLat[from.Lat] {
		return transit.Itinerary{}, apperrors.NewGeo("transit", "retry budget exhausted", 0, nil)
	}
	return transit.Itinerary{Duration: f.travel}, nil
}

func (f *fakeGeo) Zones(_ context.Context, _ transit.Coordinate, _ int) (string, error) {
	return f.zones, nil
}

func scorerConfig() *config.Config {
	return &config.Config{
		PointLat:      60.1628905,
		PointLon:      24.9198913,
		DistanceLimit: 5000,
		StopRadius:    500,
		EnrichWorkers: 2,
		Weights: config.ScoreWeights{
			WalkingDuration: -0.05,
			TravelDuration:  -0.05,
			Price:           -0.05,
			PricePerSqm:     -5,
			FloorArea:       5,
		},
		ZoneBonus:  10,
		SaunaBonus: 10,
	}
}

func coords(lat, lon float64) (*float64, *float64) {
	return &lat, &lon
}

func record(url string, lat, lon float64, price, area string) crawler.ListingRecord {
	rec := crawler.ListingRecord{URL: url, PriceNoTax: price, LifeSq: area}
	rec.Latitude, rec.Longitude = coords(lat, lon)
	return rec
}

func TestRunScoresAndRanks(t *testing.T) {
	cfg := scorerConfig()
	geo := &fakeGeo{walkSeconds: 600, walkDistance: 800, travel: 1200, zones: "A"}
	s := New(cfg, geo)

	records := []crawler.ListingRecord{
		record("cheap-big", 60.163, 24.920, "1 000 €", "60 m²"),
		record("pricey-small", 60.164, 24.921, "1 200 €", "48 m²"),
	}

	ranked, stats, err := s.Run(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	// 1000/60 beats 1200/48 on every weighted term.
	assert.Equal(t, "cheap-big", ranked[0].URL)
	assert.Equal(t, "pricey-small", ranked[1].URL)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)

	first := ranked[0]
	assert.Equal(t, 1000.0, first.Price)
	assert.Equal(t, 60.0, first.FloorArea)
	assert.InDelta(t, 1000.0/60.0, first.PricePerSqm, 1e-9)
	assert.InDelta(t, 10.0, first.WalkingMinutes, 1e-9)
	assert.InDelta(t, 20.0, first.TransitMinutes, 1e-9)
	assert.Equal(t, 800.0, first.WalkingDistance)
	assert.Equal(t, "A", first.Zones)

	expected := 600*-0.05 + 1200*-0.05 + 1000*-0.05 + (1000.0/60.0)*-5 + 60*5 + 10
	assert.InDelta(t, expected, first.Score, 1e-9)

	assert.Equal(t, Stats{Raw: 2, WithinDistance: 2, Cleaned: 2, Enriched: 2, Ranked: 2}, stats)
}

func TestRunGeoFilter(t *testing.T) {
	cfg := scorerConfig()
	s := New(cfg, &fakeGeo{zones: ""})

	noCoords := crawler.ListingRecord{URL: "no-coords", PriceNoTax: "1000", LifeSq: "50"}
	// Espoo center is well beyond 5 km from the point of interest.
	farAway := record("far", 60.2055, 24.6559, "1000", "50")
	nearby := record("near", 60.165, 24.92, "1000", "50")

	ranked, stats, err := s.Run(context.Background(), []crawler.ListingRecord{noCoords, farAway, nearby})
	require.NoError(t, err)

	require.Len(t, ranked, 1)
	assert.Equal(t, "near", ranked[0].URL)
	assert.Equal(t, 3, stats.Raw)
	assert.Equal(t, 1, stats.WithinDistance)
}

func TestRunDistanceLimitIsStrict(t *testing.T) {
	cfg := scorerConfig()
	s := New(cfg, &fakeGeo{})

	rec := record("at-poi", cfg.PointLat, cfg.PointLon, "1000", "50")
	cfg.DistanceLimit = 0 // distance 0 is not < 0

	ranked, stats, err := s.Run(context.Background(), []crawler.ListingRecord{rec})
	require.NoError(t, err)

	assert.Empty(t, ranked)
	assert.Equal(t, 0, stats.WithinDistance)
}

func TestRunDropsUnparsableNumbers(t *testing.T) {
	cfg := scorerConfig()
	s := New(cfg, &fakeGeo{})

	badPrice := record("bad-price", 60.165, 24.92, "sopimuksen mukaan", "50")
	badArea := record("bad-area", 60.165, 24.92, "1000", "m²")
	good := record("good", 60.165, 24.92, "1000", "50")

	ranked, stats, err := s.Run(context.Background(), []crawler.ListingRecord{badPrice, badArea, good})
	require.NoError(t, err)

	require.Len(t, ranked, 1)
	assert.Equal(t, "good", ranked[0].URL)
	assert.Equal(t, 3, stats.WithinDistance)
	assert.Equal(t, 1, stats.Cleaned)
}

func TestRunDropsFailedEnrichment(t *testing.T) {
	cfg := scorerConfig()
	geo := &fakeGeo{walkSeconds: 600, travel: 1200, failLat: map[float64]bool{60.166: true}}
	s := New(cfg, geo)

	failing := record("failing", 60.166, 24.92, "1000", "50")
	good := record("good", 60.165, 24.92, "1000", "50")

	ranked, stats, err := s.Run(context.Background(), []crawler.ListingRecord{failing, good})
	require.NoError(t, err)

	require.Len(t, ranked, 1)
	assert.Equal(t, "good", ranked[0].URL)
	assert.Equal(t, 2, stats.Cleaned)
	assert.Equal(t, 1, stats.Enriched)
}

func TestScoreBonuses(t *testing.T) {
	cfg := scorerConfig()
	s := New(cfg, &fakeGeo{})

	base := ScoredListing{Price: 1000, FloorArea: 50, PricePerSqm: 20}
	plain := s.score(&base)

	zoneA := base
	zoneA.Zones = "A"
	assert.InDelta(t, plain+10, s.score(&zoneA), 1e-9)

	zoneC := base
	zoneC.Zones = "C"
	assert.InDelta(t, plain, s.score(&zoneC), 1e-9)

	// Overlapping zones like "AB" take no bonus; only a pure A or B
	// location qualifies.
	zoneAB := base
	zoneAB.Zones = "AB"
	assert.InDelta(t, plain, s.score(&zoneAB), 1e-9)

	// Both sauna flags together still add the bonus once.
	sauna := base
	sauna.HasSauna = true
	sauna.BuildingHasSauna = true
	assert.InDelta(t, plain+10, s.score(&sauna), 1e-9)

	both := base
	both.Zones = "B"
	both.HasSauna = true
	assert.InDelta(t, plain+20, s.score(&both), 1e-9)
}

func TestRunEmptyInput(t *testing.T) {
	s := New(scorerConfig(), &fakeGeo{})

	ranked, stats, err := s.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, ranked)
	assert.Equal(t, Stats{}, stats)
}
