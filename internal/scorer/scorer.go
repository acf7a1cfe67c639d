package scorer

import (
	"context"
	"sort"
	"sync"

	"apartment-hunter/config"
	"apartment-hunter/internal/crawler"
	"apartment-hunter/internal/transit"
	"apartment-hunter/logger"
)

// GeoClient is the slice of the routing client the scorer needs.
type GeoClient interface {
	WalkingDistance(ctx context.Context, from, to transit.Coordinate) (transit.Itinerary, error)
	TravelTime(ctx context.Context, from, to transit.Coordinate) (transit.Itinerary, error)
	Zones(ctx context.Context, at transit.Coordinate, radius int) (string, error)
}

// ScoredListing is a ListingRecord with its cleaned and derived
// numeric fields and final score. Read-only once produced.
type ScoredListing struct {
	crawler.ListingRecord

	DistanceMeters float64 `json:"distance_m"`
	Price          float64 `json:"price"`
	FloorArea      float64 `json:"floor_area"`
	PricePerSqm    float64 `json:"price_per_sqm"`

	WalkingSeconds  float64 `json:"walking_seconds"`
	WalkingMinutes  float64 `json:"walking_minutes"`
	WalkingDistance float64 `json:"walking_distance_m"`
	TransitSeconds  float64 `json:"transit_seconds"`
	TransitMinutes  float64 `json:"transit_minutes"`
	Zones           string  `json:"zones"`

	Score float64 `json:"score"`
}

// Stats counts records surviving each pipeline stage so silent data
// loss shows up in the logs.
type Stats struct {
	Raw            int
	WithinDistance int
	Cleaned        int
	Enriched       int
	Ranked         int
}

// Scorer geo-filters, cleans, enriches and scores crawled records.
type Scorer struct {
	cfg *config.Config
	geo GeoClient
	log *logger.Logger
}

// New creates a scorer around the given routing client.
func New(cfg *config.Config, geo GeoClient) *Scorer {
	return &Scorer{
		cfg: cfg,
		geo: geo,
		log: logger.ForComponent("scorer"),
	}
}

// Run executes the full pipeline over the input records and returns
// the surviving listings ranked by descending score. Records that fail
// enrichment are dropped rather than ranked with corrupt values.
func (s *Scorer) Run(ctx context.Context, records []crawler.ListingRecord) ([]ScoredListing, Stats, error) {
	stats := Stats{Raw: len(records)}
	poi := transit.Coordinate{Lat: s.cfg.PointLat, Lon: s.cfg.PointLon}

	// Stage 1: geo-filter, strictly inside the distance limit.
	var candidates []ScoredListing
	for _, rec := range records {
		if rec.Latitude == nil || rec.Longitude == nil {
			s.log.Debug().Str("url", rec.URL).Msg("Dropping listing without coordinates")
			continue
		}
		dist := Haversine(*rec.Latitude, *rec.Longitude, poi.Lat, poi.Lon)
		if dist >= s.cfg.DistanceLimit {
			continue
		}
		candidates = append(candidates, ScoredListing{ListingRecord: rec, DistanceMeters: dist})
	}
	stats.WithinDistance = len(candidates)

	// Stage 2: numeric cleaning. Unparsable price or area drops the
	// record here so no downstream division can blow up.
	cleaned := candidates[:0]
	for _, sl := range candidates {
		price, err := CleanPrice(sl.PriceNoTax)
		if err != nil {
			s.log.Warn().Err(err).Str("url", sl.URL).Msg("Dropping listing with unusable price")
			continue
		}
		area, err := CleanArea(sl.LifeSq)
		if err != nil || area <= 0 {
			s.log.Warn().Str("url", sl.URL).Str("life_sq", sl.LifeSq).Msg("Dropping listing with unusable floor area")
			continue
		}
		sl.Price = price
		sl.FloorArea = area
		cleaned = append(cleaned, sl)
	}
	stats.Cleaned = len(cleaned)

	// Stage 3: enrichment. Records are immutable inputs and each
	// worker writes only its own output slot.
	enriched := s.enrich(ctx, cleaned, poi)
	stats.Enriched = len(enriched)

	// Stages 4-5: derive and score.
	for i := range enriched {
		sl := &enriched[i]
		sl.PricePerSqm = sl.Price / sl.FloorArea
		sl.WalkingMinutes = sl.WalkingSeconds / 60
		sl.TransitMinutes = sl.TransitSeconds / 60
		sl.Score = s.score(sl)
	}

	// Stage 6: rank descending.
	sort.SliceStable(enriched, func(i, j int) bool {
		return enriched[i].Score > enriched[j].Score
	})
	stats.Ranked = len(enriched)

	s.log.Info().
		Int("raw", stats.Raw).
		Int("within_distance", stats.WithinDistance).
		Int("cleaned", stats.Cleaned).
		Int("enriched", stats.Enriched).
		Int("ranked", stats.Ranked).
		Msg("Scoring pipeline finished")

	return enriched, stats, ctx.Err()
}

// enrich fans the routing calls out over a bounded worker pool and
// compacts the successful results back into input order.
func (s *Scorer) enrich(ctx context.Context, in []ScoredListing, poi transit.Coordinate) []ScoredListing {
	workers := s.cfg.EnrichWorkers
	if workers < 1 {
		workers = 1
	}

	results := make([]*ScoredListing, len(in))
	jobs := make(chan int)
	var wg sync.WaitGroup

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				sl := in[i]
				if err := s.enrichOne(ctx, &sl, poi); err != nil {
					s.log.Warn().Err(err).Str("url", sl.URL).Msg("Dropping listing after failed enrichment")
					continue
				}
				results[i] = &sl
			}
		}()
	}

	for i := range in {
		if ctx.Err() != nil {
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	out := make([]ScoredListing, 0, len(in))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func (s *Scorer) enrichOne(ctx context.Context, sl *ScoredListing, poi transit.Coordinate) error {
	from := transit.Coordinate{Lat: *sl.Latitude, Lon: *sl.Longitude}

	walk, err := s.geo.WalkingDistance(ctx, from, poi)
	if err != nil {
		return err
	}
	travel, err := s.geo.TravelTime(ctx, from, poi)
	if err != nil {
		return err
	}
	zones, err := s.geo.Zones(ctx, from, s.cfg.StopRadius)
	if err != nil {
		return err
	}

	sl.WalkingSeconds = walk.Duration
	sl.WalkingDistance = walk.WalkDistance
	sl.TransitSeconds = travel.Duration
	sl.Zones = zones
	return nil
}

// score is the weighted linear combination plus the flat zone and
// sauna bonuses. Each bonus applies at most once.
func (s *Scorer) score(sl *ScoredListing) float64 {
	w := s.cfg.Weights
	score := sl.WalkingSeconds*w.WalkingDuration +
		sl.TransitSeconds*w.TravelDuration +
		sl.Price*w.Price +
		sl.PricePerSqm*w.PricePerSqm +
		sl.FloorArea*w.FloorArea

	if sl.Zones == "A" || sl.Zones == "B" {
		score += s.cfg.ZoneBonus
	}
	if sl.HasSauna || sl.BuildingHasSauna {
		score += s.cfg.SaunaBonus
	}
	return score
}
