package transit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"apartment-hunter/config"
	"apartment-hunter/logger"
	apperrors "apartment-hunter/pkg/errors"
	"apartment-hunter/services/cache"
)

const (
	apiKeyHeader = "digitransit-subscription-key"
	userAgent    = "apartment-hunter"
	cacheTTL     = 24 * time.Hour
)

const travelTimeQuery = `
query ($from_lat: Float!, $from_lon: Float!, $to_lat: Float!, $to_lon: Float!) {
  plan(
    from: {lat: $from_lat, lon: $from_lon}
    to: {lat: $to_lat, lon: $to_lon}
    numItineraries: 1
  ) {
    itineraries {
      duration
      legs {
        mode
        duration
        distance
      }
    }
  }
}`

const walkingDistanceQuery = `
query ($from_lat: Float!, $from_lon: Float!, $to_lat: Float!, $to_lon: Float!) {
  plan(
    from: {lat: $from_lat, lon: $from_lon}
    to: {lat: $to_lat, lon: $to_lon}
    numItineraries: 1
    modes: "WALK"
  ) {
    itineraries {
      duration
      walkDistance
    }
  }
}`

const stopsByRadiusQuery = `
query ($lat: Float!, $lon: Float!, $radius: Int!) {
  stopsByRadius(lat: $lat, lon: $lon, radius: $radius) {
    edges {
      node {
        stop {
          name
          zoneId
        }
        distance
      }
    }
  }
}`

// Client issues routing queries against the Digitransit GraphQL API
// with bounded retry and backoff. It holds no internal concurrency;
// callers parallelize across records at their own discretion.
type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
	retry      config.RetryPolicy
	cache      cache.CacheService // optional
	log        *logger.Logger
}

// NewClient creates a routing client. The subscription key is attached
// to every request. cacheSvc may be nil to disable response caching.
func NewClient(url, apiKey string, retry config.RetryPolicy, cacheSvc cache.CacheService) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		url:        url,
		apiKey:     apiKey,
		retry:      retry,
		cache:      cacheSvc,
		log:        logger.ForComponent("transit"),
	}
}

// TravelTime returns the best itinerary between two coordinates.
func (c *Client) TravelTime(ctx context.Context, from, to Coordinate) (Itinerary, error) {
	key := fmt.Sprintf("transit:travel:%.6f,%.6f:%.6f,%.6f", from.Lat, from.Lon, to.Lat, to.Lon)
	var cached Itinerary
	if c.fromCache(key, &cached) {
		return cached, nil
	}

	it, err := c.plan(ctx, travelTimeQuery, from, to)
	if err != nil {
		return Itinerary{}, err
	}
	c.toCache(key, it)
	return it, nil
}

// WalkingDistance returns the walk-only itinerary between two
// coordinates, with duration and walking distance.
func (c *Client) WalkingDistance(ctx context.Context, from, to Coordinate) (Itinerary, error) {
	key := fmt.Sprintf("transit:walk:%.6f,%.6f:%.6f,%.6f", from.Lat, from.Lon, to.Lat, to.Lon)
	var cached Itinerary
	if c.fromCache(key, &cached) {
		return cached, nil
	}

	it, err := c.plan(ctx, walkingDistanceQuery, from, to)
	if err != nil {
		return Itinerary{}, err
	}
	c.toCache(key, it)
	return it, nil
}

// NearestStops returns the stops within radius meters of a coordinate.
func (c *Client) NearestStops(ctx context.Context, at Coordinate, radius int) ([]StopAtDistance, error) {
	var out struct {
		StopsByRadius struct {
			Edges []struct {
				Node StopAtDistance `json:"node"`
			} `json:"edges"`
		} `json:"stopsByRadius"`
	}
	vars := map[string]interface{}{"lat": at.Lat, "lon": at.Lon, "radius": radius}
	if err := c.post(ctx, stopsByRadiusQuery, vars, &out); err != nil {
		return nil, err
	}

	stops := make([]StopAtDistance, 0, len(out.StopsByRadius.Edges))
	for _, edge := range out.StopsByRadius.Edges {
		stops = append(stops, edge.Node)
	}
	return stops, nil
}

// Zones collects the distinct non-null fare zones of the stops within
// radius and returns them concatenated in sorted order, so overlapping
// zones "B" and "A" yield "AB".
func (c *Client) Zones(ctx context.Context, at Coordinate, radius int) (string, error) {
	key := fmt.Sprintf("transit:zones:%.6f,%.6f:%d", at.Lat, at.Lon, radius)
	var cached string
	if c.fromCache(key, &cached) {
		return cached, nil
	}

	stops, err := c.NearestStops(ctx, at, radius)
	if err != nil {
		return "", err
	}

	seen := make(map[string]bool)
	var zones []string
	for _, s := range stops {
		if s.Stop.ZoneID == nil || *s.Stop.ZoneID == "" {
			continue
		}
		if !seen[*s.Stop.ZoneID] {
			seen[*s.Stop.ZoneID] = true
			zones = append(zones, *s.Stop.ZoneID)
		}
	}
	sort.Strings(zones)

	joined := strings.Join(zones, "")
	c.toCache(key, joined)
	return joined, nil
}

// plan runs one of the itinerary queries and returns its single result.
func (c *Client) plan(ctx context.Context, query string, from, to Coordinate) (Itinerary, error) {
	var out struct {
		Plan struct {
			Itineraries []Itinerary `json:"itineraries"`
		} `json:"plan"`
	}
	vars := map[string]interface{}{
		"from_lat": from.Lat,
		"from_lon": from.Lon,
		"to_lat":   to.Lat,
		"to_lon":   to.Lon,
	}
	if err := c.post(ctx, query, vars, &out); err != nil {
		return Itinerary{}, err
	}
	if len(out.Plan.Itineraries) == 0 {
		return Itinerary{}, apperrors.NewGeo("transit", "no itineraries in plan response", 0, nil)
	}
	return out.Plan.Itineraries[0], nil
}

// post issues one GraphQL request under the retry policy. Transient
// statuses are retried with exponential backoff; a response missing
// the top-level data key is a protocol failure and is not retried.
func (c *Client) post(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(map[string]interface{}{
		"query":     query,
		"variables": vars,
	})
	if err != nil {
		return apperrors.NewGeo("transit", "could not encode query", 0, err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			wait := c.retry.BackoffBase * time.Duration(1<<(attempt-2))
			if err := sleepCtx(ctx, wait); err != nil {
				return err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return apperrors.NewGeo("transit", "could not build request", 0, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set(apiKeyHeader, c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Connection-level failures count against the same budget
			// as transient statuses.
			lastErr = err
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("Routing request failed")
			continue
		}

		if c.retry.Retryable(resp.StatusCode) {
			resp.Body.Close()
			lastErr = apperrors.NewGeo("transit", "transient routing API status", resp.StatusCode, nil)
			c.log.Warn().Int("status", resp.StatusCode).Int("attempt", attempt).Msg("Transient routing API status")
			continue
		}

		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		decodeErr := json.NewDecoder(resp.Body).Decode(&envelope)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return apperrors.NewGeo("transit", "routing API request rejected", resp.StatusCode, nil)
		}
		if decodeErr != nil {
			return apperrors.NewGeo("transit", "unreadable routing API response", resp.StatusCode, decodeErr)
		}
		if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
			return apperrors.NewGeo("transit", "routing API response missing data", resp.StatusCode, nil)
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return apperrors.NewGeo("transit", "malformed routing API data", resp.StatusCode, err)
		}
		return nil
	}

	return apperrors.NewGeo("transit",
		fmt.Sprintf("retry budget exhausted after %d attempts", c.retry.MaxAttempts), 0, lastErr)
}

func (c *Client) fromCache(key string, out interface{}) bool {
	if c.cache == nil {
		return false
	}
	data, err := c.cache.Get(key)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (c *Client) toCache(key string, value interface{}) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.cache.Set(key, data, cacheTTL); err != nil {
		c.log.Debug().Err(err).Str("key", key).Msg("Could not cache routing response")
	}
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
