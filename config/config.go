package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "apartment-hunter/pkg/errors"
)

// Location identifies a search area as the target site encodes it:
// a city code, an area-type code and a display name, serialized as a
// compact JSON triple like [64,6,"Helsinki"].
type Location struct {
	CityCode int
	AreaType int
	Name     string
}

// JSON returns the compact triple form with no interior whitespace.
func (l Location) JSON() string {
	return fmt.Sprintf("[%d,%d,%q]", l.CityCode, l.AreaType, l.Name)
}

// SearchFilters are the fixed query parameters applied to every
// pagination page.
type SearchFilters struct {
	BaseURL   string
	MaxPrice  int
	MinSize   int
	Rooms     []int
	Locations []Location
}

// RetryPolicy bounds retries for a class of requests.
type RetryPolicy struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	RetryableStatuses []int
}

// Retryable reports whether a status code is considered transient.
func (p RetryPolicy) Retryable(status int) bool {
	for _, s := range p.RetryableStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ThrottlePolicy drives the adaptive delay between requests to the
// target site. Delay converges toward latency/TargetConcurrency.
type ThrottlePolicy struct {
	StartDelay        time.Duration
	MinDelay          time.Duration
	MaxDelay          time.Duration
	TargetConcurrency float64
}

// ScoreWeights are the signed weights of the desirability score.
// Cost-like features carry negative weights.
type ScoreWeights struct {
	WalkingDuration float64
	TravelDuration  float64
	Price           float64
	PricePerSqm     float64
	FloorArea       float64
}

// Config represents the application configuration. It is constructed
// once in main and passed to each component, never mutated.
type Config struct {
	// Crawl configuration
	Filters         SearchFilters
	ListingsPerPage int
	TargetListings  int
	CrawlTimeout    time.Duration // 0 means run to completion
	RenderWait      time.Duration
	JobDir          string
	Headless        bool
	CrawlRetry      RetryPolicy
	Throttle        ThrottlePolicy

	// Enrichment and scoring
	PointLat      float64
	PointLon      float64
	DistanceLimit float64 // meters
	StopRadius    int     // meters, for zone lookups
	EnrichWorkers int
	Weights       ScoreWeights
	ZoneBonus     float64
	SaunaBonus    float64

	// Routing API
	RoutingURL    string
	RoutingAPIKey string
	GeoRetry      RetryPolicy

	// Optional services
	MemcacheAddr  string
	RedisAddr     string
	RedisDB       int
	RedisStream   string
	RedisStreamMaxLength int
	PostgresDSN   string
	CSVPath       string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		Filters: SearchFilters{
			BaseURL:  getEnv("LISTING_BASE_URL", "https://asunnot.oikotie.fi/vuokra-asunnot"),
			MaxPrice: getEnvInt("MAX_PRICE", 1200),
			MinSize:  getEnvInt("MIN_SIZE", 48),
			Rooms:    getEnvInts("ROOM_COUNTS", []int{2, 3, 4, 5}),
			Locations: []Location{
				{CityCode: 64, AreaType: 6, Name: "Helsinki"},
				{CityCode: 39, AreaType: 6, Name: "Espoo"},
				{CityCode: 65, AreaType: 6, Name: "Vantaa"},
			},
		},
		ListingsPerPage: getEnvInt("LISTINGS_PER_PAGE", 24),
		TargetListings:  getEnvInt("TARGET_LISTINGS", 100),
		CrawlTimeout:    getEnvDuration("CRAWL_TIMEOUT_SECONDS", 0),
		RenderWait:      getEnvDuration("RENDER_WAIT_SECONDS", 10*time.Second),
		JobDir:          getEnv("JOB_DIR", "/tmp/apartments"),
		Headless:        getEnv("HEADLESS", "true") != "false",
		CrawlRetry: RetryPolicy{
			MaxAttempts:       getEnvInt("CRAWL_MAX_ATTEMPTS", 10),
			BackoffBase:       getEnvDuration("CRAWL_BACKOFF_SECONDS", 2*time.Second),
			RetryableStatuses: []int{403, 408, 429, 500, 502, 503, 504, 522, 524},
		},
		Throttle: ThrottlePolicy{
			StartDelay:        getEnvDuration("THROTTLE_START_SECONDS", 1*time.Second),
			MinDelay:          getEnvDuration("THROTTLE_MIN_SECONDS", 1*time.Second),
			MaxDelay:          getEnvDuration("THROTTLE_MAX_SECONDS", 30*time.Second),
			TargetConcurrency: getEnvFloat("THROTTLE_TARGET_CONCURRENCY", 0.2),
		},
		PointLat:      getEnvFloat("POINT_OF_INTEREST_LAT", 60.1628905),
		PointLon:      getEnvFloat("POINT_OF_INTEREST_LON", 24.9198913),
		DistanceLimit: getEnvFloat("DISTANCE_LIMIT_METERS", 5000),
		StopRadius:    getEnvInt("STOP_RADIUS_METERS", 500),
		EnrichWorkers: getEnvInt("ENRICH_WORKERS", 2),
		Weights: ScoreWeights{
			WalkingDuration: getEnvFloat("WEIGHT_WALKING_DURATION", -0.05),
			TravelDuration:  getEnvFloat("WEIGHT_TRAVEL_DURATION", -0.05),
			Price:           getEnvFloat("WEIGHT_PRICE", -0.05),
			PricePerSqm:     getEnvFloat("WEIGHT_PRICE_PER_SQM", -5),
			FloorArea:       getEnvFloat("WEIGHT_FLOOR_AREA", 5),
		},
		ZoneBonus:  getEnvFloat("ZONE_BONUS", 10),
		SaunaBonus: getEnvFloat("SAUNA_BONUS", 10),
		RoutingURL:    getEnv("ROUTING_URL", "https://api.digitransit.fi/routing/v1/routers/hsl/index/graphql"),
		RoutingAPIKey: getEnv("DIGITRANSIT_API_KEY", ""),
		GeoRetry: RetryPolicy{
			MaxAttempts:       getEnvInt("GEO_MAX_ATTEMPTS", 3),
			BackoffBase:       getEnvDuration("GEO_BACKOFF_MILLIS", 500*time.Millisecond),
			RetryableStatuses: []int{429, 500, 502, 503, 504},
		},
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "apartments"),
		RedisStreamMaxLength: getEnvInt("REDIS_STREAM_MAX_LENGTH", 500),
		PostgresDSN:          getEnv("POSTGRES_DSN", ""),
		CSVPath:              getEnv("CSV_PATH", "output/apartments.csv"),
		Environment:          getEnv("APTHUNTER_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.RoutingAPIKey == "" {
		return apperrors.NewConfiguration("DIGITRANSIT_API_KEY is required", nil)
	}
	if c.Filters.BaseURL == "" {
		return apperrors.NewConfiguration("listing base URL must not be empty", nil)
	}
	if c.ListingsPerPage < 1 {
		return apperrors.NewConfiguration("listings per page must be at least 1", nil)
	}
	if c.TargetListings < 1 {
		return apperrors.NewConfiguration("target listing count must be at least 1", nil)
	}
	if c.DistanceLimit <= 0 {
		return apperrors.NewConfiguration("distance limit must be positive", nil)
	}
	if c.Throttle.TargetConcurrency <= 0 {
		return apperrors.NewConfiguration("throttle target concurrency must be positive", nil)
	}
	if c.CrawlRetry.MaxAttempts < 1 || c.GeoRetry.MaxAttempts < 1 {
		return apperrors.NewConfiguration("retry attempt budgets must be at least 1", nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// getEnvDuration reads a numeric env var in the unit named by the key
// suffix (SECONDS or MILLIS).
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	if strings.HasSuffix(key, "MILLIS") {
		return time.Duration(n) * time.Millisecond
	}
	return time.Duration(n) * time.Second
}

// getEnvInts reads a comma-separated list of integers.
func getEnvInts(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return defaultValue
		}
		out = append(out, n)
	}
	return out
}
