package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"apartment-hunter/config"
	"apartment-hunter/internal/crawler"
	"apartment-hunter/internal/renderer"
	"apartment-hunter/internal/scorer"
	"apartment-hunter/internal/transit"
	"apartment-hunter/logger"
	"apartment-hunter/services/cache"
	"apartment-hunter/services/publisher"
	"apartment-hunter/services/worker"
	"apartment-hunter/storage"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("job_dir", cfg.JobDir).
		Int("target_listings", cfg.TargetListings).
		Msg("Starting application")

	// Set up context cancelled on shutdown signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	// Initialize services
	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	// Crawl state persists in the job directory so interrupted runs resume.
	store, err := crawler.OpenStore(cfg.JobDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open crawl state store")
	}
	defer store.Close()

	geo := transit.NewClient(cfg.RoutingURL, cfg.RoutingAPIKey, cfg.GeoRetry, services.Cache)

	pipeline := worker.NewPipeline(
		crawler.New(cfg, renderer.NewChromeFactory(cfg.Headless), store),
		scorer.New(cfg, geo),
		services.Publisher,
		services.Sinks...,
	)

	ranked, err := pipeline.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Pipeline failed")
	}

	for i, listing := range ranked {
		if i >= 10 {
			break
		}
		log.Info().
			Int("rank", i+1).
			Float64("score", listing.Score).
			Str("title", listing.Title).
			Str("url", listing.URL).
			Msg("Top listing")
	}

	log.Info().Int("ranked", len(ranked)).Msg("Done")
}

// Services holds the optional external services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Sinks     []worker.Sink

	postgres *storage.PostgresWriter
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.postgres != nil {
		s.postgres.Close()
	}
}

// initializeServices wires the optional services. Each one is enabled
// by its address being configured; the pipeline runs without any of
// them.
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	if cfg.MemcacheAddr != "" {
		services.Cache = cache.NewMemcacheService(cfg.MemcacheAddr)
		logger.Info("Caching routing responses in Memcache at %s", cfg.MemcacheAddr)
	}

	if cfg.RedisAddr != "" {
		services.Publisher = publisher.NewRedisPublisher(
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamMaxLength,
		)
		logger.Info("Publishing to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}

	if cfg.CSVPath != "" {
		services.Sinks = append(services.Sinks, storage.NewCSVWriter(cfg.CSVPath))
	}

	if cfg.PostgresDSN != "" {
		pg, err := storage.NewPostgresWriter(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		services.postgres = pg
		services.Sinks = append(services.Sinks, pg)
		logger.Info("Persisting ranked listings to Postgres")
	}

	return services, nil
}
