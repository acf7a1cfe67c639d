package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"apartment-hunter/internal/scorer"
	apperrors "apartment-hunter/pkg/errors"
)

// PostgresWriter persists ranked listings so runs can be compared over
// time. Listings are keyed by URL; a re-crawled listing updates its row.
type PostgresWriter struct {
	pool *pgxpool.Pool
}

// NewPostgresWriter connects to the database and verifies the
// connection.
func NewPostgresWriter(ctx context.Context, dsn string) (*PostgresWriter, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, dsn)
	if err != nil {
		return nil, apperrors.NewStorage("postgres", "could not create pool", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, apperrors.NewStorage("postgres", "could not connect", err)
	}

	return &PostgresWriter{pool: pool}, nil
}

// Name identifies the sink in logs.
func (w *PostgresWriter) Name() string {
	return "postgres"
}

// Close releases the connection pool.
func (w *PostgresWriter) Close() {
	if w.pool != nil {
		w.pool.Close()
	}
}

// EnsureSchema creates the listings table when missing.
func (w *PostgresWriter) EnsureSchema(ctx context.Context) error {
	schemaCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	sql := `
	CREATE TABLE IF NOT EXISTS scored_listings (
		id BIGSERIAL PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		title TEXT,
		published TEXT,
		price NUMERIC(12,2),
		floor_area NUMERIC(8,2),
		price_per_sqm NUMERIC(10,2),
		walking_minutes NUMERIC(8,2),
		walking_distance_m NUMERIC(10,2),
		transit_minutes NUMERIC(8,2),
		zones TEXT,
		has_sauna BOOLEAN NOT NULL DEFAULT FALSE,
		building_has_sauna BOOLEAN NOT NULL DEFAULT FALSE,
		score NUMERIC(12,4),
		captured_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_scored_listings_score ON scored_listings(score);
	`

	if _, err := w.pool.Exec(schemaCtx, sql); err != nil {
		return apperrors.NewStorage("postgres", "could not ensure schema", err)
	}
	return nil
}

// Write upserts all listings in one batch.
func (w *PostgresWriter) Write(ctx context.Context, listings []scorer.ScoredListing) error {
	if len(listings) == 0 {
		return nil
	}

	writeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	batch := &pgx.Batch{}
	insertSQL := `
	INSERT INTO scored_listings (
		url, title, published, price, floor_area, price_per_sqm,
		walking_minutes, walking_distance_m, transit_minutes, zones,
		has_sauna, building_has_sauna, score, captured_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
	ON CONFLICT (url) DO UPDATE SET
		price = EXCLUDED.price,
		price_per_sqm = EXCLUDED.price_per_sqm,
		walking_minutes = EXCLUDED.walking_minutes,
		walking_distance_m = EXCLUDED.walking_distance_m,
		transit_minutes = EXCLUDED.transit_minutes,
		zones = EXCLUDED.zones,
		score = EXCLUDED.score,
		updated_at = NOW();
	`

	for _, l := range listings {
		batch.Queue(
			insertSQL,
			l.URL,
			l.Title,
			l.Published,
			l.Price,
			l.FloorArea,
			l.PricePerSqm,
			l.WalkingMinutes,
			l.WalkingDistance,
			l.TransitMinutes,
			l.Zones,
			l.HasSauna,
			l.BuildingHasSauna,
			l.Score,
			l.CapturedAt,
		)
	}

	results := w.pool.SendBatch(writeCtx, batch)
	defer results.Close()

	for range listings {
		if _, err := results.Exec(); err != nil {
			return apperrors.NewStorage("postgres", "batch upsert failed", err)
		}
	}
	return nil
}
