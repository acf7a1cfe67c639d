package storage

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"apartment-hunter/internal/scorer"
	apperrors "apartment-hunter/pkg/errors"
)

// CSVWriter saves ranked listings to a CSV file, preserving score
// order so the file is directly usable as a report input.
type CSVWriter struct {
	path string
}

// NewCSVWriter creates a CSV writer targeting path.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

// Name identifies the sink in logs.
func (w *CSVWriter) Name() string {
	return "csv"
}

// Write saves all listings, creating the output directory if needed.
func (w *CSVWriter) Write(_ context.Context, listings []scorer.ScoredListing) error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return apperrors.NewStorage("csv", "could not create output dir", err)
	}

	file, err := os.Create(w.path)
	if err != nil {
		return apperrors.NewStorage("csv", "could not create file", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write([]string{
		"url", "title", "published", "price", "floor_area", "price_per_sqm",
		"floor", "availability", "walking_minutes", "walking_distance_m",
		"transit_minutes", "zones", "has_sauna", "building_has_sauna", "score",
	})

	for _, l := range listings {
		writer.Write([]string{
			l.URL,
			l.Title,
			l.Published,
			strconv.FormatFloat(l.Price, 'f', 0, 64),
			strconv.FormatFloat(l.FloorArea, 'f', 1, 64),
			strconv.FormatFloat(l.PricePerSqm, 'f', 2, 64),
			l.Floor,
			l.Availability,
			strconv.FormatFloat(l.WalkingMinutes, 'f', 0, 64),
			strconv.FormatFloat(l.WalkingDistance, 'f', 0, 64),
			strconv.FormatFloat(l.TransitMinutes, 'f', 0, 64),
			l.Zones,
			strconv.FormatBool(l.HasSauna),
			strconv.FormatBool(l.BuildingHasSauna),
			strconv.FormatFloat(l.Score, 'f', 2, 64),
		})
	}

	if err := writer.Error(); err != nil {
		return apperrors.NewStorage("csv", "write failed", err)
	}
	return nil
}
