package storage

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apartment-hunter/internal/crawler"
	"apartment-hunter/internal/scorer"
)

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "apartments.csv")
	w := NewCSVWriter(path)
	assert.Equal(t, "csv", w.Name())

	listings := []scorer.ScoredListing{
		{
			ListingRecord: crawler.ListingRecord{
				URL:      "https://example.fi/vuokra-asunnot/helsinki/111",
				Title:    "Kaksio",
				HasSauna: true,
			},
			Price:           1150,
			FloorArea:       52.5,
			PricePerSqm:     21.9,
			WalkingMinutes:  10,
			WalkingDistance: 800,
			TransitMinutes:  20,
			Zones:           "A",
			Score:           145.5,
		},
		{
			ListingRecord: crawler.ListingRecord{
				URL:   "https://example.fi/vuokra-asunnot/espoo/222",
				Title: "Kolmio",
			},
			Price:     1200,
			FloorArea: 70,
			Score:     98.2,
		},
	}

	require.NoError(t, w.Write(context.Background(), listings))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "url", rows[0][0])
	assert.Equal(t, "score", rows[0][len(rows[0])-1])

	// Score order of the input is preserved.
	assert.Equal(t, "https://example.fi/vuokra-asunnot/helsinki/111", rows[1][0])
	assert.Equal(t, "145.50", rows[1][len(rows[1])-1])
	assert.Equal(t, "https://example.fi/vuokra-asunnot/espoo/222", rows[2][0])

	assert.Equal(t, "true", rows[1][12])
	assert.Equal(t, "A", rows[1][11])
}

func TestCSVWriterEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apartments.csv")
	w := NewCSVWriter(path)

	require.NoError(t, w.Write(context.Background(), nil))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestCSVWriterOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apartments.csv")
	w := NewCSVWriter(path)

	require.NoError(t, w.Write(context.Background(), []scorer.ScoredListing{
		{ListingRecord: crawler.ListingRecord{URL: "https://example.fi/1"}},
	}))
	require.NoError(t, w.Write(context.Background(), nil))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
