package crawler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store, err := OpenStore(dir)
	require.NoError(t, err)

	rec := ListingRecord{
		URL:        "https://example.fi/vuokra-asunnot/helsinki/111",
		Title:      "Kaksio",
		PriceNoTax: "1 100 €",
		CapturedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Append(rec))
	require.NoError(t, store.MarkVisited(rec.URL))
	assert.True(t, store.Visited(rec.URL))
	assert.Equal(t, 1, store.Count())
	require.NoError(t, store.Close())

	// A fresh store on the same directory sees the previous run's state.
	resumed, err := OpenStore(dir)
	require.NoError(t, err)
	defer resumed.Close()

	assert.True(t, resumed.Visited(rec.URL))
	assert.False(t, resumed.Visited("https://example.fi/vuokra-asunnot/helsinki/222"))
	require.Equal(t, 1, resumed.Count())
	assert.Equal(t, rec, resumed.Records()[0])
}

func TestStoreFreshDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "job")

	store, err := OpenStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, 0, store.Count())
	assert.False(t, store.Visited("anything"))
}

func TestStoreSkipsTornLine(t *testing.T) {
	dir := t.TempDir()

	content := `{"url":"https://example.fi/vuokra-asunnot/helsinki/111","captured_at":"2024-05-01T10:00:00Z"}
{"url":"https://example.fi/vuokra-asun`
	require.NoError(t, os.WriteFile(filepath.Join(dir, recordsFile), []byte(content), 0o644))

	store, err := OpenStore(dir)
	require.NoError(t, err)
	defer store.Close()

	require.Equal(t, 1, store.Count())
	assert.Equal(t, "https://example.fi/vuokra-asunnot/helsinki/111", store.Records()[0].URL)
}

func TestStoreMarkVisitedIdempotent(t *testing.T) {
	dir := t.TempDir()

	store, err := OpenStore(dir)
	require.NoError(t, err)

	url := "https://example.fi/vuokra-asunnot/helsinki/111"
	require.NoError(t, store.MarkVisited(url))
	require.NoError(t, store.MarkVisited(url))
	require.NoError(t, store.Close())

	data, err := os.ReadFile(filepath.Join(dir, visitedFile))
	require.NoError(t, err)
	assert.Equal(t, url+"\n", string(data))
}
