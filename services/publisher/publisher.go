package publisher

import (
	"context"

	"apartment-hunter/internal/scorer"
)

// Publisher hands ranked listings to downstream consumers, such as the
// report renderer.
type Publisher interface {
	// Publish publishes one ranked listing
	Publish(ctx context.Context, listing scorer.ScoredListing) error

	// Close closes the publisher connection
	Close() error
}
