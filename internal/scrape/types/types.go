package types

import (
	"context"

	"jobwatch/internal/domain"
)

// Fetcher returns the raw listing markup for one fixed search.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) (string, error)
}

// Extractor turns listing markup into records, in page order.
type Extractor interface {
	Extract(markup string) ([]domain.RawRecord, error)
}

// ScrapeResult is what one fetch+extract pass produced.
type ScrapeResult struct {
	Source  string
	Records []domain.RawRecord
	Bytes   int
}
