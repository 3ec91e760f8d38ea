// internal/domain/trend/service.go

package trend

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	ErrNoKeywords = errors.New("keyword set is empty")
	ErrNoTimeline = errors.New("timeline is empty")
)

// Cache defines the key-value store holding explanations and peak summaries
type Cache interface {
	// Get returns the value stored at key; found is false on a miss
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value at key; a zero ttl keeps it until deleted
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Delete removes the given keys
	Delete(ctx context.Context, keys ...string) error
}

// SeriesSource defines the provider of raw timelines for a keyword set
type SeriesSource interface {
	// FetchSeries returns the raw timeline for the keyword set
	FetchSeries(ctx context.Context, keywords KeywordSet) ([]RawSample, error)
}

// ExplanationGenerator defines the producer of explanations for a keyword set
type ExplanationGenerator interface {
	// Explain returns the cached explanation or generates a new one
	Explain(ctx context.Context, req ExplainRequest) (*ExplainResult, error)
}

// TextGenerator defines an opaque large-language-model text call
type TextGenerator interface {
	// Generate returns the model's free-text answer to prompt
	Generate(ctx context.Context, prompt string) (string, error)
}

// EventPublisher defines the sink for explanation lifecycle events
type EventPublisher interface {
	// PublishGenerated announces a freshly written explanation
	PublishGenerated(ctx context.Context, event GeneratedEvent) error
}

// ExplanationArchive defines long-term storage of generated explanations
type ExplanationArchive interface {
	// SaveExplanation appends an explanation to the history
	SaveExplanation(ctx context.Context, e ArchivedExplanation) error

	// History returns the most recent explanations for a cache key
	History(ctx context.Context, cacheKey string, limit int) ([]ArchivedExplanation, error)
}

// KeywordSetSource defines where the tracked keyword sets are listed
type KeywordSetSource interface {
	// KeywordSets returns every tracked keyword set
	KeywordSets(ctx context.Context) ([]KeywordSet, error)
}
