package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"trendlens/internal/domain/trend"
)

// KeywordSetsKey holds the keyword sets configured in the dashboard
const KeywordSetsKey = "gui-keywords"

type keywordSetsDocument struct {
	KeywordSets [][]string `json:"keywordSets"`
}

// KeywordStore reads the configured keyword sets
type KeywordStore struct {
	client *redis.Client
}

// NewKeywordStore creates a new keyword store
func NewKeywordStore(client *redis.Client) *KeywordStore {
	return &KeywordStore{client: client}
}

// KeywordSets returns every non-empty configured keyword set; a missing
// document yields none
func (s *KeywordStore) KeywordSets(ctx context.Context) ([]trend.KeywordSet, error) {
	raw, err := s.client.Get(ctx, KeywordSetsKey).Result()
	if errors.Is(err, redis.Nil) {
		return []trend.KeywordSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", KeywordSetsKey, err)
	}

	var doc keywordSetsDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", KeywordSetsKey, err)
	}

	sets := make([]trend.KeywordSet, 0, len(doc.KeywordSets))
	for _, members := range doc.KeywordSets {
		if set := trend.NewKeywordSet(members); len(set) > 0 {
			sets = append(sets, set)
		}
	}
	return sets, nil
}

// SaveKeywordSets replaces the configured keyword sets
func (s *KeywordStore) SaveKeywordSets(ctx context.Context, sets []trend.KeywordSet) error {
	doc := keywordSetsDocument{KeywordSets: make([][]string, 0, len(sets))}
	for _, set := range sets {
		doc.KeywordSets = append(doc.KeywordSets, []string(set))
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error encoding keyword sets: %w", err)
	}
	if err := s.client.Set(ctx, KeywordSetsKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("error writing %s: %w", KeywordSetsKey, err)
	}
	return nil
}
