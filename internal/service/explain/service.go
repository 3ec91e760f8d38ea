package explain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"trendlens/internal/domain/trend"
	"trendlens/internal/metrics"
	"trendlens/internal/service/listening"
)

// ErrEmptyExplanation is returned when the model answers with no text
var ErrEmptyExplanation = errors.New("generated explanation is empty")

// ServiceConfig contains configuration for the explanation service
type ServiceConfig struct {
	// ExplanationTTL bounds the life of explain-trend entries
	ExplanationTTL time.Duration
	// PeakSummaryTTL bounds peak-summaries entries; zero keeps them
	PeakSummaryTTL time.Duration
	// HistoryLimit caps archive lookups
	HistoryLimit int
}

// DefaultServiceConfig returns the standard cache lifetimes
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ExplanationTTL: 96 * time.Hour,
		HistoryLimit:   20,
	}
}

// Service generates explanations through the cache. Concurrent requests for
// the same keyword set share one generation.
type Service struct {
	cache      trend.Cache
	generator  trend.TextGenerator
	archive    trend.ExplanationArchive
	events     trend.EventPublisher
	normalizer *listening.Normalizer
	analyzer   *listening.Analyzer
	inflight   singleflight.Group
	config     ServiceConfig
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a new explanation service. archive and events may be nil.
func NewService(
	cache trend.Cache,
	generator trend.TextGenerator,
	archive trend.ExplanationArchive,
	events trend.EventPublisher,
	logger *slog.Logger,
	config ServiceConfig,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = DefaultServiceConfig().HistoryLimit
	}

	return &Service{
		cache:      cache,
		generator:  generator,
		archive:    archive,
		events:     events,
		normalizer: listening.NewNormalizer(),
		analyzer:   listening.NewAnalyzer(),
		config:     config,
		logger:     logger.With("component", "explain"),
		now:        time.Now,
	}
}

// Explain returns the cached explanation for the keyword set, or generates,
// caches and announces a new one. Regenerate discards the cached entries first.
func (s *Service) Explain(ctx context.Context, req trend.ExplainRequest) (*trend.ExplainResult, error) {
	if len(req.Keywords.Canonical()) == 0 {
		return nil, trend.ErrNoKeywords
	}
	if len(req.Timeline) == 0 {
		return nil, trend.ErrNoTimeline
	}

	key := trend.ExplanationKey(req.Keywords)
	if !req.Regenerate {
		if cached, ok := s.Cached(ctx, req.Keywords); ok {
			return cached, nil
		}
	}

	v, err, shared := s.inflight.Do(key.String(), func() (any, error) {
		// the generation outlives any single caller that joined it
		detached := context.WithoutCancel(ctx)
		if !req.Regenerate {
			// a generation may have finished since the first read
			if cached, ok := s.Cached(detached, req.Keywords); ok {
				return cached, nil
			}
		}
		return s.generate(detached, req, key)
	})
	if shared {
		metrics.SharedGenerations.Inc()
	}
	if err != nil {
		return nil, err
	}

	result := *v.(*trend.ExplainResult)
	return &result, nil
}

// Cached reads the explanation stored for a keyword set. Cache failures and
// malformed entries are reported as a miss.
func (s *Service) Cached(ctx context.Context, keywords trend.KeywordSet) (*trend.ExplainResult, bool) {
	key := trend.ExplanationKey(keywords)
	doc, ok := s.readExplanation(ctx, key)
	if !ok {
		return nil, false
	}

	summaries := doc.PeakSummaries
	if len(summaries) == 0 {
		if stored, err := s.PeakSummaries(ctx, keywords); err == nil {
			summaries = stored
		}
	}
	if summaries == nil {
		summaries = []trend.PeakSummary{}
	}

	return &trend.ExplainResult{
		Success:       true,
		Explanation:   doc.Explanation,
		PeakSummaries: summaries,
		Keywords:      keywords,
		DataPoints:    doc.DataPoints,
		GeneratedAt:   doc.GeneratedAt,
		Cached:        true,
		CacheKey:      key.String(),
	}, true
}

// CachedExplanation returns the raw explanation text stored for a keyword set
func (s *Service) CachedExplanation(ctx context.Context, keywords trend.KeywordSet) (string, bool) {
	doc, ok := s.readExplanation(ctx, trend.ExplanationKey(keywords))
	if !ok {
		return "", false
	}
	return doc.Explanation, true
}

// PeakSummaries returns the stored peak summaries of a keyword set. A missing
// entry yields an empty list.
func (s *Service) PeakSummaries(ctx context.Context, keywords trend.KeywordSet) ([]trend.PeakSummary, error) {
	key := trend.PeakSummariesKey(keywords)
	raw, found, err := s.cache.Get(ctx, key.String())
	if err != nil {
		metrics.RecordCacheLookup(trend.NamespacePeakSummaries, "error")
		return []trend.PeakSummary{}, fmt.Errorf("error reading peak summaries: %w", err)
	}
	if !found || strings.TrimSpace(raw) == "" {
		metrics.RecordCacheLookup(trend.NamespacePeakSummaries, "miss")
		return []trend.PeakSummary{}, nil
	}
	metrics.RecordCacheLookup(trend.NamespacePeakSummaries, "hit")

	var summaries []trend.PeakSummary
	if err := json.Unmarshal([]byte(raw), &summaries); err != nil {
		return []trend.PeakSummary{}, fmt.Errorf("error decoding peak summaries: %w", err)
	}
	if summaries == nil {
		summaries = []trend.PeakSummary{}
	}
	return summaries, nil
}

// History returns archived explanations of a keyword set, newest first
func (s *Service) History(ctx context.Context, keywords trend.KeywordSet) ([]trend.ArchivedExplanation, error) {
	if s.archive == nil {
		return []trend.ArchivedExplanation{}, nil
	}
	return s.archive.History(ctx, trend.ExplanationKey(keywords).String(), s.config.HistoryLimit)
}

func (s *Service) readExplanation(ctx context.Context, key trend.CacheKey) (*trend.CachedExplanation, bool) {
	raw, found, err := s.cache.Get(ctx, key.String())
	if err != nil {
		metrics.RecordCacheLookup(key.Namespace, "error")
		s.logger.Warn("cache read failed, treating as miss", "key", key.String(), "error", err)
		return nil, false
	}
	if !found {
		metrics.RecordCacheLookup(key.Namespace, "miss")
		return nil, false
	}

	var doc trend.CachedExplanation
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		metrics.RecordCacheLookup(key.Namespace, "invalid")
		s.logger.Warn("discarding malformed cache entry", "key", key.String(), "error", err)
		return nil, false
	}
	if strings.TrimSpace(doc.Explanation) == "" {
		metrics.RecordCacheLookup(key.Namespace, "empty")
		return nil, false
	}

	metrics.RecordCacheLookup(key.Namespace, "hit")
	return &doc, true
}

func (s *Service) generate(ctx context.Context, req trend.ExplainRequest, key trend.CacheKey) (*trend.ExplainResult, error) {
	started := time.Now()
	summaryKey := trend.PeakSummariesKey(req.Keywords)

	if req.Regenerate {
		if err := s.cache.Delete(ctx, key.String(), summaryKey.String()); err != nil {
			s.logger.Warn("error clearing cached explanation", "key", key.String(), "error", err)
		}
	}

	points := s.normalizer.Normalize(req.Timeline, len(req.Keywords))
	prompt, err := BuildPrompt(req.Keywords, points, s.analyzer)
	if err != nil {
		metrics.RecordGeneration("error", time.Since(started).Seconds())
		return nil, err
	}

	s.logger.Info("generating explanation",
		"keywords", req.Keywords.String(),
		"points", len(points),
		"regenerate", req.Regenerate,
	)

	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		metrics.RecordGeneration("error", time.Since(started).Seconds())
		return nil, fmt.Errorf("error generating explanation: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.RecordGeneration("empty", time.Since(started).Seconds())
		return nil, ErrEmptyExplanation
	}

	summaries := []trend.PeakSummary{}
	if len(req.Keywords) == 1 {
		summaries = ExtractPeakSummaries(text, points, req.Keywords[0])
	}

	generatedAt := s.now().UTC()
	doc := trend.CachedExplanation{
		Explanation:   text,
		PeakSummaries: summaries,
		GeneratedAt:   generatedAt,
		Keywords:      req.Keywords,
		DataPoints:    len(points),
		Metadata: map[string]any{
			"regenerated": req.Regenerate,
		},
	}
	s.store(ctx, key, summaryKey, doc)

	id := uuid.New().String()
	if s.archive != nil {
		err := s.archive.SaveExplanation(ctx, trend.ArchivedExplanation{
			ID:            id,
			CacheKey:      key.String(),
			Keywords:      req.Keywords,
			Explanation:   text,
			PeakSummaries: summaries,
			GeneratedAt:   generatedAt,
		})
		if err != nil {
			s.logger.Error("error archiving explanation", "key", key.String(), "error", err)
		}
	}
	if s.events != nil {
		err := s.events.PublishGenerated(ctx, trend.GeneratedEvent{
			ID:          id,
			CacheKey:    key.String(),
			Keywords:    req.Keywords,
			GeneratedAt: generatedAt,
			Regenerated: req.Regenerate,
		})
		if err != nil {
			s.logger.Error("error publishing explanation event", "key", key.String(), "error", err)
		}
	}

	metrics.RecordGeneration("success", time.Since(started).Seconds())
	s.logger.Info("explanation generated",
		"key", key.String(),
		"peak_summaries", len(summaries),
		"duration", time.Since(started),
	)

	return &trend.ExplainResult{
		Success:       true,
		Explanation:   text,
		PeakSummaries: summaries,
		Keywords:      req.Keywords,
		DataPoints:    len(points),
		GeneratedAt:   generatedAt,
		CacheKey:      key.String(),
	}, nil
}

// store writes both cache entries; failures leave the result usable
func (s *Service) store(ctx context.Context, key, summaryKey trend.CacheKey, doc trend.CachedExplanation) {
	payload, err := json.Marshal(doc)
	if err != nil {
		s.logger.Error("error encoding explanation", "key", key.String(), "error", err)
		return
	}
	if err := s.cache.Set(ctx, key.String(), string(payload), s.config.ExplanationTTL); err != nil {
		s.logger.Error("error caching explanation", "key", key.String(), "error", err)
	}

	summaries, err := json.Marshal(doc.PeakSummaries)
	if err != nil {
		s.logger.Error("error encoding peak summaries", "key", summaryKey.String(), "error", err)
		return
	}
	if err := s.cache.Set(ctx, summaryKey.String(), string(summaries), s.config.PeakSummaryTTL); err != nil {
		s.logger.Error("error caching peak summaries", "key", summaryKey.String(), "error", err)
	}
}
