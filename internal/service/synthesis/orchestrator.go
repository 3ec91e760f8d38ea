package synthesis

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"trendlens/internal/domain/trend"
	"trendlens/internal/metrics"
	"trendlens/internal/service/explain"
)

// GrowthThreshold is the growth percentage a keyword set must exceed to take
// part in a synthesis
const GrowthThreshold = 50.0

// Result messages
const (
	MessageNoQualifyingSets = "No keyword sets with >50% growth found"
	MessageNoConclusions    = "No conclusions found for high-growth keyword sets"
	MessageSynthesisFailed  = "Failed to generate superconclusion"
)

// KeywordGrowth pairs a keyword set with its growth percentage
type KeywordGrowth struct {
	Keywords []string `json:"keywords"`
	Growth   float64  `json:"growth"`
}

// Result is the structured outcome of a synthesis. Superconclusion is nil
// whenever no synthesis text could be produced.
type Result struct {
	Success          bool                    `json:"success"`
	Superconclusion  *string                 `json:"superconclusion"`
	Count            int                     `json:"count"`
	KeywordsAnalyzed []KeywordGrowth         `json:"keywordsAnalyzed,omitempty"`
	Conclusions      []trend.ConclusionEntry `json:"conclusions,omitempty"`
	Pending          []KeywordGrowth         `json:"pending,omitempty"`
	Tasks            []string                `json:"tasks,omitempty"`
	Message          string                  `json:"message,omitempty"`
	Error            string                  `json:"error,omitempty"`
}

// OrchestratorConfig contains configuration for the orchestrator
type OrchestratorConfig struct {
	// LookupConcurrency bounds parallel cache reads
	LookupConcurrency int
}

// Orchestrator turns the cached explanations of high-growth keyword sets
// into one cross-cutting synthesis. Sets without a usable explanation are
// handed to background generation and picked up by a later call.
type Orchestrator struct {
	cache       trend.Cache
	series      trend.SeriesSource
	explainer   trend.ExplanationGenerator
	synthesizer trend.TextGenerator
	extractor   *explain.ConclusionExtractor
	tasks       *TaskGroup
	config      OrchestratorConfig
	logger      *slog.Logger
}

// NewOrchestrator creates a new synthesis orchestrator
func NewOrchestrator(
	cache trend.Cache,
	series trend.SeriesSource,
	explainer trend.ExplanationGenerator,
	synthesizer trend.TextGenerator,
	tasks *TaskGroup,
	logger *slog.Logger,
	config OrchestratorConfig,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if config.LookupConcurrency <= 0 {
		config.LookupConcurrency = 8
	}

	return &Orchestrator{
		cache:       cache,
		series:      series,
		explainer:   explainer,
		synthesizer: synthesizer,
		extractor:   explain.NewConclusionExtractor(),
		tasks:       tasks,
		config:      config,
		logger:      logger.With("component", "synthesis"),
	}
}

type candidate struct {
	keywords trend.KeywordSet
	growth   float64
}

// Synthesize selects the keyword sets growing faster than GrowthThreshold,
// collects the conclusions of their cached explanations and asks the text
// generator for a combined synthesis. It never blocks on background
// generation and always returns a result.
func (o *Orchestrator) Synthesize(ctx context.Context, keywordSets []trend.KeywordSet, growth trend.GrowthMetrics) *Result {
	selected := selectCandidates(keywordSets, growth)
	if len(selected) == 0 {
		metrics.RecordSynthesis("no_candidates")
		return &Result{Success: true, Message: MessageNoQualifyingSets}
	}

	entries, missing := o.collect(ctx, selected)

	result := &Result{Success: true}
	for _, c := range missing {
		result.Pending = append(result.Pending, KeywordGrowth{Keywords: c.keywords, Growth: c.growth})
		id := o.tasks.Go("synthesis", c.keywords, GenerationTask(o.series, o.explainer, c.keywords, false))
		result.Tasks = append(result.Tasks, id)
	}
	if len(missing) > 0 {
		o.logger.Info("scheduled background generation", "count", len(missing))
	}

	if len(entries) == 0 {
		metrics.RecordSynthesis("no_conclusions")
		result.Message = MessageNoConclusions
		return result
	}

	result.Count = len(entries)
	result.Conclusions = entries
	for _, e := range entries {
		result.KeywordsAnalyzed = append(result.KeywordsAnalyzed, KeywordGrowth{Keywords: e.Keywords, Growth: e.Growth})
	}

	text, err := o.synthesizer.Generate(ctx, BuildPrompt(entries))
	if err != nil {
		metrics.RecordSynthesis("error")
		o.logger.Error("error generating superconclusion", "error", err)
		result.Success = false
		result.Message = MessageSynthesisFailed
		result.Error = err.Error()
		return result
	}
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.RecordSynthesis("empty")
		result.Success = false
		result.Message = MessageSynthesisFailed
		result.Error = "synthesis returned no text"
		return result
	}

	metrics.RecordSynthesis("success")
	result.Superconclusion = &text
	return result
}

// selectCandidates keeps sets whose growth metric exists and exceeds the threshold
func selectCandidates(keywordSets []trend.KeywordSet, growth trend.GrowthMetrics) []candidate {
	byKey := make(map[string]float64, len(growth))
	for k, v := range growth {
		byKey[trend.CanonicalGrowthKey(k)] = v
	}

	var selected []candidate
	for _, set := range keywordSets {
		if len(set.Canonical()) == 0 {
			continue
		}
		g, ok := byKey[set.Key()]
		if !ok || g <= GrowthThreshold {
			continue
		}
		selected = append(selected, candidate{keywords: set, growth: g})
	}
	return selected
}

// collect reads the cached explanations concurrently and splits the
// candidates into conclusion entries and missing sets, keeping input order
func (o *Orchestrator) collect(ctx context.Context, selected []candidate) ([]trend.ConclusionEntry, []candidate) {
	conclusions := make([]string, len(selected))
	found := make([]bool, len(selected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.LookupConcurrency)
	for i, c := range selected {
		i, c := i, c
		g.Go(func() error {
			conclusions[i], found[i] = o.conclusionFor(gctx, c.keywords)
			return nil
		})
	}
	_ = g.Wait()

	var entries []trend.ConclusionEntry
	var missing []candidate
	for i, c := range selected {
		if !found[i] {
			missing = append(missing, c)
			continue
		}
		entries = append(entries, trend.ConclusionEntry{
			Keywords:   c.keywords,
			Conclusion: conclusions[i],
			Growth:     c.growth,
		})
	}
	return entries, missing
}

// conclusionFor extracts the conclusion of a cached explanation. Any cache
// failure counts as a missing explanation.
func (o *Orchestrator) conclusionFor(ctx context.Context, keywords trend.KeywordSet) (string, bool) {
	key := trend.ExplanationKey(keywords)
	raw, ok, err := o.cache.Get(ctx, key.String())
	if err != nil {
		metrics.RecordCacheLookup(key.Namespace, "error")
		o.logger.Warn("cache read failed, treating set as missing", "keywords", keywords.String(), "error", err)
		return "", false
	}
	if !ok {
		metrics.RecordCacheLookup(key.Namespace, "miss")
		return "", false
	}
	metrics.RecordCacheLookup(key.Namespace, "hit")

	var doc trend.CachedExplanation
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		o.logger.Warn("malformed cached explanation", "key", key.String(), "error", err)
		return "", false
	}
	if strings.TrimSpace(doc.Explanation) == "" {
		return "", false
	}

	conclusion, strategy, ok := o.extractor.ExtractWithStrategy(doc.Explanation)
	metrics.RecordConclusion(strategy, ok)
	if !ok {
		o.logger.Info("cached explanation has no usable conclusion", "keywords", keywords.String())
	}
	return conclusion, ok
}
