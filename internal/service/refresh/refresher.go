package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	rcron "github.com/robfig/cron/v3"

	"trendlens/internal/domain/trend"
	"trendlens/internal/service/synthesis"
)

// TaskKind labels regenerate-all tasks
const TaskKind = "regenerate"

// TaskRunner launches detached background tasks
type TaskRunner interface {
	Go(kind string, keywords trend.KeywordSet, fn synthesis.TaskFunc) string
}

// Result reports a regenerate-all run
type Result struct {
	Success     bool     `json:"success"`
	Message     string   `json:"message"`
	Count       int      `json:"count"`
	KeywordSets []string `json:"keywordSets"`
	Tasks       []string `json:"tasks"`
}

// Refresher regenerates the explanation of every configured keyword set
type Refresher struct {
	keywords  trend.KeywordSetSource
	series    trend.SeriesSource
	explainer trend.ExplanationGenerator
	tasks     TaskRunner
	logger    *slog.Logger

	mu   sync.Mutex
	cron *rcron.Cron
}

// NewRefresher creates a new refresher
func NewRefresher(
	keywords trend.KeywordSetSource,
	series trend.SeriesSource,
	explainer trend.ExplanationGenerator,
	tasks TaskRunner,
	logger *slog.Logger,
) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		keywords:  keywords,
		series:    series,
		explainer: explainer,
		tasks:     tasks,
		logger:    logger.With("component", "refresh"),
	}
}

// RegenerateAll starts one forced regeneration per keyword set and returns
// without waiting for them
func (r *Refresher) RegenerateAll(ctx context.Context) (*Result, error) {
	sets, err := r.keywords.KeywordSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading keyword sets: %w", err)
	}

	result := &Result{
		Success:     true,
		KeywordSets: []string{},
		Tasks:       []string{},
	}
	if len(sets) == 0 {
		result.Message = "No keyword sets found"
		return result, nil
	}

	for _, set := range sets {
		id := r.tasks.Go(TaskKind, set, synthesis.GenerationTask(r.series, r.explainer, set, true))
		result.Tasks = append(result.Tasks, id)
		result.KeywordSets = append(result.KeywordSets, set.String())
	}
	result.Count = len(sets)
	result.Message = fmt.Sprintf("Started regeneration for %d keyword sets", len(sets))

	r.logger.Info("started regeneration", "count", len(sets))
	return result, nil
}

// Start runs RegenerateAll on a standard five-field cron schedule
func (r *Refresher) Start(schedule string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron != nil {
		return fmt.Errorf("refresh schedule already running")
	}

	c := rcron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := r.RegenerateAll(context.Background()); err != nil {
			r.logger.Error("scheduled regeneration failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}

	c.Start()
	r.cron = c
	r.logger.Info("refresh schedule started", "schedule", schedule)
	return nil
}

// Stop halts the schedule and waits for a running trigger to return
func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()

	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
