package synthesis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"trendlens/internal/domain/trend"
	"trendlens/internal/metrics"
)

// TaskStatus is the lifecycle state of a background task
type TaskStatus string

// Task states
const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// TaskFunc is the body of a background task
type TaskFunc func(ctx context.Context) error

// Task describes one background task
type Task struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Keywords   []string   `json:"keywords"`
	Status     TaskStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// TaskGroupConfig contains configuration for background tasks
type TaskGroupConfig struct {
	// Timeout bounds a single task
	Timeout time.Duration
	// RatePerSecond paces task starts; zero disables pacing
	RatePerSecond float64
	Burst         int
	// MaxTracked caps the finished tasks kept for status lookups
	MaxTracked int
}

// DefaultTaskGroupConfig returns the standard task settings
func DefaultTaskGroupConfig() TaskGroupConfig {
	return TaskGroupConfig{
		Timeout:       3 * time.Minute,
		RatePerSecond: 2,
		Burst:         4,
		MaxTracked:    256,
	}
}

// TaskGroup runs independently supervised background tasks. Tasks run on a
// context detached from the request that launched them; a failing or
// panicking task never affects its siblings.
type TaskGroup struct {
	ctx     context.Context
	cancel  context.CancelFunc
	limiter *rate.Limiter
	config  TaskGroupConfig
	logger  *slog.Logger
	wg      sync.WaitGroup

	mu    sync.RWMutex
	tasks map[string]*Task
	order []string
}

// NewTaskGroup creates a new task group
func NewTaskGroup(logger *slog.Logger, config TaskGroupConfig) *TaskGroup {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultTaskGroupConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxTracked <= 0 {
		config.MaxTracked = defaults.MaxTracked
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RatePerSecond > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RatePerSecond), burst)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &TaskGroup{
		ctx:     ctx,
		cancel:  cancel,
		limiter: limiter,
		config:  config,
		logger:  logger.With("component", "tasks"),
		tasks:   make(map[string]*Task),
	}
}

// Go launches fn in the background and returns the task ID immediately
func (g *TaskGroup) Go(kind string, keywords trend.KeywordSet, fn TaskFunc) string {
	task := &Task{
		ID:        uuid.New().String(),
		Kind:      kind,
		Keywords:  append([]string(nil), keywords...),
		Status:    TaskPending,
		CreatedAt: time.Now().UTC(),
	}
	g.track(task)

	g.wg.Add(1)
	metrics.RecordTaskStarted()
	go g.run(task.ID, kind, fn)

	return task.ID
}

// Task returns a snapshot of a tracked task
func (g *TaskGroup) Task(id string) (Task, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// Tasks returns snapshots of all tracked tasks in launch order
func (g *TaskGroup) Tasks() []Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Task, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.tasks[id])
	}
	return out
}

// Wait blocks until every launched task finished or ctx is done
func (g *TaskGroup) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown waits for running tasks until ctx is done, then cancels the rest
func (g *TaskGroup) Shutdown(ctx context.Context) error {
	err := g.Wait(ctx)
	g.cancel()
	if err != nil {
		return fmt.Errorf("error waiting for background tasks: %w", err)
	}
	return nil
}

func (g *TaskGroup) run(id, kind string, fn TaskFunc) {
	defer g.wg.Done()

	g.setStatus(id, TaskRunning, nil)
	err := g.execute(fn)
	g.setStatus(id, statusFor(err), err)

	if err != nil {
		metrics.RecordTaskFinished(kind, string(TaskFailed))
		g.logger.Error("background task failed", "task", id, "kind", kind, "error", err)
		return
	}
	metrics.RecordTaskFinished(kind, string(TaskSucceeded))
	g.logger.Info("background task finished", "task", id, "kind", kind)
}

func (g *TaskGroup) execute(fn TaskFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()

	if err := g.limiter.Wait(g.ctx); err != nil {
		return fmt.Errorf("error waiting for task slot: %w", err)
	}

	ctx, cancel := context.WithTimeout(g.ctx, g.config.Timeout)
	defer cancel()

	return fn(ctx)
}

func (g *TaskGroup) track(task *Task) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tasks[task.ID] = task
	g.order = append(g.order, task.ID)

	// forget the oldest finished tasks beyond the cap
	for len(g.order) > g.config.MaxTracked {
		oldest := g.tasks[g.order[0]]
		if oldest.Status == TaskPending || oldest.Status == TaskRunning {
			break
		}
		delete(g.tasks, g.order[0])
		g.order = g.order[1:]
	}
}

func (g *TaskGroup) setStatus(id string, status TaskStatus, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.tasks[id]
	if !ok {
		return
	}
	t.Status = status
	if err != nil {
		t.Error = err.Error()
	}
	if status == TaskSucceeded || status == TaskFailed {
		now := time.Now().UTC()
		t.FinishedAt = &now
	}
}

func statusFor(err error) TaskStatus {
	if err != nil {
		return TaskFailed
	}
	return TaskSucceeded
}

// ErrNoSeries is returned by a generation task when the source has no data
var ErrNoSeries = errors.New("no series data for keyword set")

// GenerationTask fetches the keyword set's series and asks the explanation
// generator for its explanation
func GenerationTask(
	series trend.SeriesSource,
	explainer trend.ExplanationGenerator,
	keywords trend.KeywordSet,
	regenerate bool,
) TaskFunc {
	return func(ctx context.Context) error {
		timeline, err := series.FetchSeries(ctx, keywords)
		if err != nil {
			return fmt.Errorf("error fetching series for %s: %w", keywords, err)
		}
		if len(timeline) == 0 {
			return fmt.Errorf("%w: %s", ErrNoSeries, keywords)
		}

		result, err := explainer.Explain(ctx, trend.ExplainRequest{
			Keywords:   keywords,
			Timeline:   timeline,
			Regenerate: regenerate,
		})
		if err != nil {
			return fmt.Errorf("error explaining %s: %w", keywords, err)
		}
		if result == nil || !result.Success {
			return fmt.Errorf("explanation for %s was not successful", keywords)
		}
		return nil
	}
}
