package refresh

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendlens/internal/domain/trend"
	"trendlens/internal/service/synthesis"
)

type staticKeywords struct {
	sets []trend.KeywordSet
	err  error
}

func (s *staticKeywords) KeywordSets(ctx context.Context) ([]trend.KeywordSet, error) {
	return s.sets, s.err
}

type fakeSeries struct{}

func (fakeSeries) FetchSeries(ctx context.Context, keywords trend.KeywordSet) ([]trend.RawSample, error) {
	date := "2024-01-01"
	return []trend.RawSample{{FormattedTime: &date, Value: []any{1.0}}}, nil
}

type recordingExplainer struct {
	mu       sync.Mutex
	requests []trend.ExplainRequest
}

func (e *recordingExplainer) Explain(ctx context.Context, req trend.ExplainRequest) (*trend.ExplainResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, req)
	return &trend.ExplainResult{Success: true}, nil
}

func (e *recordingExplainer) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.requests)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRefresher_RegenerateAll(t *testing.T) {
	ctx := context.Background()

	t.Run("one forced regeneration per set", func(t *testing.T) {
		explainer := &recordingExplainer{}
		tasks := synthesis.NewTaskGroup(testLogger(), synthesis.TaskGroupConfig{Timeout: time.Second})
		keywords := &staticKeywords{sets: []trend.KeywordSet{{"oil", "gas"}, {"energy"}}}
		r := NewRefresher(keywords, fakeSeries{}, explainer, tasks, testLogger())

		result, err := r.RegenerateAll(ctx)
		require.NoError(t, err)
		require.NoError(t, tasks.Wait(ctx))

		assert.True(t, result.Success)
		assert.Equal(t, 2, result.Count)
		assert.Equal(t, []string{"oil, gas", "energy"}, result.KeywordSets)
		assert.Len(t, result.Tasks, 2)
		assert.Equal(t, "Started regeneration for 2 keyword sets", result.Message)

		require.Equal(t, 2, explainer.count())
		for _, req := range explainer.requests {
			assert.True(t, req.Regenerate)
		}
		for _, id := range result.Tasks {
			task, ok := tasks.Task(id)
			require.True(t, ok)
			assert.Equal(t, TaskKind, task.Kind)
			assert.Equal(t, synthesis.TaskSucceeded, task.Status)
		}
	})

	t.Run("no keyword sets", func(t *testing.T) {
		tasks := synthesis.NewTaskGroup(testLogger(), synthesis.TaskGroupConfig{})
		r := NewRefresher(&staticKeywords{}, fakeSeries{}, &recordingExplainer{}, tasks, testLogger())

		result, err := r.RegenerateAll(ctx)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, 0, result.Count)
		assert.Equal(t, "No keyword sets found", result.Message)
	})

	t.Run("keyword source failure", func(t *testing.T) {
		tasks := synthesis.NewTaskGroup(testLogger(), synthesis.TaskGroupConfig{})
		r := NewRefresher(&staticKeywords{err: errors.New("redis down")}, fakeSeries{}, &recordingExplainer{}, tasks, testLogger())

		_, err := r.RegenerateAll(ctx)
		assert.ErrorContains(t, err, "redis down")
	})
}

func TestRefresher_Schedule(t *testing.T) {
	tasks := synthesis.NewTaskGroup(testLogger(), synthesis.TaskGroupConfig{})
	r := NewRefresher(&staticKeywords{}, fakeSeries{}, &recordingExplainer{}, tasks, testLogger())

	assert.Error(t, r.Start("not a schedule"))

	require.NoError(t, r.Start("0 3 * * *"))
	assert.Error(t, r.Start("0 3 * * *"))
	require.NoError(t, r.Stop(context.Background()))
	require.NoError(t, r.Stop(context.Background()))
}
