package synthesis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendlens/internal/domain/trend"
)

func TestTaskGroup(t *testing.T) {
	t.Run("tasks are isolated from each other", func(t *testing.T) {
		g := NewTaskGroup(testLogger(), TaskGroupConfig{Timeout: time.Second})
		var ran atomic.Int32

		ok := g.Go("test", trend.KeywordSet{"a"}, func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
		failed := g.Go("test", trend.KeywordSet{"b"}, func(ctx context.Context) error {
			ran.Add(1)
			return errors.New("boom")
		})
		panicked := g.Go("test", trend.KeywordSet{"c"}, func(ctx context.Context) error {
			ran.Add(1)
			panic("unexpected")
		})

		require.NoError(t, g.Wait(context.Background()))
		assert.Equal(t, int32(3), ran.Load())

		task, _ := g.Task(ok)
		assert.Equal(t, TaskSucceeded, task.Status)
		assert.NotNil(t, task.FinishedAt)

		task, _ = g.Task(failed)
		assert.Equal(t, TaskFailed, task.Status)
		assert.Equal(t, "boom", task.Error)

		task, _ = g.Task(panicked)
		assert.Equal(t, TaskFailed, task.Status)
		assert.Contains(t, task.Error, "panicked")

		tasks := g.Tasks()
		require.Len(t, tasks, 3)
		assert.Equal(t, []string{"a"}, tasks[0].Keywords)
	})

	t.Run("tasks are bounded by the timeout", func(t *testing.T) {
		g := NewTaskGroup(testLogger(), TaskGroupConfig{Timeout: 20 * time.Millisecond})

		id := g.Go("test", nil, func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})

		require.NoError(t, g.Wait(context.Background()))
		task, _ := g.Task(id)
		assert.Equal(t, TaskFailed, task.Status)
		assert.Contains(t, task.Error, context.DeadlineExceeded.Error())
	})

	t.Run("wait honours its context", func(t *testing.T) {
		g := NewTaskGroup(testLogger(), TaskGroupConfig{Timeout: time.Minute})
		release := make(chan struct{})
		g.Go("test", nil, func(ctx context.Context) error {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil
		})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, g.Wait(ctx), context.DeadlineExceeded)

		close(release)
		require.NoError(t, g.Wait(context.Background()))
	})

	t.Run("shutdown cancels unfinished tasks", func(t *testing.T) {
		g := NewTaskGroup(testLogger(), TaskGroupConfig{Timeout: time.Minute})
		id := g.Go("test", nil, func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.Error(t, g.Shutdown(ctx))

		require.NoError(t, g.Wait(context.Background()))
		task, _ := g.Task(id)
		assert.Equal(t, TaskFailed, task.Status)
	})

	t.Run("finished tasks beyond the cap are forgotten", func(t *testing.T) {
		g := NewTaskGroup(testLogger(), TaskGroupConfig{Timeout: time.Second, MaxTracked: 2})

		first := g.Go("test", nil, func(ctx context.Context) error { return nil })
		require.NoError(t, g.Wait(context.Background()))
		g.Go("test", nil, func(ctx context.Context) error { return nil })
		require.NoError(t, g.Wait(context.Background()))
		g.Go("test", nil, func(ctx context.Context) error { return nil })
		require.NoError(t, g.Wait(context.Background()))

		_, ok := g.Task(first)
		assert.False(t, ok)
		assert.Len(t, g.Tasks(), 2)
	})
}

type emptyExplainer struct{}

func (emptyExplainer) Explain(ctx context.Context, req trend.ExplainRequest) (*trend.ExplainResult, error) {
	return nil, nil
}

func TestGenerationTask(t *testing.T) {
	ctx := context.Background()

	t.Run("passes the regenerate flag", func(t *testing.T) {
		explainer := &mockExplainer{}
		err := GenerationTask(&mockSeries{}, explainer, trend.KeywordSet{"a"}, true)(ctx)

		require.NoError(t, err)
		calls := explainer.calls()
		require.Len(t, calls, 1)
		assert.True(t, calls[0].Regenerate)
	})

	t.Run("explainer errors are wrapped", func(t *testing.T) {
		sentinel := errors.New("generation failed")
		err := GenerationTask(&mockSeries{}, &mockExplainer{Err: sentinel}, trend.KeywordSet{"a"}, false)(ctx)
		assert.ErrorIs(t, err, sentinel)
	})

	t.Run("missing result is a failure", func(t *testing.T) {
		task := GenerationTask(&mockSeries{}, emptyExplainer{}, trend.KeywordSet{"a"}, false)

		var err error
		assert.NotPanics(t, func() { err = task(ctx) })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "was not successful")
	})
}
