package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trendlens/internal/adapter/llm"
	"trendlens/internal/adapter/storage"
	"trendlens/internal/config"
	"trendlens/internal/domain/trend"
	"trendlens/internal/service/explain"
	"trendlens/internal/service/refresh"
	"trendlens/internal/service/synthesis"
)

// newRootCmd builds the operator CLI
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "trendctl",
		Short:         "Inspect and maintain the trend explanation cache",
		SilenceUsage: true,
	}

	root.AddCommand(newKeyCmd(), newConclusionCmd(), newRegenerateAllCmd())
	return root
}

func newKeyCmd() *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "key <keyword>...",
		Short: "Print the cache key of a keyword set",
		Long: `Print the cache key of a keyword set.

Keywords are canonicalized first, so order and case do not matter:

  trendctl key Oil gas
  trendctl key --namespace peak-summaries oil`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keywords := trend.NewKeywordSet(args)
			if len(keywords) == 0 {
				return trend.ErrNoKeywords
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), trend.NewCacheKey(namespace, keywords).String())
			return err
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", trend.NamespaceExplanation, "cache namespace")
	return cmd
}

func newConclusionCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "conclusion [keyword]...",
		Short: "Extract the conclusion of a cached explanation",
		Long: `Extract the conclusion section of the explanation cached for a keyword set.

With --file the explanation is read from a file instead ("-" reads stdin).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := explanationText(cmd, file, args)
			if err != nil {
				return err
			}

			conclusion, strategy, ok := explain.NewConclusionExtractor().ExtractWithStrategy(text)
			if !ok {
				return fmt.Errorf("no conclusion found")
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "matched %s heading\n", strategy)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), conclusion)
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read the explanation from a file")
	return cmd
}

func explanationText(cmd *cobra.Command, file string, args []string) (string, error) {
	switch {
	case file == "-":
		raw, err := io.ReadAll(cmd.InOrStdin())
		return string(raw), err
	case file != "":
		raw, err := os.ReadFile(file)
		return string(raw), err
	}

	keywords := trend.NewKeywordSet(args)
	if len(keywords) == 0 {
		return "", trend.ErrNoKeywords
	}

	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	client, err := storage.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		return "", err
	}
	defer client.Close()

	key := trend.ExplanationKey(keywords)
	raw, ok, err := storage.NewRedisCache(client).Get(cmd.Context(), key.String())
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("no cached explanation at %s", key)
	}

	var doc trend.CachedExplanation
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return "", fmt.Errorf("error decoding %s: %w", key, err)
	}
	return doc.Explanation, nil
}

func newRegenerateAllCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "regenerate-all",
		Short: "Regenerate the explanation of every configured keyword set",
		Long: `Regenerate the explanation of every keyword set listed under gui-keywords.

Generations run in this process; the command waits for them up to --wait.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))

			client, err := storage.NewRedisClient(cfg.Redis.URL)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx := cmd.Context()
			generator, err := llm.NewClient(ctx, cfg.LLM)
			if err != nil {
				return err
			}
			defer llm.Close(generator)

			cache := storage.NewRedisCache(client)
			series := storage.NewSeriesStore(client, logger)
			explainer := explain.NewService(cache, generator, nil, nil, logger, explain.ServiceConfig{
				ExplanationTTL: cfg.Explain.ExplanationTTL,
				PeakSummaryTTL: cfg.Explain.PeakSummaryTTL,
			})
			tasks := synthesis.NewTaskGroup(logger, synthesis.TaskGroupConfig{
				Timeout:       cfg.Synthesis.TaskTimeout,
				RatePerSecond: cfg.Synthesis.TaskRate,
				Burst:         cfg.Synthesis.TaskBurst,
			})

			result, err := refresh.NewRefresher(storage.NewKeywordStore(client), series, explainer, tasks, logger).RegenerateAll(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)

			waitCtx, cancel := context.WithTimeout(ctx, wait)
			defer cancel()
			if err := tasks.Shutdown(waitCtx); err != nil {
				return fmt.Errorf("regeneration did not finish within %s: %w", wait, err)
			}

			return reportTasks(cmd.OutOrStdout(), tasks.Tasks())
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 10*time.Minute, "how long to wait for generations")
	return cmd
}

// reportTasks prints one line per task and fails when any task failed
func reportTasks(w io.Writer, tasks []synthesis.Task) error {
	var failed []string
	for _, t := range tasks {
		fmt.Fprintf(w, "%-9s %s", t.Status, strings.Join(t.Keywords, ", "))
		if t.Error != "" {
			fmt.Fprintf(w, " (%s)", t.Error)
			failed = append(failed, strings.Join(t.Keywords, ", "))
		}
		fmt.Fprintln(w)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d regenerations failed", len(failed), len(tasks))
	}
	return nil
}
