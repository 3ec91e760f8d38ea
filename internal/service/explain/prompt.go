package explain

import (
	"encoding/json"
	"fmt"
	"strings"

	"trendlens/internal/domain/trend"
	"trendlens/internal/service/listening"
)

const explanationPrompt = `You are an investigative analyst specialising in geopolitical search trends.
The user is exploring search interest for the keywords: %s.

Date range: %s to %s
Total data points: %d
Keyword summaries (totals, averages, maximum values, beginning and ending values):
%s

Significant inflection points (average across all keywords at each step):
%s

Complete keyword timeline in chronological order. Each entry lists the value for every keyword:
%s

Search for recent news about %s and for events inside the date range that explain the spikes and drops above, then write:
1. A concise overview of the long-term trajectory for each keyword.

2. PEAK EXPLANATIONS. Only for peaks where the search results name a specific event, add a section in exactly this format:

   ### PEAK: YYYY-MM-DD
   EVENT: One sentence (at most 12 words) naming the event behind the peak
   SOURCE: Outlet and headline of the article the event comes from

   Skip a peak entirely when no specific event was found. Never write "no specific event", "search volume" or "rise in interest".

3. Historical context and developments from the search results.

4. A short conclusion referencing the Search Results.`

// timelineEntry is one dated row of the prompt's timeline listing
type timelineEntry map[string]any

// BuildPrompt renders the explanation request for a normalized timeline
func BuildPrompt(keywords trend.KeywordSet, points []trend.NormalizedPoint, analyzer *listening.Analyzer) (string, error) {
	agg := analyzer.Aggregate(points, len(keywords))
	significant := listening.DetectSignificantPoints(points)

	entries := make([]timelineEntry, 0, len(points))
	for _, p := range points {
		date, ok := listening.ResolveDate(p)
		if !ok {
			continue
		}
		entry := timelineEntry{"index": p.Index, "date": date}
		for k, kw := range keywords {
			entry[kw] = valueAt(p, k)
		}
		if p.IsPartial {
			entry["isPartial"] = true
		}
		entries = append(entries, entry)
	}

	startDate, endDate := "unknown", "unknown"
	if len(entries) > 0 {
		startDate = entries[0]["date"].(string)
		endDate = entries[len(entries)-1]["date"].(string)
	}

	significantJSON, err := json.MarshalIndent(significant, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error encoding significant points: %w", err)
	}
	timelineJSON, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error encoding timeline: %w", err)
	}

	return fmt.Sprintf(explanationPrompt,
		strings.Join(keywords, " vs "),
		startDate, endDate,
		len(points),
		analyzer.Summary(keywords, agg),
		significantJSON,
		timelineJSON,
		strings.Join(keywords, ", "),
	), nil
}

func valueAt(p trend.NormalizedPoint, k int) float64 {
	if k < len(p.Values) {
		return p.Values[k]
	}
	return 0
}
