package synthesis

import (
	"fmt"
	"strings"

	"trendlens/internal/domain/trend"
)

const synthesisPrompt = `You are a geopolitical analyst synthesizing insights from multiple search trend analyses.

Below are %d trend analyses for keywords showing significant growth (>%.0f%%). Each analysis includes the keyword(s), growth percentage, and a conclusion about what the data reveals.

%s

Synthesize these analyses into a single "State of the World" superconclusion that:
1. Identifies overarching themes and patterns across these high-growth trends
2. Explains what the trends collectively reveal about current geopolitical, social or cultural shifts
3. Highlights connections between different trends
4. Suggests where these patterns point for upcoming events

Write 3-5 concise paragraphs focused on the bigger picture rather than restating each conclusion.`

// BuildPrompt renders the combined synthesis request
func BuildPrompt(entries []trend.ConclusionEntry) string {
	sections := make([]string, 0, len(entries))
	for i, e := range entries {
		sections = append(sections, fmt.Sprintf("## %d. %s (Growth: +%.1f%%)\n\n%s",
			i+1, e.Keywords.String(), e.Growth, e.Conclusion))
	}
	return fmt.Sprintf(synthesisPrompt, len(entries), GrowthThreshold, strings.Join(sections, "\n\n"))
}
