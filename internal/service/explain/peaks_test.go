package explain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendlens/internal/domain/trend"
)

// weekly builds a weekly single-keyword series starting 2024-01-01
func weekly(values ...float64) []trend.NormalizedPoint {
	points := make([]trend.NormalizedPoint, len(values))
	for i, v := range values {
		day := 1 + 7*i
		month := 1
		for day > 31 {
			day -= 31
			month++
		}
		points[i] = trend.NormalizedPoint{
			Index:         i,
			FormattedTime: fmt.Sprintf("2024-%02d-%02d", month, day),
			Values:        []float64{v},
		}
	}
	return points
}

func TestExtractPeakSummaries(t *testing.T) {
	// peaks at 2024-01-08 (index 1) and 2024-02-05 (index 5)
	points := weekly(10, 80, 20, 10, 10, 60, 10, 10)

	t.Run("exact and nearby sections", func(t *testing.T) {
		explanation := "1. Overview\n\n" +
			"### PEAK: 2024-01-08\n" +
			"EVENT: The senator announced a presidential campaign in Iowa.\n" +
			"SOURCE: Example Times - \"Senator enters race\"\n\n" +
			"### PEAK: 2024-02-02\n" +
			"EVENT: Court ruling struck down the new voting law\n" +
			"SOURCE: Example Post\n"

		summaries := ExtractPeakSummaries(explanation, points, "senator")

		require.Len(t, summaries, 2)
		assert.Equal(t, "2024-01-08", summaries[0].Date)
		assert.Equal(t, "senator announced a presidential campaign in Iowa", summaries[0].Summary)
		require.NotNil(t, summaries[0].Value)
		assert.Equal(t, 80.0, *summaries[0].Value)
		assert.Equal(t, "senator", summaries[0].Keyword)

		assert.Equal(t, "2024-02-05", summaries[1].Date)
		assert.Equal(t, "Court ruling struck down the new voting law", summaries[1].Summary)
		assert.Equal(t, 60.0, *summaries[1].Value)
	})

	t.Run("generic events are rejected", func(t *testing.T) {
		explanation := "### PEAK: 2024-01-08\nEVENT: No specific event found for this spike\n" +
			"### PEAK: 2024-02-05\nEVENT: Increase in search interest around the holidays\n"

		assert.Empty(t, ExtractPeakSummaries(explanation, points, "x"))
	})

	t.Run("events need an event word or a source", func(t *testing.T) {
		explanation := "### PEAK: 2024-01-08\nEVENT: Something happened with cats\n"
		assert.Empty(t, ExtractPeakSummaries(explanation, points, "x"))

		withSource := explanation + "SOURCE: Cat Weekly\n"
		summaries := ExtractPeakSummaries(withSource, points, "x")
		require.Len(t, summaries, 1)
		assert.Equal(t, "Something happened with cats", summaries[0].Summary)
	})

	t.Run("long events are capped", func(t *testing.T) {
		explanation := "### PEAK: 2024-01-08\nEVENT: A one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen election.\n"

		summaries := ExtractPeakSummaries(explanation, points, "x")

		require.Len(t, summaries, 1)
		assert.Equal(t, "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen", summaries[0].Summary)
	})

	t.Run("too few words", func(t *testing.T) {
		explanation := "### PEAK: 2024-01-08\nEVENT: Election day\nSOURCE: x\n"
		assert.Empty(t, ExtractPeakSummaries(explanation, points, "x"))
	})

	t.Run("sections far from any data are skipped", func(t *testing.T) {
		explanation := "### PEAK: 2023-06-01\nEVENT: Government announced a sweeping new policy\n"
		assert.Empty(t, ExtractPeakSummaries(explanation, points, "x"))
	})

	t.Run("empty explanation", func(t *testing.T) {
		assert.Empty(t, ExtractPeakSummaries("", points, "x"))
	})
}
