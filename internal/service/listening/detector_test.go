package listening

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendlens/internal/domain/trend"
)

func datedSeries(values ...float64) []trend.NormalizedPoint {
	points := make([]trend.NormalizedPoint, len(values))
	for i, v := range values {
		points[i] = trend.NormalizedPoint{
			Index:         i,
			FormattedTime: fmt.Sprintf("2024-01-%02d", i+1),
			Values:        []float64{v},
		}
	}
	return points
}

func indexes(points []trend.SignificantPoint) []int {
	out := make([]int, len(points))
	for i, p := range points {
		out[i] = p.Index
	}
	return out
}

func TestDetectSignificantPoints(t *testing.T) {
	t.Run("spike in the middle", func(t *testing.T) {
		got := DetectSignificantPoints(datedSeries(10, 10, 100, 10, 10))

		// both neighbours of the spike move by more than 20% too
		assert.Equal(t, []int{0, 1, 2, 3, 4}, indexes(got))
		assert.Equal(t, 100.0, got[2].AverageValue)
	})

	t.Run("flat series keeps only the boundaries", func(t *testing.T) {
		got := DetectSignificantPoints(datedSeries(5, 5, 5, 5, 5, 5))
		assert.Equal(t, []int{0, 5}, indexes(got))
	})

	t.Run("small changes are ignored", func(t *testing.T) {
		got := DetectSignificantPoints(datedSeries(50, 52, 55, 57, 60))
		assert.Equal(t, []int{0, 4}, indexes(got))
	})

	t.Run("neighbour average floored at one", func(t *testing.T) {
		// |0.5-0|/1 = 0.5 against the zero neighbour
		got := DetectSignificantPoints(datedSeries(0, 0, 0.5, 0.5, 0.5))
		assert.Equal(t, []int{0, 1, 2, 4}, indexes(got))
	})

	t.Run("undated points are dropped before comparing neighbours", func(t *testing.T) {
		points := datedSeries(10, 100, 10, 10)
		points[1].FormattedTime = ""

		got := DetectSignificantPoints(points)

		assert.Equal(t, []int{0, 3}, indexes(got))
	})

	t.Run("fewer than three dated points are returned as is", func(t *testing.T) {
		assert.Empty(t, DetectSignificantPoints(nil))
		assert.Equal(t, []int{0}, indexes(DetectSignificantPoints(datedSeries(3))))
		assert.Equal(t, []int{0, 1}, indexes(DetectSignificantPoints(datedSeries(3, 3))))
	})

	t.Run("multi keyword averages", func(t *testing.T) {
		points := []trend.NormalizedPoint{
			{Index: 0, FormattedTime: "a", Values: []float64{10, 30}},
			{Index: 1, FormattedTime: "b", Values: []float64{10, 30}},
			{Index: 2, FormattedTime: "c", Values: []float64{20, 20}},
		}

		got := DetectSignificantPoints(points)

		require.Len(t, got, 2)
		assert.Equal(t, 20.0, got[0].AverageValue)
		assert.Equal(t, "c", got[1].FormattedTime)
	})
}

func TestDetectSignificantPoints_SubsequenceWithBoundaries(t *testing.T) {
	series := [][]float64{
		{1, 2, 3, 4, 5, 6, 7, 8},
		{90, 3, 40, 40, 41, 0, 0, 12},
		{0, 0, 0, 100},
		{7, 7, 8, 7, 70, 7},
	}

	for i, values := range series {
		t.Run(fmt.Sprintf("series %d", i), func(t *testing.T) {
			points := datedSeries(values...)
			points[1].FormattedTime = ""

			got := DetectSignificantPoints(points)

			require.NotEmpty(t, got)
			assert.Equal(t, 0, got[0].Index)
			assert.Equal(t, len(values)-1, got[len(got)-1].Index)
			for j := 1; j < len(got); j++ {
				assert.Greater(t, got[j].Index, got[j-1].Index)
				assert.NotEqual(t, 1, got[j].Index)
			}
		})
	}
}

func TestDetectPeaks(t *testing.T) {
	t.Run("strict local maxima above the minimum", func(t *testing.T) {
		points := datedSeries(5, 20, 10, 10, 10, 10, 40, 30, 16)

		peaks := DetectPeaks(points, 0, "ai", DefaultPeakMinValue, DefaultPeakWindow)

		require.Len(t, peaks, 2)
		assert.Equal(t, trend.Peak{Date: "2024-01-02", Value: 20, Keyword: "ai", Index: 1}, peaks[0])
		assert.Equal(t, "2024-01-07", peaks[1].Date)
	})

	t.Run("edges qualify", func(t *testing.T) {
		peaks := DetectPeaks(datedSeries(50, 10, 10, 10, 10, 60), 0, "ai", 15, 3)

		require.Len(t, peaks, 2)
		assert.Equal(t, 0, peaks[0].Index)
		assert.Equal(t, 5, peaks[1].Index)
	})

	t.Run("plateaus are not peaks", func(t *testing.T) {
		assert.Empty(t, DetectPeaks(datedSeries(10, 30, 30, 10), 0, "ai", 15, 3))
	})

	t.Run("too short", func(t *testing.T) {
		assert.Empty(t, DetectPeaks(datedSeries(90), 0, "ai", 15, 3))
	})

	t.Run("iso timestamps are reduced to dates", func(t *testing.T) {
		points := datedSeries(1, 90, 1)
		points[1].FormattedTime = "2024-03-05T00:00:00Z"

		peaks := DetectPeaks(points, 0, "ai", 15, 3)

		require.Len(t, peaks, 1)
		assert.Equal(t, "2024-03-05", peaks[0].Date)
	})
}
