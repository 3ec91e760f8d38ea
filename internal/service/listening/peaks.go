package listening

import (
	"strings"

	"trendlens/internal/domain/trend"
)

// Peak detection defaults used for explanation annotations
const (
	DefaultPeakMinValue = 15
	DefaultPeakWindow   = 3
)

// DetectPeaks finds strict local maxima of keyword k over the dated points.
// A point is a peak when its value is at least minValue and greater than every
// other value within window positions on either side. Edge points qualify.
func DetectPeaks(points []trend.NormalizedPoint, k int, keyword string, minValue float64, window int) []trend.Peak {
	type sample struct {
		date  string
		value float64
		index int
	}

	series := make([]sample, 0, len(points))
	for _, p := range points {
		date, ok := ResolveDate(p)
		if !ok {
			continue
		}
		series = append(series, sample{date: DateOnly(date), value: valueAt(p, k), index: p.Index})
	}

	peaks := []trend.Peak{}
	if len(series) < 2 {
		return peaks
	}

	for i, s := range series {
		if s.value < minValue {
			continue
		}
		lo, hi := max(0, i-window), min(len(series)-1, i+window)
		isPeak := true
		for j := lo; j <= hi; j++ {
			if j != i && series[j].value >= s.value {
				isPeak = false
				break
			}
		}
		if isPeak {
			peaks = append(peaks, trend.Peak{
				Date:    s.date,
				Value:   s.value,
				Keyword: keyword,
				Index:   s.index,
			})
		}
	}
	return peaks
}

// DateOnly strips a time-of-day suffix from an ISO timestamp
func DateOnly(date string) string {
	if i := strings.IndexByte(date, 'T'); i > 0 {
		return date[:i]
	}
	return date
}
