package listening

import (
	"fmt"
	"strings"

	"trendlens/internal/domain/trend"
)

// Analyzer computes per-keyword aggregates over normalized timelines
type Analyzer struct {
}

// NewAnalyzer creates a new analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Aggregate computes total, maximum, first, last and average value for every
// keyword index. Undated points still count. Maxima are floored at zero.
func (a *Analyzer) Aggregate(points []trend.NormalizedPoint, keywordCount int) trend.Aggregates {
	agg := trend.Aggregates{
		Points:      len(points),
		Totals:      make([]float64, keywordCount),
		Averages:    make([]float64, keywordCount),
		Maxima:      make([]float64, keywordCount),
		FirstValues: make([]float64, keywordCount),
		LastValues:  make([]float64, keywordCount),
	}
	if len(points) == 0 {
		return agg
	}

	first, last := points[0], points[len(points)-1]
	for k := 0; k < keywordCount; k++ {
		for _, p := range points {
			v := valueAt(p, k)
			agg.Totals[k] += v
			if v > agg.Maxima[k] {
				agg.Maxima[k] = v
			}
		}
		agg.FirstValues[k] = valueAt(first, k)
		agg.LastValues[k] = valueAt(last, k)
		agg.Averages[k] = agg.Totals[k] / float64(len(points))
	}
	return agg
}

// Summary renders one "kw: total=…, avg=…" line per keyword
func (a *Analyzer) Summary(keywords trend.KeywordSet, agg trend.Aggregates) string {
	lines := make([]string, 0, len(keywords))
	for k, kw := range keywords {
		if k >= len(agg.Totals) {
			break
		}
		lines = append(lines, fmt.Sprintf("%s: total=%.2f, avg=%.2f, max=%.2f, start=%.2f, end=%.2f",
			kw, agg.Totals[k], agg.Averages[k], agg.Maxima[k], agg.FirstValues[k], agg.LastValues[k]))
	}
	return strings.Join(lines, "\n")
}

// Growth returns the percentage change from first to last value of keyword k.
// A zero starting value yields 0.
func (a *Analyzer) Growth(agg trend.Aggregates, k int) float64 {
	if k < 0 || k >= len(agg.FirstValues) || agg.FirstValues[k] == 0 {
		return 0
	}
	return (agg.LastValues[k] - agg.FirstValues[k]) / agg.FirstValues[k] * 100
}

func valueAt(p trend.NormalizedPoint, k int) float64 {
	if k < len(p.Values) {
		return p.Values[k]
	}
	return 0
}
