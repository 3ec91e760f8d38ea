// internal/service/listening/detector.go

package listening

import (
	"math"

	"trendlens/internal/domain/trend"
)

// SignificantChangeThreshold is the relative neighbour change that promotes
// an interior point
const SignificantChangeThreshold = 0.2

// DetectSignificantPoints selects the first and last dated points plus every
// interior dated point whose average moves more than 20% against either
// neighbour. Neighbours are taken from the dated sequence, so undated points
// never influence the comparison. Output order follows input order.
func DetectSignificantPoints(points []trend.NormalizedPoint) []trend.SignificantPoint {
	candidates := make([]trend.SignificantPoint, 0, len(points))
	for _, p := range points {
		date, ok := ResolveDate(p)
		if !ok {
			continue
		}
		candidates = append(candidates, trend.SignificantPoint{
			Index:         p.Index,
			FormattedTime: date,
			AverageValue:  mean(p.Values),
			Values:        append([]float64(nil), p.Values...),
		})
	}

	if len(candidates) < 3 {
		return candidates
	}

	significant := make([]trend.SignificantPoint, 0, len(candidates))
	significant = append(significant, candidates[0])
	for i := 1; i < len(candidates)-1; i++ {
		avg := candidates[i].AverageValue
		if relativeChange(avg, candidates[i-1].AverageValue) > SignificantChangeThreshold ||
			relativeChange(avg, candidates[i+1].AverageValue) > SignificantChangeThreshold {
			significant = append(significant, candidates[i])
		}
	}
	return append(significant, candidates[len(candidates)-1])
}

func relativeChange(value, neighbour float64) float64 {
	return math.Abs(value-neighbour) / math.Max(neighbour, 1)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
