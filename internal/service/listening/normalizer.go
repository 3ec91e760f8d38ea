package listening

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"trendlens/internal/domain/trend"
)

// Normalizer converts raw provider samples into fixed-width numeric points
type Normalizer struct {
}

// NewNormalizer creates a new normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize coerces every sample into a NormalizedPoint with one value per
// keyword. Output has the same length and order as the input; no sample is
// dropped here.
func (n *Normalizer) Normalize(samples []trend.RawSample, keywordCount int) []trend.NormalizedPoint {
	points := make([]trend.NormalizedPoint, 0, len(samples))
	for i, s := range samples {
		p := trend.NormalizedPoint{
			Index:     i,
			Time:      normalizeTimeLabel(s.Time),
			Values:    coerceValues(s.Value, keywordCount),
			IsPartial: partialFlag(s),
		}
		if s.FormattedTime != nil {
			p.FormattedTime = *s.FormattedTime
		}
		if s.FormattedAxisTime != nil {
			p.FormattedAxisTime = *s.FormattedAxisTime
		}
		if len(s.HasData) > 0 {
			p.HasData = append([]bool(nil), s.HasData...)
		}
		points = append(points, p)
	}
	return points
}

// ResolveDate returns the first non-empty of formattedTime, formattedAxisTime
// and time. ok is false when the point cannot be placed on a labeled timeline.
func ResolveDate(p trend.NormalizedPoint) (date string, ok bool) {
	if s := strings.TrimSpace(p.FormattedTime); s != "" {
		return s, true
	}
	if s := strings.TrimSpace(p.FormattedAxisTime); s != "" {
		return s, true
	}
	return timeLabel(p.Time)
}

// partialFlag implements "first non-null wins" across the two field names
func partialFlag(s trend.RawSample) bool {
	if s.Partial != nil {
		return *s.Partial
	}
	if s.IsPartial != nil {
		return *s.IsPartial
	}
	return false
}

func normalizeTimeLabel(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return t
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		if f, ok := numericValue(v); ok {
			return f
		}
		return nil
	}
}

func timeLabel(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return "", false
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	}
	return "", false
}

// coerceValues turns a scalar or list value into exactly keywordCount numbers.
// Missing entries become zero and surplus entries are dropped.
func coerceValues(v any, keywordCount int) []float64 {
	var raw []float64
	switch list := v.(type) {
	case nil:
	case []any:
		raw = make([]float64, len(list))
		for i, e := range list {
			raw[i] = ParseNumber(e)
		}
	case []float64:
		raw = make([]float64, len(list))
		for i, f := range list {
			raw[i] = ParseNumber(f)
		}
	case []int:
		raw = make([]float64, len(list))
		for i, n := range list {
			raw[i] = float64(n)
		}
	case []string:
		raw = make([]float64, len(list))
		for i, s := range list {
			raw[i] = ParseNumber(s)
		}
	default:
		raw = []float64{ParseNumber(v)}
	}

	if keywordCount <= 0 {
		if raw == nil {
			return []float64{}
		}
		return raw
	}

	values := make([]float64, keywordCount)
	copy(values, raw)
	return values
}

// ParseNumber converts a decoded JSON value to a finite float. Anything that
// is not a number, numeric string or boolean yields 0.
func ParseNumber(v any) float64 {
	switch t := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return finite(f)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return finite(f)
	case bool:
		if t {
			return 1
		}
		return 0
	}
	if f, ok := numericValue(v); ok {
		return finite(f)
	}
	return 0
}

func numericValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	}
	return 0, false
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
