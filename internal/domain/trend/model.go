package trend

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// RawSample is one timeline entry as received from a trend provider.
// Every field is optional; Time and Value hold decoded JSON values
// (string, float64, bool, []any or nil).
type RawSample struct {
	Time              any     `json:"time,omitempty"`
	FormattedTime     *string `json:"formattedTime,omitempty"`
	FormattedAxisTime *string `json:"formattedAxisTime,omitempty"`
	Value             any     `json:"value,omitempty"`
	HasData           []bool  `json:"hasData,omitempty"`
	Partial           *bool   `json:"partial,omitempty"`
	IsPartial         *bool   `json:"isPartial,omitempty"`
}

// UnmarshalJSON decodes a loosely typed sample. Date labels may be strings
// or numbers, partial and hasData flags follow truthiness, and fields of any
// other shape are dropped so one bad sample never fails the timeline.
func (s *RawSample) UnmarshalJSON(data []byte) error {
	var raw struct {
		Time              any `json:"time"`
		FormattedTime     any `json:"formattedTime"`
		FormattedAxisTime any `json:"formattedAxisTime"`
		Value             any `json:"value"`
		HasData           any `json:"hasData"`
		Partial           any `json:"partial"`
		IsPartial         any `json:"isPartial"`
	}
	// a non-object sample decodes as an empty one
	if err := json.Unmarshal(data, &raw); err != nil {
		*s = RawSample{}
		return nil
	}

	*s = RawSample{
		Time:              raw.Time,
		FormattedTime:     looseLabel(raw.FormattedTime),
		FormattedAxisTime: looseLabel(raw.FormattedAxisTime),
		Value:             raw.Value,
		HasData:           looseFlags(raw.HasData),
		Partial:           looseFlag(raw.Partial),
		IsPartial:         looseFlag(raw.IsPartial),
	}
	return nil
}

func looseLabel(v any) *string {
	switch t := v.(type) {
	case string:
		return &t
	case float64:
		label := strconv.FormatFloat(t, 'f', -1, 64)
		return &label
	}
	return nil
}

// looseFlag keeps null as unset so the first non-null flag can win
func looseFlag(v any) *bool {
	if v == nil {
		return nil
	}
	b := truthy(v)
	return &b
}

func looseFlags(v any) []bool {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	flags := make([]bool, len(list))
	for i, e := range list {
		flags[i] = truthy(e)
	}
	return flags
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		t = strings.TrimSpace(t)
		if b, err := strconv.ParseBool(t); err == nil {
			return b
		}
		return t != ""
	}
	return true
}

// NormalizedPoint is a RawSample coerced to one numeric value per keyword
type NormalizedPoint struct {
	Index             int       `json:"index"`
	Time              any       `json:"time"`
	FormattedTime     string    `json:"formattedTime,omitempty"`
	FormattedAxisTime string    `json:"formattedAxisTime,omitempty"`
	Values            []float64 `json:"values"`
	HasData           []bool    `json:"hasData,omitempty"`
	IsPartial         bool      `json:"isPartial"`
}

// SignificantPoint is a NormalizedPoint selected for annotation
type SignificantPoint struct {
	Index         int       `json:"index"`
	FormattedTime string    `json:"formattedTime"`
	AverageValue  float64   `json:"averageValue"`
	Values        []float64 `json:"values"`
}

// Peak is a local maximum of a single keyword's series
type Peak struct {
	Date    string  `json:"date"`
	Value   float64 `json:"value"`
	Keyword string  `json:"keyword"`
	Index   int     `json:"index"`
}

// Aggregates holds per-keyword scalars computed over a normalized timeline.
// Every slice is indexed by keyword position.
type Aggregates struct {
	Points      int       `json:"points"`
	Totals      []float64 `json:"totals"`
	Averages    []float64 `json:"averages"`
	Maxima      []float64 `json:"maxima"`
	FirstValues []float64 `json:"firstValues"`
	LastValues  []float64 `json:"lastValues"`
}

// PeakSummary is a short event annotation for a date on the timeline
type PeakSummary struct {
	Date    string   `json:"date"`
	Summary string   `json:"summary"`
	Value   *float64 `json:"value,omitempty"`
	Keyword string   `json:"keyword,omitempty"`
}

// CachedExplanation is the document stored under an explain-trend key
type CachedExplanation struct {
	Explanation   string         `json:"explanation"`
	PeakSummaries []PeakSummary  `json:"peakSummaries,omitempty"`
	GeneratedAt   time.Time      `json:"generatedAt"`
	Keywords      []string       `json:"keywords,omitempty"`
	DataPoints    int            `json:"dataPoints,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// ConclusionEntry is one input record of a cross-series synthesis
type ConclusionEntry struct {
	Keywords   KeywordSet `json:"keywords"`
	Conclusion string     `json:"conclusion"`
	Growth     float64    `json:"growth"`
}

// GrowthMetrics maps a keyword set's canonical form to its growth percentage
type GrowthMetrics map[string]float64

// ExplainRequest asks the explanation generator for a keyword set's explanation
type ExplainRequest struct {
	Keywords   KeywordSet
	Timeline   []RawSample
	Regenerate bool
}

// ExplainResult is the outcome of an explanation request
type ExplainResult struct {
	Success       bool          `json:"success"`
	Explanation   string        `json:"explanation"`
	PeakSummaries []PeakSummary `json:"peakSummaries"`
	Keywords      []string      `json:"keywords"`
	DataPoints    int           `json:"dataPoints"`
	GeneratedAt   time.Time     `json:"generatedAt"`
	Cached        bool          `json:"cached"`
	CacheKey      string        `json:"cacheKey"`
}

// GeneratedEvent is published whenever a fresh explanation has been written
type GeneratedEvent struct {
	ID          string    `json:"id"`
	CacheKey    string    `json:"cacheKey"`
	Keywords    []string  `json:"keywords"`
	GeneratedAt time.Time `json:"generatedAt"`
	Regenerated bool      `json:"regenerated"`
}

// ArchivedExplanation is a historical explanation row
type ArchivedExplanation struct {
	ID            string        `json:"id"`
	CacheKey      string        `json:"cacheKey"`
	Keywords      []string      `json:"keywords"`
	Explanation   string        `json:"explanation"`
	PeakSummaries []PeakSummary `json:"peakSummaries"`
	GeneratedAt   time.Time     `json:"generatedAt"`
}
