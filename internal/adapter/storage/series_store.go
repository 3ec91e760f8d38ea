package storage

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/redis/go-redis/v9"

	"trendlens/internal/domain/trend"
	"trendlens/internal/metrics"
)

// SeriesKeyPrefix prefixes uploaded trend series
const SeriesKeyPrefix = "cache-trends:Trends."

// ErrSeriesNotFound is returned when no uploaded series matches a keyword
var ErrSeriesNotFound = errors.New("series not found")

var base64Content = regexp.MustCompile(`^[A-Za-z0-9+/=\s]+$`)

// seriesRow is one dated value of a single keyword
type seriesRow struct {
	date    string
	value   float64
	partial bool
}

// uploadedSeries is the JSON envelope written by the upload tool
type uploadedSeries struct {
	Content      *string          `json:"content"`
	Metadata     json.RawMessage  `json:"metadata,omitempty"`
	Data         []map[string]any `json:"data,omitempty"`
	Values       []map[string]any `json:"values,omitempty"`
	Timeline     []map[string]any `json:"timeline,omitempty"`
	TimelineData []map[string]any `json:"timelineData,omitempty"`
	Results      []map[string]any `json:"results,omitempty"`
}

func (u uploadedSeries) rows() []map[string]any {
	for _, candidate := range [][]map[string]any{u.Data, u.Values, u.Timeline, u.TimelineData, u.Results} {
		if len(candidate) > 0 {
			return candidate
		}
	}
	return nil
}

// SeriesStore reads uploaded per-keyword series from Redis and merges them
// into raw timelines
type SeriesStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewSeriesStore creates a new series store
func NewSeriesStore(client *redis.Client, logger *slog.Logger) *SeriesStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SeriesStore{
		client: client,
		logger: logger.With("component", "series"),
	}
}

// FetchSeries returns the merged timeline of the keyword set. Dates keep the
// order in which they were first seen; a keyword without a value on a date
// contributes zero.
func (s *SeriesStore) FetchSeries(ctx context.Context, keywords trend.KeywordSet) ([]trend.RawSample, error) {
	if len(keywords) == 0 {
		return nil, trend.ErrNoKeywords
	}

	var dates []string
	byDate := make(map[string][]any)
	partial := make(map[string]bool)
	found := 0

	for k, kw := range keywords {
		rows, err := s.keywordSeries(ctx, kw)
		if errors.Is(err, ErrSeriesNotFound) {
			s.logger.Warn("no uploaded series for keyword", "keyword", kw)
			continue
		}
		if err != nil {
			return nil, err
		}
		found++

		for _, r := range rows {
			values, ok := byDate[r.date]
			if !ok {
				values = make([]any, len(keywords))
				for i := range values {
					values[i] = 0.0
				}
				byDate[r.date] = values
				dates = append(dates, r.date)
			}
			values[k] = r.value
			partial[r.date] = partial[r.date] || r.partial
		}
	}

	if found == 0 {
		metrics.RecordCacheLookup("cache-trends", "miss")
		return nil, fmt.Errorf("%w: %s", ErrSeriesNotFound, keywords)
	}
	metrics.RecordCacheLookup("cache-trends", "hit")

	samples := make([]trend.RawSample, 0, len(dates))
	for _, date := range dates {
		d := date
		sample := trend.RawSample{
			Time:              d,
			FormattedTime:     &d,
			FormattedAxisTime: &d,
			Value:             byDate[d],
		}
		if partial[d] {
			isPartial := true
			sample.IsPartial = &isPartial
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

// keywordSeries tries every key spelling of the keyword in order
func (s *SeriesStore) keywordSeries(ctx context.Context, keyword string) ([]seriesRow, error) {
	for _, variant := range KeyVariants(keyword) {
		key := SeriesKeyPrefix + variant
		raw, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", key, err)
		}
		if strings.TrimSpace(raw) == "" {
			continue
		}

		rows, err := parseSeries(raw)
		if err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", key, err)
		}
		return rows, nil
	}
	return nil, ErrSeriesNotFound
}

// KeyVariants lists the spellings uploads may have used for a keyword:
// original, lower, upper and title case, then the same without spaces
func KeyVariants(keyword string) []string {
	keyword = strings.TrimSpace(keyword)
	noSpaces := strings.Join(strings.FieldsFunc(keyword, unicode.IsSpace), "")

	var variants []string
	seen := make(map[string]bool)
	for _, base := range []string{keyword, noSpaces} {
		for _, v := range []string{base, strings.ToLower(base), strings.ToUpper(base), titleCase(base)} {
			if v != "" && !seen[v] {
				seen[v] = true
				variants = append(variants, v)
			}
		}
	}
	return variants
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// parseSeries accepts the upload envelope with text or base64 content, a
// bare text table, or a JSON list of {date, value} rows
func parseSeries(raw string) ([]seriesRow, error) {
	trimmed := strings.TrimSpace(raw)

	if strings.HasPrefix(trimmed, "[") {
		var rows []map[string]any
		if err := json.Unmarshal([]byte(trimmed), &rows); err != nil {
			return nil, fmt.Errorf("error decoding series rows: %w", err)
		}
		return jsonRows(rows), nil
	}

	if strings.HasPrefix(trimmed, "{") {
		var envelope uploadedSeries
		if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
			return nil, fmt.Errorf("error decoding series envelope: %w", err)
		}
		if envelope.Content != nil {
			return parseTable(decodeContent(*envelope.Content)), nil
		}
		return jsonRows(envelope.rows()), nil
	}

	return parseTable(decodeContent(trimmed)), nil
}

func decodeContent(content string) string {
	if !base64Content.MatchString(content) {
		return content
	}
	compact := strings.Join(strings.Fields(content), "")
	decoded, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return content
	}
	return string(decoded)
}

// parseTable reads whitespace separated "date value [partial]" rows after
// two header lines
func parseTable(content string) []seriesRow {
	var rows []seriesRow
	scanner := bufio.NewScanner(strings.NewReader(strings.TrimSpace(content)))
	line := 0
	for scanner.Scan() {
		line++
		if line <= 2 {
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			value = 0
		}
		row := seriesRow{date: fields[0], value: value}
		if len(fields) > 2 {
			row.partial = strings.EqualFold(fields[2], "true")
		}
		rows = append(rows, row)
	}
	return rows
}

// jsonRows reads {date, value} objects; the value may also sit under any
// other non-date field
func jsonRows(items []map[string]any) []seriesRow {
	var rows []seriesRow
	for _, item := range items {
		date, _ := item["date"].(string)
		if date == "" {
			continue
		}
		v, ok := item["value"]
		if !ok {
			v, ok = fallbackValue(item)
		}
		if !ok {
			continue
		}
		row := seriesRow{date: date, value: numberOf(v)}
		if p, ok := item["isPartial"].(bool); ok {
			row.partial = p
		}
		rows = append(rows, row)
	}
	return rows
}

// fallbackValue picks the value of a row keyed by something other than
// "value": the first numeric field in key order, else the first field
func fallbackValue(item map[string]any) (any, bool) {
	keys := make([]string, 0, len(item))
	for k := range item {
		if k != "date" && k != "isPartial" && k != "partial" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, false
	}
	sort.Strings(keys)

	for _, k := range keys {
		if isNumeric(item[k]) {
			return item[k], true
		}
	}
	return item[keys[0]], true
}

func isNumeric(v any) bool {
	switch t := v.(type) {
	case float64:
		return true
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return err == nil
	}
	return false
}

func numberOf(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err == nil {
			return f
		}
	}
	return 0
}
