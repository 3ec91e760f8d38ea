package listening

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendlens/internal/domain/trend"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer()

	t.Run("list values are coerced and padded", func(t *testing.T) {
		points := n.Normalize([]trend.RawSample{
			{Value: []any{"12", 3.5, "n/a"}},
			{Value: []any{7.0}},
			{Value: []any{1.0, 2.0, 3.0, 4.0}},
		}, 3)

		require.Len(t, points, 3)
		assert.Equal(t, []float64{12, 3.5, 0}, points[0].Values)
		assert.Equal(t, []float64{7, 0, 0}, points[1].Values)
		assert.Equal(t, []float64{1, 2, 3}, points[2].Values)
	})

	t.Run("scalar values fill the first slot", func(t *testing.T) {
		points := n.Normalize([]trend.RawSample{{Value: " 42 "}, {Value: 5.0}, {Value: nil}}, 2)

		assert.Equal(t, []float64{42, 0}, points[0].Values)
		assert.Equal(t, []float64{5, 0}, points[1].Values)
		assert.Equal(t, []float64{0, 0}, points[2].Values)
	})

	t.Run("index and order are preserved", func(t *testing.T) {
		points := n.Normalize([]trend.RawSample{
			{FormattedTime: strPtr("Jan 1")},
			{},
			{FormattedAxisTime: strPtr("Jan 3")},
		}, 1)

		require.Len(t, points, 3)
		for i, p := range points {
			assert.Equal(t, i, p.Index)
		}
		assert.Equal(t, "Jan 1", points[0].FormattedTime)
		assert.Equal(t, "Jan 3", points[2].FormattedAxisTime)
	})

	t.Run("first non-null partial flag wins", func(t *testing.T) {
		points := n.Normalize([]trend.RawSample{
			{Partial: boolPtr(true)},
			{IsPartial: boolPtr(true)},
			{Partial: boolPtr(false), IsPartial: boolPtr(true)},
			{},
		}, 1)

		assert.True(t, points[0].IsPartial)
		assert.True(t, points[1].IsPartial)
		assert.False(t, points[2].IsPartial)
		assert.False(t, points[3].IsPartial)
	})

	t.Run("decoded provider JSON", func(t *testing.T) {
		var samples []trend.RawSample
		raw := `[{"time":"1700000000","formattedTime":"Nov 14, 2023","value":[55,"<1"],"hasData":[true,false]},
		         {"time":1700604800,"value":[60,2],"isPartial":true}]`
		require.NoError(t, json.Unmarshal([]byte(raw), &samples))

		points := n.Normalize(samples, 2)

		require.Len(t, points, 2)
		assert.Equal(t, []float64{55, 0}, points[0].Values)
		assert.Equal(t, []bool{true, false}, points[0].HasData)
		assert.Equal(t, float64(1700604800), points[1].Time)
		assert.True(t, points[1].IsPartial)
	})

	t.Run("mixed field types decode without failing the timeline", func(t *testing.T) {
		var samples []trend.RawSample
		raw := `[{"formattedTime":1700000000,"value":[10],"isPartial":"true"},
		         {"formattedTime":{"bad":1},"formattedAxisTime":"Nov 21","value":[20],"partial":"false","isPartial":true},
		         {"formattedTime":"Nov 28","value":30,"partial":null,"isPartial":1,"hasData":"yes"},
		         {"formattedTime":"Dec 5","value":[40],"partial":0,"hasData":[1,null,"true"]},
		         7]`
		require.NoError(t, json.Unmarshal([]byte(raw), &samples))

		points := n.Normalize(samples, 1)

		require.Len(t, points, 5)
		assert.Equal(t, "1700000000", points[0].FormattedTime)
		assert.True(t, points[0].IsPartial)

		date, ok := ResolveDate(points[1])
		require.True(t, ok)
		assert.Equal(t, "Nov 21", date)
		assert.False(t, points[1].IsPartial)

		assert.True(t, points[2].IsPartial)
		assert.Nil(t, points[2].HasData)

		assert.False(t, points[3].IsPartial)
		assert.Equal(t, []bool{true, false, true}, points[3].HasData)

		assert.Equal(t, []float64{0}, points[4].Values)
		_, ok = ResolveDate(points[4])
		assert.False(t, ok)
	})
}

func TestResolveDate(t *testing.T) {
	tests := []struct {
		name  string
		point trend.NormalizedPoint
		want  string
		ok    bool
	}{
		{name: "formatted time first", point: trend.NormalizedPoint{FormattedTime: "A", FormattedAxisTime: "B", Time: "C"}, want: "A", ok: true},
		{name: "axis time second", point: trend.NormalizedPoint{FormattedAxisTime: "B", Time: "C"}, want: "B", ok: true},
		{name: "raw string time", point: trend.NormalizedPoint{Time: "2024-01-01"}, want: "2024-01-01", ok: true},
		{name: "numeric epoch", point: trend.NormalizedPoint{Time: float64(1700000000)}, want: "1700000000", ok: true},
		{name: "nothing", point: trend.NormalizedPoint{}, ok: false},
		{name: "blank strings", point: trend.NormalizedPoint{FormattedTime: " ", Time: ""}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveDate(tt.point)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, 3.25, ParseNumber("3.25"))
	assert.Equal(t, 0.0, ParseNumber("abc"))
	assert.Equal(t, 0.0, ParseNumber("NaN"))
	assert.Equal(t, 0.0, ParseNumber("+Inf"))
	assert.Equal(t, 1.0, ParseNumber(true))
	assert.Equal(t, 7.0, ParseNumber(7))
	assert.Equal(t, 0.0, ParseNumber(map[string]any{}))
	assert.Equal(t, 0.0, ParseNumber(nil))
}

func TestAnalyzer_Aggregate(t *testing.T) {
	a := NewAnalyzer()
	points := NewNormalizer().Normalize([]trend.RawSample{
		{Value: []any{10.0, 1.0}},
		{Value: []any{30.0, 0.0}},
		{Value: []any{20.0, 5.0}},
	}, 2)

	agg := a.Aggregate(points, 2)

	assert.Equal(t, 3, agg.Points)
	assert.Equal(t, []float64{60, 6}, agg.Totals)
	assert.Equal(t, []float64{20, 2}, agg.Averages)
	assert.Equal(t, []float64{30, 5}, agg.Maxima)
	assert.Equal(t, []float64{10, 1}, agg.FirstValues)
	assert.Equal(t, []float64{20, 5}, agg.LastValues)
	assert.InDelta(t, 100.0, a.Growth(agg, 0), 1e-9)

	t.Run("empty timeline averages to zero", func(t *testing.T) {
		empty := a.Aggregate(nil, 2)
		assert.Equal(t, []float64{0, 0}, empty.Averages)
		assert.Equal(t, 0, empty.Points)
	})

	t.Run("summary lines", func(t *testing.T) {
		summary := a.Summary(trend.KeywordSet{"x", "y"}, agg)
		assert.Equal(t,
			"x: total=60.00, avg=20.00, max=30.00, start=10.00, end=20.00\n"+
				"y: total=6.00, avg=2.00, max=5.00, start=1.00, end=5.00",
			summary)
	})
}
