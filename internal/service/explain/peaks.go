package explain

import (
	"math"
	"regexp"
	"strings"
	"time"

	"trendlens/internal/domain/trend"
	"trendlens/internal/service/listening"
)

const (
	// MaxSummaryWords caps a peak summary
	MaxSummaryWords = 15

	minSummaryWords = 3
	peakMatchWindow = 14 * 24 * time.Hour
)

var (
	peakSectionPattern = regexp.MustCompile(`(?i)### PEAK:\s*(\d{4}-\d{2}-\d{2})\s*\n\s*EVENT:\s*([^\n]+)`)
	sourceLinePattern  = regexp.MustCompile(`(?i)SOURCE:\s*[^\n]+`)
	leadingArticle     = regexp.MustCompile(`(?i)^(?:the|a|an)\s+`)
	trailingPunct      = regexp.MustCompile(`\s*[.,;:]$`)
	peakPrefixPattern  = regexp.MustCompile(`(?i)^peak\s+(?:on|at)\s+`)

	eventWordPattern = regexp.MustCompile(`(?i)election|campaign|debate|announcement|policy|protest|crisis|incident|scandal|vote|referendum|rally|march|strike|legislation|bill|law|court|ruling|verdict|attack|conflict|war|treaty|summit|convention|primary|candidate|resignation|appointment|speech|interview|endorsement|controversy|win|won|victory|defeat|defied|odds|directive|security|violence|classif|label|predictor|belief|political|trump|biden|president|government|administration|federal|state|national|domestic|international|terrorism|extremism|radical|ideology|doctrine|order|executive|decision|action|measure|initiative|program|plan|strategy|response|reaction|statement|declaration|proclamation|guidance|instruction|mandate|requirement|regulation|rule|standard|criteria|classification|category|designation|identification|assessment|evaluation|report|finding|conclusion|recommendation|suggestion|proposal|capitalist|allegations|misconduct|sexual|harassment|conceded|concede|race|mayoral|mayor|launched|accused|faced|death|deaths|undercounting|nursing|home|covid|coronavirus`)
)

// genericEventPhrases mark EVENT lines that describe the chart instead of an event
var genericEventPhrases = []string{
	"no specific event",
	"no event found",
	"search volume",
	"general election news",
	"not found",
	"unclear",
	"unknown event",
	"peak in",
	"peak on",
	"increase in",
	"spike in",
	"rise in",
	"google trends",
	"search interest",
	"here's",
	"analysis",
	"keyword",
}

// forbiddenSummaryTerms reject a finished summary
var forbiddenSummaryTerms = []string{
	"google trends",
	"search interest",
	"search volume",
	"peak",
	"keyword",
	"analysis",
	"here's",
}

type peakSection struct {
	date   string
	event  string
	offset int
}

// ExtractPeakSummaries annotates the local maxima of a single keyword's
// timeline with the EVENT lines of the explanation's "### PEAK:" sections.
// Sections whose date was not detected as a peak are added when a data point
// lies within two weeks of them.
func ExtractPeakSummaries(explanation string, points []trend.NormalizedPoint, keyword string) []trend.PeakSummary {
	summaries := []trend.PeakSummary{}
	if strings.TrimSpace(explanation) == "" {
		return summaries
	}

	sections := parsePeakSections(explanation)
	peaks := listening.DetectPeaks(points, 0, keyword, listening.DefaultPeakMinValue, listening.DefaultPeakWindow)
	seen := make(map[string]bool)

	for _, p := range peaks {
		summary, ok := summarizePeak(explanation, sections, p.Date)
		if !ok {
			continue
		}
		value := p.Value
		summaries = append(summaries, trend.PeakSummary{Date: p.Date, Summary: summary, Value: &value, Keyword: keyword})
		seen[p.Date] = true
	}

	for _, s := range sections {
		if seen[s.date] {
			continue
		}
		date, value, ok := nearestPeakOrPoint(s.date, peaks, points)
		if !ok || seen[date] {
			continue
		}
		summary, ok := summarizePeak(explanation, sections, s.date)
		if !ok {
			continue
		}
		summaries = append(summaries, trend.PeakSummary{Date: date, Summary: summary, Value: &value, Keyword: keyword})
		seen[date] = true
		seen[s.date] = true
	}
	return summaries
}

func parsePeakSections(explanation string) []peakSection {
	matches := peakSectionPattern.FindAllStringSubmatchIndex(explanation, -1)
	sections := make([]peakSection, 0, len(matches))
	for _, m := range matches {
		sections = append(sections, peakSection{
			date:   explanation[m[2]:m[3]],
			event:  strings.TrimSpace(explanation[m[4]:m[5]]),
			offset: m[0],
		})
	}
	return sections
}

// summarizePeak picks the section for date (exact, else closest within two
// weeks) and reduces its EVENT line to a short summary
func summarizePeak(explanation string, sections []peakSection, date string) (string, bool) {
	target := listening.DateOnly(date)
	targetDay, targetOK := parseDay(target)

	var best *peakSection
	bestDiff := math.MaxFloat64
	for i := range sections {
		s := &sections[i]
		if s.date == target || s.date == date {
			best = s
			break
		}
		if !targetOK {
			continue
		}
		day, ok := parseDay(s.date)
		if !ok {
			continue
		}
		diff := math.Abs(float64(targetDay.Sub(day)))
		if diff <= float64(peakMatchWindow) && diff < bestDiff {
			best, bestDiff = s, diff
		}
	}
	if best == nil {
		return "", false
	}

	lower := strings.ToLower(best.event)
	if containsAny(lower, genericEventPhrases) || strings.HasPrefix(lower, "peak ") || peakPrefixPattern.MatchString(lower) {
		return "", false
	}

	window := explanation[max(0, best.offset-50):min(len(explanation), best.offset+500)]
	if !eventWordPattern.MatchString(best.event) && !sourceLinePattern.MatchString(window) {
		return "", false
	}

	cleaned := strings.TrimSpace(trailingPunct.ReplaceAllString(leadingArticle.ReplaceAllString(best.event, ""), ""))
	words := strings.Fields(cleaned)
	if len(words) < minSummaryWords {
		return "", false
	}
	if len(words) > MaxSummaryWords {
		words = words[:MaxSummaryWords]
	}

	summary := strings.Join(words, " ")
	if containsAny(strings.ToLower(summary), forbiddenSummaryTerms) {
		return "", false
	}
	return summary, true
}

// nearestPeakOrPoint resolves a section date to the closest detected peak
// within two weeks, falling back to the closest dated point
func nearestPeakOrPoint(date string, peaks []trend.Peak, points []trend.NormalizedPoint) (string, float64, bool) {
	for _, p := range peaks {
		if p.Date == date {
			return p.Date, p.Value, true
		}
	}

	target, ok := parseDay(date)
	if !ok {
		return "", 0, false
	}

	bestDate, bestValue, bestDiff := "", 0.0, time.Duration(math.MaxInt64)
	for _, p := range peaks {
		if day, ok := parseDay(p.Date); ok {
			if diff := absDuration(day.Sub(target)); diff < bestDiff && diff < peakMatchWindow {
				bestDate, bestValue, bestDiff = p.Date, p.Value, diff
			}
		}
	}
	if bestDate != "" {
		return bestDate, bestValue, true
	}

	for _, p := range points {
		raw, ok := listening.ResolveDate(p)
		if !ok {
			continue
		}
		d := listening.DateOnly(raw)
		if day, ok := parseDay(d); ok {
			if diff := absDuration(day.Sub(target)); diff < bestDiff {
				bestDate, bestDiff = d, diff
				bestValue = 0
				if len(p.Values) > 0 {
					bestValue = p.Values[0]
				}
			}
		}
	}
	if bestDate == "" || bestDiff >= peakMatchWindow {
		return "", 0, false
	}
	return bestDate, bestValue, true
}

var dayLayouts = []string{"2006-01-02", "Jan 2, 2006", "January 2, 2006", "2006/01/02"}

func parseDay(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
