package explain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MinConclusionLength is the shortest cleaned conclusion still considered usable
	MinConclusionLength = 30

	// minSpanBeforeEndMarker guards against end markers directly after the heading
	minSpanBeforeEndMarker = 50
)

// publications seen in citation lists of generated explanations
const publications = `YouTube|WION|EBSCO|Wikipedia|Britannica|Research Starters|The Far Right News|Zocalo Public Square|Holistic News`

// conclusionStrategy locates the start of a conclusion section
type conclusionStrategy struct {
	name             string
	pattern          *regexp.Regexp
	skipLeadingSpace bool
}

// start returns the offset right after the marker, or -1
func (s conclusionStrategy) start(text string) int {
	loc := s.pattern.FindStringIndex(text)
	if loc == nil {
		return -1
	}
	offset := loc[1]
	if s.skipLeadingSpace {
		offset += len(text[offset:]) - len(strings.TrimLeft(text[offset:], " \t\r\n"))
	}
	return offset
}

type textRewrite struct {
	pattern *regexp.Regexp
	replace string
}

var defaultStrategies = []conclusionStrategy{
	{
		name:             "bold-numbered",
		pattern:          regexp.MustCompile(`(?i)\*\*4\.\s+(?:A\s+short\s+)?Conclusion:\*\*`),
		skipLeadingSpace: true,
	},
	{
		name:    "numbered",
		pattern: regexp.MustCompile(`(?i)(?:^|\n)\s*4\.\s+(?:A\s+short\s+)?Conclusion[:\s]*\n`),
	},
	{
		name:    "heading",
		pattern: regexp.MustCompile(`(?i)##+\s+Conclusion\s*\n`),
	},
	{
		name:    "bare",
		pattern: regexp.MustCompile(`(?i)(?:^|\n)\s*Conclusion[:\s]*\n`),
	},
}

var defaultEndMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\n\s*(?:##\s*)?SUMMARIES\s*\n`),
	regexp.MustCompile(`(?i)\n\s*(?:Sources?[:\s]*\n|##+\s*Sources?\s*\n|5\.\s*Sources?\s*\n|\*\*Sources?\*\*\s*\n)`),
	regexp.MustCompile(`(?i)\n\s*1\.\s+[^\n]*(?:[-–]\s*(?:` + publications + `)|\([^)]*(?:` + publications + `)[^)]*\))`),
}

var cleanupRewrites = []textRewrite{
	{regexp.MustCompile(`\*\*`), ""},
	{regexp.MustCompile(`(?m)^[-*•]\s+`), ""},
	{regexp.MustCompile(`\n{3,}`), "\n\n"},
	{regexp.MustCompile(`(?i)The Google Trends data`), "The data"},
	{regexp.MustCompile(`(?m)^4\.\s*`), ""},
	{regexp.MustCompile(`(?i)^4\.\s*Conclusion:\s*`), ""},
	{regexp.MustCompile(`(?i)^Conclusion:\s*`), ""},
	{regexp.MustCompile(`(?im)^Conclusion\s*$`), ""},
	{regexp.MustCompile(`(?im)^Conclusion\s+`), ""},
}

var citationLines = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\d+\.\s+[^\n]*(?:[-–]\s*(?:` + publications + `)|\([^)]*(?:` + publications + `)[^)]*\))`),
	regexp.MustCompile(`(?i)^https?://`),
	regexp.MustCompile(`(?i)^\[.*\]\(https?://\)`),
	regexp.MustCompile(`(?i)^[-*•]\s*(?:` + publications + `)`),
	regexp.MustCompile(`(?i)^\d{4}-\d{2}-\d{2}\s*[-–]\s*(?:Wikipedia|Britannica|EBSCO|YouTube|WION)`),
	regexp.MustCompile(`(?i)^(?:#+\s*)?\**Sources?:?\**$`),
}

// ConclusionExtractor pulls the conclusion section out of a generated
// explanation. Start markers are tried in order and the first match wins.
type ConclusionExtractor struct {
	strategies []conclusionStrategy
	endMarkers []*regexp.Regexp
}

// NewConclusionExtractor creates an extractor with the standard heading styles
func NewConclusionExtractor() *ConclusionExtractor {
	return &ConclusionExtractor{
		strategies: defaultStrategies,
		endMarkers: defaultEndMarkers,
	}
}

// Extract returns the cleaned conclusion; ok is false when there is no
// marker or the cleaned text is shorter than MinConclusionLength runes.
func (e *ConclusionExtractor) Extract(text string) (conclusion string, ok bool) {
	conclusion, _, ok = e.ExtractWithStrategy(text)
	return conclusion, ok
}

// ExtractWithStrategy is Extract that also names the start marker that matched
func (e *ConclusionExtractor) ExtractWithStrategy(text string) (conclusion, strategy string, ok bool) {
	if strings.TrimSpace(text) == "" {
		return "", "", false
	}

	start := -1
	for _, s := range e.strategies {
		if start = s.start(text); start >= 0 {
			strategy = s.name
			break
		}
	}
	if start < 0 {
		return "", "", false
	}

	rest := text[start:]
	end := len(rest)
	if marker := e.earliestEndMarker(rest); marker >= 0 &&
		utf8.RuneCountInString(strings.TrimSpace(rest[:marker])) >= minSpanBeforeEndMarker {
		end = marker
	}

	conclusion = filterCitationLines(cleanConclusion(rest[:end]))
	if utf8.RuneCountInString(conclusion) < MinConclusionLength {
		return "", strategy, false
	}
	return conclusion, strategy, true
}

func (e *ConclusionExtractor) earliestEndMarker(text string) int {
	earliest := -1
	for _, m := range e.endMarkers {
		if loc := m.FindStringIndex(text); loc != nil && (earliest < 0 || loc[0] < earliest) {
			earliest = loc[0]
		}
	}
	return earliest
}

func cleanConclusion(text string) string {
	text = strings.TrimSpace(text)
	for _, r := range cleanupRewrites {
		text = r.pattern.ReplaceAllString(text, r.replace)
	}
	return strings.TrimSpace(text)
}

func filterCitationLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isCitationLine(trimmed) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isCitationLine(line string) bool {
	for _, p := range citationLines {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}
