package explain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConclusionExtractor_Extract(t *testing.T) {
	e := NewConclusionExtractor()

	tests := []struct {
		name     string
		text     string
		want     string
		strategy string
		ok       bool
	}{
		{
			name:     "bold marker with sources section",
			text:     "1. Overview\nStuff.\n\n**4. Conclusion:**\nThe trend shows sustained growth across every region.\n\nSources:\n1. Example - Wikipedia",
			want:     "The trend shows sustained growth across every region.",
			strategy: "bold-numbered",
			ok:       true,
		},
		{
			name:     "bold short conclusion variant",
			text:     "**4. A short conclusion:** Interest in the election peaked twice and settled at a higher baseline.",
			want:     "Interest in the election peaked twice and settled at a higher baseline.",
			strategy: "bold-numbered",
			ok:       true,
		},
		{
			name:     "plain numbered header",
			text:     "3. Context\nSomething.\n4. A short conclusion\nPublic attention moved from the campaign to the court ruling by late spring.",
			want:     "Public attention moved from the campaign to the court ruling by late spring.",
			strategy: "numbered",
			ok:       true,
		},
		{
			name:     "markdown heading",
			text:     "## Overview\nx\n### Conclusion\nSearches for both terms converged after the summit ended in August.",
			want:     "Searches for both terms converged after the summit ended in August.",
			strategy: "heading",
			ok:       true,
		},
		{
			name:     "bare conclusion line",
			text:     "Overview first.\nConclusion:\nThe data points to a durable shift in attention toward energy policy.",
			want:     "The data points to a durable shift in attention toward energy policy.",
			strategy: "bare",
			ok:       true,
		},
		{
			name: "no marker",
			text: "no conclusion marker here",
			ok:   false,
		},
		{
			name:     "too short after cleaning",
			text:     "**4. Conclusion:**\nToo short.",
			strategy: "bold-numbered",
			ok:       false,
		},
		{
			name: "empty",
			text: "   ",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, strategy, ok := e.ExtractWithStrategy(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.strategy, strategy)
		})
	}
}

func TestConclusionExtractor_ShortConclusionBeforeSources(t *testing.T) {
	// A marker directly after a short conclusion is ignored, and what remains
	// after citation filtering is below the usable length.
	text := "... **4. Conclusion:**\nThe trend shows growth.\n\nSources:\n1. Example - Wikipedia"

	got, ok := NewConclusionExtractor().Extract(text)

	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestConclusionExtractor_EndMarkers(t *testing.T) {
	e := NewConclusionExtractor()
	body := "Attention shifted decisively toward the referendum during the final month."

	tests := []struct {
		name string
		tail string
	}{
		{name: "summaries section", tail: "\n\n## SUMMARIES\nPeak one: something"},
		{name: "markdown sources heading", tail: "\n\n### Sources\n- https://example.com"},
		{name: "numbered sources heading", tail: "\n5. Sources\nwhatever"},
		{name: "bold sources", tail: "\n**Sources**\nwhatever"},
		{name: "citation list", tail: "\n1. Referendum explained - YouTube (WION, 2025-11-05)\n2. Another"},
		{name: "parenthetical citation", tail: "\n1. Background reading (Britannica, 2024)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := e.Extract("**4. Conclusion:**\n" + body + tt.tail)
			assert.True(t, ok)
			assert.Equal(t, body, got)
		})
	}

	t.Run("earliest marker wins", func(t *testing.T) {
		text := "**4. Conclusion:**\n" + body + "\n\nSources:\nx\n\nSUMMARIES\ny"
		got, ok := e.Extract(text)
		assert.True(t, ok)
		assert.Equal(t, body, got)
	})
}

func TestConclusionExtractor_Cleanup(t *testing.T) {
	e := NewConclusionExtractor()

	t.Run("bold, bullets and boilerplate", func(t *testing.T) {
		text := "## Conclusion\n- **The Google Trends data** shows a clear shift toward the new policy.\n\n\n\n* Interest stayed elevated after the announcement."

		got, ok := e.Extract(text)

		assert.True(t, ok)
		assert.Equal(t, "The data shows a clear shift toward the new policy.\nInterest stayed elevated after the announcement.", got)
	})

	t.Run("citation lines are dropped", func(t *testing.T) {
		text := "## Conclusion\nVoters reacted strongly to the debate and the subsequent scandal coverage.\n" +
			"https://example.com/article\n" +
			"[Link](https://)\n" +
			"•Wikipedia: debate entry\n" +
			"2024-03-01 - Britannica overview\n" +
			"2. Debate recap - YouTube"

		got, ok := e.Extract(text)

		assert.True(t, ok)
		assert.Equal(t, "Voters reacted strongly to the debate and the subsequent scandal coverage.", got)
	})

	t.Run("reappearing prefixes are stripped", func(t *testing.T) {
		text := "## Conclusion\n4. Conclusion: The electorate moved toward the challenger over the summer."

		got, ok := e.Extract(text)

		assert.True(t, ok)
		assert.Equal(t, "The electorate moved toward the challenger over the summer.", got)
	})

	t.Run("length counts characters not bytes", func(t *testing.T) {
		// 29 runes but more than 30 bytes
		text := "## Conclusion\n" + strings.Repeat("é", 29)
		_, ok := e.Extract(text)
		assert.False(t, ok)
	})
}
