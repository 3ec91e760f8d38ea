package trend

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// Cache namespaces. The namespace is part of the hashed input, so the two
// families never share a digest for the same keyword set.
const (
	NamespaceExplanation   = "explain-trend"
	NamespacePeakSummaries = "peak-summaries"
)

// KeywordSeparator joins canonical keywords
const KeywordSeparator = "|"

// KeywordSet is a group of search terms tracked together. Order and case
// carry no meaning; use Canonical for comparisons.
type KeywordSet []string

// NewKeywordSet trims members and drops blanks, keeping caller order
func NewKeywordSet(raw []string) KeywordSet {
	set := make(KeywordSet, 0, len(raw))
	for _, k := range raw {
		if k = strings.TrimSpace(k); k != "" {
			set = append(set, k)
		}
	}
	return set
}

// Canonical returns the trimmed, lower-cased, sorted members
func (s KeywordSet) Canonical() []string {
	return Canonicalize(s)
}

// Key returns the joined canonical form
func (s KeywordSet) Key() string {
	return strings.Join(Canonicalize(s), KeywordSeparator)
}

// Equivalent reports whether both sets have the same canonical form
func (s KeywordSet) Equivalent(other KeywordSet) bool {
	return s.Key() == other.Key()
}

// String renders the set for prompts and logs
func (s KeywordSet) String() string {
	return strings.Join(s, ", ")
}

// Canonicalize trims and lower-cases every keyword, discards blanks and
// sorts the rest. It never fails; an all-blank input yields an empty slice.
func Canonicalize(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CanonicalKey is Canonicalize joined with KeywordSeparator
func CanonicalKey(keywords []string) string {
	return strings.Join(Canonicalize(keywords), KeywordSeparator)
}

// CanonicalGrowthKey normalizes a growth-metric map key. Keys may already be
// canonical strings ("a|b") or JSON arrays of keywords (`["B","a"]`).
func CanonicalGrowthKey(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "[") {
		var keywords []string
		if err := json.Unmarshal([]byte(trimmed), &keywords); err == nil {
			return CanonicalKey(keywords)
		}
	}
	return CanonicalKey(strings.Split(trimmed, KeywordSeparator))
}

// CacheKey identifies a cache entry of one namespace
type CacheKey struct {
	Namespace string
	Digest    string
}

// NewCacheKey derives the namespaced digest of a keyword list
func NewCacheKey(namespace string, keywords []string) CacheKey {
	sum := sha256.Sum256([]byte(namespace + KeywordSeparator + CanonicalKey(keywords)))
	return CacheKey{
		Namespace: namespace,
		Digest:    hex.EncodeToString(sum[:]),
	}
}

// ExplanationKey is the explain-trend key of a keyword list
func ExplanationKey(keywords []string) CacheKey {
	return NewCacheKey(NamespaceExplanation, keywords)
}

// PeakSummariesKey is the peak-summaries key of a keyword list
func PeakSummariesKey(keywords []string) CacheKey {
	return NewCacheKey(NamespacePeakSummaries, keywords)
}

// String returns the external key "namespace:digest"
func (k CacheKey) String() string {
	return k.Namespace + ":" + k.Digest
}
