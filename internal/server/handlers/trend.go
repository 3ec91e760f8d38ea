// internal/server/handlers/trend.go

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"trendlens/internal/domain/trend"
	"trendlens/internal/service/explain"
	"trendlens/internal/service/listening"
)

// TrendHandler handles the stateless timeline and key endpoints
type TrendHandler struct {
	normalizer *listening.Normalizer
	analyzer   *listening.Analyzer
	extractor  *explain.ConclusionExtractor
}

// NewTrendHandler creates a new trend handler
func NewTrendHandler() *TrendHandler {
	return &TrendHandler{
		normalizer: listening.NewNormalizer(),
		analyzer:   listening.NewAnalyzer(),
		extractor:  explain.NewConclusionExtractor(),
	}
}

type timelineRequest struct {
	Keywords     []string          `json:"keywords"`
	TimelineData []trend.RawSample `json:"timelineData"`
}

type normalizeResponse struct {
	Keywords   []string                `json:"keywords"`
	Points     []trend.NormalizedPoint `json:"points"`
	Aggregates trend.Aggregates        `json:"aggregates"`
	Growth     []float64               `json:"growth"`
	Summary    string                  `json:"summary"`
}

// Normalize coerces a raw timeline and returns per-keyword aggregates
func (h *TrendHandler) Normalize(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTimeline(w, r)
	if !ok {
		return
	}

	keywords := trend.NewKeywordSet(req.Keywords)
	points := h.normalizer.Normalize(req.TimelineData, len(keywords))
	agg := h.analyzer.Aggregate(points, len(keywords))

	growth := make([]float64, len(keywords))
	for k := range keywords {
		growth[k] = h.analyzer.Growth(agg, k)
	}

	respondWithJSON(w, http.StatusOK, normalizeResponse{
		Keywords:   keywords,
		Points:     points,
		Aggregates: agg,
		Growth:     growth,
		Summary:    h.analyzer.Summary(keywords, agg),
	})
}

// Significant returns the points worth annotating
func (h *TrendHandler) Significant(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTimeline(w, r)
	if !ok {
		return
	}

	points := h.normalizer.Normalize(req.TimelineData, len(trend.NewKeywordSet(req.Keywords)))
	respondWithJSON(w, http.StatusOK, map[string]any{
		"significantPoints": listening.DetectSignificantPoints(points),
		"dataPoints":        len(points),
	})
}

// CacheKey returns the cache key of a keyword set
func (h *TrendHandler) CacheKey(w http.ResponseWriter, r *http.Request) {
	keywords := keywordsParam(r)
	if len(keywords.Canonical()) == 0 {
		respondWithError(w, http.StatusBadRequest, "Keywords are required", nil)
		return
	}

	namespace := r.URL.Query().Get("namespace")
	if namespace == "" {
		namespace = trend.NamespaceExplanation
	}

	key := trend.NewCacheKey(namespace, keywords)
	respondWithJSON(w, http.StatusOK, map[string]any{
		"key":       key.String(),
		"namespace": key.Namespace,
		"digest":    key.Digest,
		"canonical": keywords.Key(),
	})
}

type conclusionRequest struct {
	Explanation string `json:"explanation"`
}

// Conclusion extracts the conclusion section of an explanation
func (h *TrendHandler) Conclusion(w http.ResponseWriter, r *http.Request) {
	var req conclusionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON in request body", err)
		return
	}

	conclusion, strategy, ok := h.extractor.ExtractWithStrategy(req.Explanation)
	response := map[string]any{"conclusion": nil}
	if ok {
		response["conclusion"] = conclusion
		response["strategy"] = strategy
	}
	respondWithJSON(w, http.StatusOK, response)
}

func decodeTimeline(w http.ResponseWriter, r *http.Request) (timelineRequest, bool) {
	var req timelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON in request body", err)
		return req, false
	}
	return req, true
}

// keywordsParam reads a comma separated keywords query parameter
func keywordsParam(r *http.Request) trend.KeywordSet {
	return trend.NewKeywordSet(strings.Split(r.URL.Query().Get("keywords"), ","))
}

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	response := map[string]any{"success": false, "error": message}

	if err != nil && code >= 500 {
		slog.Error("HTTP error", "code", code, "message", message, "error", err)
	}

	respondWithJSON(w, code, response)
}

// Common errors
var (
	ErrNotFound = errors.New("not found")
)
