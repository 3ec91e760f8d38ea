package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"trendlens/internal/domain/trend"
	"trendlens/internal/service/refresh"
)

// Explainer is the explanation service as seen by HTTP
type Explainer interface {
	Explain(ctx context.Context, req trend.ExplainRequest) (*trend.ExplainResult, error)
	PeakSummaries(ctx context.Context, keywords trend.KeywordSet) ([]trend.PeakSummary, error)
	History(ctx context.Context, keywords trend.KeywordSet) ([]trend.ArchivedExplanation, error)
}

// Regenerator restarts generation for every configured keyword set
type Regenerator interface {
	RegenerateAll(ctx context.Context) (*refresh.Result, error)
}

// ExplainHandler handles explanation endpoints
type ExplainHandler struct {
	explainer   Explainer
	regenerator Regenerator
}

// NewExplainHandler creates a new explanation handler
func NewExplainHandler(explainer Explainer, regenerator Regenerator) *ExplainHandler {
	return &ExplainHandler{
		explainer:   explainer,
		regenerator: regenerator,
	}
}

type explainRequest struct {
	Keywords  []string `json:"keywords"`
	TrendData *struct {
		TimelineData []trend.RawSample `json:"timelineData"`
	} `json:"trendData"`
	Regenerate bool `json:"regenerate"`
}

// ExplainTrend returns the cached explanation or generates a new one
func (h *ExplainHandler) ExplainTrend(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON in request body", err)
		return
	}

	keywords := trend.NewKeywordSet(req.Keywords)
	if len(keywords) == 0 {
		respondWithError(w, http.StatusBadRequest, "Keywords array is required", nil)
		return
	}
	if req.TrendData == nil || len(req.TrendData.TimelineData) == 0 {
		respondWithError(w, http.StatusBadRequest, "Trend data is required", nil)
		return
	}

	result, err := h.explainer.Explain(r.Context(), trend.ExplainRequest{
		Keywords:   keywords,
		Timeline:   req.TrendData.TimelineData,
		Regenerate: req.Regenerate,
	})
	if err != nil {
		switch {
		case errors.Is(err, trend.ErrNoKeywords), errors.Is(err, trend.ErrNoTimeline):
			respondWithError(w, http.StatusBadRequest, err.Error(), nil)
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to generate trend explanation", err)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// PeakSummaries returns the stored peak annotations of a single keyword
func (h *ExplainHandler) PeakSummaries(w http.ResponseWriter, r *http.Request) {
	keywords := keywordsParam(r)
	if len(keywords) == 0 {
		respondWithError(w, http.StatusBadRequest, "Keywords are required", nil)
		return
	}

	response := map[string]any{
		"success":       true,
		"peakSummaries": []trend.PeakSummary{},
	}
	if len(keywords) > 1 {
		response["message"] = "Peak summaries are only available for single keywords"
		respondWithJSON(w, http.StatusOK, response)
		return
	}

	summaries, err := h.explainer.PeakSummaries(r.Context(), keywords)
	if err != nil {
		response["message"] = "Peak summaries are unavailable"
		respondWithJSON(w, http.StatusOK, response)
		return
	}

	response["peakSummaries"] = summaries
	response["count"] = len(summaries)
	respondWithJSON(w, http.StatusOK, response)
}

// History returns archived explanations of a keyword set
func (h *ExplainHandler) History(w http.ResponseWriter, r *http.Request) {
	keywords := keywordsParam(r)
	if len(keywords) == 0 {
		respondWithError(w, http.StatusBadRequest, "Keywords are required", nil)
		return
	}

	history, err := h.explainer.History(r.Context(), keywords)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load explanation history", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"keywords": keywords,
		"history":  history,
	})
}

// RegenerateAll starts background regeneration of every configured set
func (h *ExplainHandler) RegenerateAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.regenerator.RegenerateAll(r.Context())
	if err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "Keyword sets are unavailable", err)
		return
	}

	respondWithJSON(w, http.StatusAccepted, result)
}
