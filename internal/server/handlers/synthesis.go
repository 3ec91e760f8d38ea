package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"trendlens/internal/domain/trend"
	"trendlens/internal/service/synthesis"
)

// Synthesizer produces the state-of-the-world synthesis
type Synthesizer interface {
	Synthesize(ctx context.Context, keywordSets []trend.KeywordSet, growth trend.GrowthMetrics) *synthesis.Result
}

// TaskLookup exposes background task status
type TaskLookup interface {
	Task(id string) (synthesis.Task, bool)
	Tasks() []synthesis.Task
}

// SynthesisHandler handles the state-of-the-world endpoints
type SynthesisHandler struct {
	synthesizer Synthesizer
	tasks       TaskLookup
}

// NewSynthesisHandler creates a new synthesis handler
func NewSynthesisHandler(synthesizer Synthesizer, tasks TaskLookup) *SynthesisHandler {
	return &SynthesisHandler{
		synthesizer: synthesizer,
		tasks:       tasks,
	}
}

type stateOfWorldRequest struct {
	KeywordSets   [][]string          `json:"keywordSets"`
	GrowthMetrics trend.GrowthMetrics `json:"growthMetrics"`
}

// StateOfWorld synthesizes the conclusions of high-growth keyword sets
func (h *SynthesisHandler) StateOfWorld(w http.ResponseWriter, r *http.Request) {
	var req stateOfWorldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON in request body", err)
		return
	}
	if req.KeywordSets == nil {
		respondWithError(w, http.StatusBadRequest, "Keyword sets array is required", nil)
		return
	}
	if req.GrowthMetrics == nil {
		respondWithError(w, http.StatusBadRequest, "Growth metrics object is required", nil)
		return
	}

	sets := make([]trend.KeywordSet, 0, len(req.KeywordSets))
	for _, members := range req.KeywordSets {
		sets = append(sets, trend.NewKeywordSet(members))
	}

	result := h.synthesizer.Synthesize(r.Context(), sets, req.GrowthMetrics)
	if !result.Success {
		respondWithJSON(w, http.StatusInternalServerError, result)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// GetTask returns the status of a background task
func (h *SynthesisHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing task ID", nil)
		return
	}

	task, ok := h.tasks.Task(id)
	if !ok {
		respondWithError(w, http.StatusNotFound, "Task "+ErrNotFound.Error(), nil)
		return
	}

	respondWithJSON(w, http.StatusOK, task)
}

// ListTasks returns every tracked background task
func (h *SynthesisHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.tasks.Tasks())
}
