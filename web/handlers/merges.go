package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/scrypster/recall/internal/engine"
	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/pkg/types"
)

// MergeHandlers serves the merge-suggestion endpoints.
type MergeHandlers struct {
	pipeline   *engine.MergePipeline
	store      storage.MergeSuggestionStore
	autoAccept bool
	logger     *zap.Logger
}

// NewMergeHandlers creates merge handlers. autoAccept is the default for
// runs that do not pass ?autoAccept.
func NewMergeHandlers(pipeline *engine.MergePipeline, store storage.MergeSuggestionStore, autoAccept bool, logger *zap.Logger) *MergeHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MergeHandlers{pipeline: pipeline, store: store, autoAccept: autoAccept, logger: logger}
}

// Run handles POST /api/users/{owner}/merge-suggestions/run.
func (h *MergeHandlers) Run(w http.ResponseWriter, r *http.Request) {
	autoAccept := h.autoAccept
	if v := r.URL.Query().Get("autoAccept"); v != "" {
		autoAccept = parseBool(v)
	}

	result, err := h.pipeline.Run(r.Context(), ownerParam(r), autoAccept)
	if err != nil {
		respondEngineError(w, h.logger, "merge pipeline failed", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// List handles GET /api/users/{owner}/merge-suggestions?status=.
func (h *MergeHandlers) List(w http.ResponseWriter, r *http.Request) {
	status := types.SuggestionStatus(r.URL.Query().Get("status"))
	if status != "" && !types.IsValidSuggestionStatus(status) {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "unknown status "+string(status), nil)
		return
	}

	suggestions, err := h.store.ListMergeSuggestions(r.Context(), ownerParam(r), status)
	if err != nil {
		respondEngineError(w, h.logger, "failed to list merge suggestions", err)
		return
	}
	respondJSON(w, http.StatusOK, SuggestionsResponse{Suggestions: suggestions, Count: len(suggestions)})
}

// Review handles POST /api/users/{owner}/merge-suggestions/{id}/review.
func (h *MergeHandlers) Review(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sg, err := h.pipeline.ReviewSuggestion(r.Context(), ownerParam(r), chi.URLParam(r, "id"), req.Decision)
	if err != nil {
		respondEngineError(w, h.logger, "failed to review merge suggestion", err)
		return
	}
	respondJSON(w, http.StatusOK, sg)
}
