package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/scrypster/recall/internal/engine"
	"github.com/scrypster/recall/pkg/types"
)

// MemoryHandlers serves the memory endpoints.
type MemoryHandlers struct {
	engine *engine.MemoryEngine
	logger *zap.Logger
}

// NewMemoryHandlers creates memory handlers over eng.
func NewMemoryHandlers(eng *engine.MemoryEngine, logger *zap.Logger) *MemoryHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryHandlers{engine: eng, logger: logger}
}

// Create handles POST /api/users/{owner}/memories.
func (h *MemoryHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateMemoryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	m, err := h.engine.Create(r.Context(), req.input(ownerParam(r)))
	if err != nil {
		respondEngineError(w, h.logger, "failed to create memory", err)
		return
	}
	respondJSON(w, http.StatusCreated, m)
}

// CreateBatch handles POST /api/users/{owner}/memories/batch. Either every
// memory is created or none is.
func (h *MemoryHandlers) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchCreateMemoriesRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	owner := ownerParam(r)
	inputs := make([]types.CreateMemoryInput, len(req.Memories))
	for i, m := range req.Memories {
		inputs[i] = m.input(owner)
	}

	created, err := h.engine.CreateBatch(r.Context(), inputs)
	if err != nil {
		respondEngineError(w, h.logger, "failed to create memories", err)
		return
	}
	respondJSON(w, http.StatusCreated, CreatedMemoriesResponse{Memories: created, Count: len(created)})
}

// Retrieve handles GET /api/users/{owner}/memories.
//
// Query parameters: minStrength, minConfidence, minImportance (0..1),
// categories (comma-separated) and limit.
func (h *MemoryHandlers) Retrieve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var opts engine.RetrievalOptions
	var err error
	if opts.MinStrength, err = parseFloat(q.Get("minStrength"), 0); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "invalid minStrength", err)
		return
	}
	if opts.MinConfidence, err = parseFloat(q.Get("minConfidence"), 0); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "invalid minConfidence", err)
		return
	}
	if opts.MinImportance, err = parseFloat(q.Get("minImportance"), 0); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "invalid minImportance", err)
		return
	}
	for _, c := range splitList(q.Get("categories")) {
		if !types.IsValidCategory(types.Category(c)) {
			respondError(w, http.StatusBadRequest, CodeBadRequest, "unknown category "+c, nil)
			return
		}
		opts.Categories = append(opts.Categories, types.Category(c))
	}
	if opts.Limit, err = parseInt(q.Get("limit"), 0); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "invalid limit", err)
		return
	}

	results, err := h.engine.Retrieve(r.Context(), ownerParam(r), opts)
	if err != nil {
		respondEngineError(w, h.logger, "failed to retrieve memories", err)
		return
	}
	respondJSON(w, http.StatusOK, MemoriesResponse{Memories: results, Count: len(results)})
}

// Get handles GET /api/users/{owner}/memories/{id}.
func (h *MemoryHandlers) Get(w http.ResponseWriter, r *http.Request) {
	details, err := h.engine.Get(r.Context(), ownerParam(r), chi.URLParam(r, "id"))
	if err != nil {
		respondEngineError(w, h.logger, "failed to get memory", err)
		return
	}
	respondJSON(w, http.StatusOK, details)
}

// Delete handles DELETE /api/users/{owner}/memories/{id}; ?hard=true
// removes the row instead of flagging it.
func (h *MemoryHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	hard := parseBool(r.URL.Query().Get("hard"))
	if err := h.engine.Delete(r.Context(), ownerParam(r), chi.URLParam(r, "id"), hard); err != nil {
		respondEngineError(w, h.logger, "failed to delete memory", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
