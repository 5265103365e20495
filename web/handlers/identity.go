package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/scrypster/recall/internal/engine"
)

// IdentityHandler serves the identity-linking endpoint.
type IdentityHandler struct {
	builder *engine.IdentityBuilder
	logger  *zap.Logger
}

// NewIdentityHandler creates an identity handler.
func NewIdentityHandler(builder *engine.IdentityBuilder, logger *zap.Logger) *IdentityHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityHandler{builder: builder, logger: logger}
}

// Run handles POST /api/users/{owner}/identity/run.
func (h *IdentityHandler) Run(w http.ResponseWriter, r *http.Request) {
	result, err := h.builder.Persist(r.Context(), ownerParam(r))
	if err != nil {
		respondEngineError(w, h.logger, "identity linking failed", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
