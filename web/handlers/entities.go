package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/scrypster/recall/internal/engine"
	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/pkg/types"
)

// EntityStore is the slice of storage the entity handlers write to.
type EntityStore interface {
	storage.EntityStore
	storage.AliasStore
}

// EntityHandler serves entity, alias and graph endpoints.
type EntityHandler struct {
	store  EntityStore
	graph  *engine.GraphService
	noise  *engine.NoiseFilter
	logger *zap.Logger
}

// NewEntityHandler creates an entity handler. A nil noise filter keeps
// every mention.
func NewEntityHandler(store EntityStore, graph *engine.GraphService, noise *engine.NoiseFilter, logger *zap.Logger) *EntityHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntityHandler{store: store, graph: graph, noise: noise, logger: logger}
}

// SaveEntities handles POST /api/users/{owner}/entities. Mentions of famous
// people and well-known companies are dropped unless flagged as the user.
func (h *EntityHandler) SaveEntities(w http.ResponseWriter, r *http.Request) {
	var req SaveEntitiesRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	owner := ownerParam(r)
	mentions := make([]*types.Entity, len(req.Entities))
	for i, e := range req.Entities {
		mentions[i] = e.entity(owner)
	}
	kept := mentions
	if h.noise != nil {
		kept = h.noise.Filter(mentions)
	}

	for _, e := range kept {
		if err := h.store.SaveEntity(r.Context(), e); err != nil {
			respondEngineError(w, h.logger, "failed to save entity", err)
			return
		}
	}

	h.logger.Debug("entities saved",
		zap.String("owner_id", owner),
		zap.Int("saved", len(kept)),
		zap.Int("dropped", len(mentions)-len(kept)))
	respondJSON(w, http.StatusCreated, SaveEntitiesResponse{
		Entities: kept,
		Saved:    len(kept),
		Dropped:  len(mentions) - len(kept),
	})
}

// ListEntities handles GET /api/users/{owner}/entities?type=&identity=true.
func (h *EntityHandler) ListEntities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.EntityFilter{
		Type:         types.EntityType(q.Get("type")),
		IdentityOnly: parseBool(q.Get("identity")),
	}
	if filter.Type != "" && !types.IsValidEntityType(filter.Type) {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "unknown entity type "+string(filter.Type), nil)
		return
	}

	entities, err := h.store.ListEntities(r.Context(), ownerParam(r), filter)
	if err != nil {
		respondEngineError(w, h.logger, "failed to list entities", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entities": entities, "count": len(entities)})
}

// SaveAlias handles POST /api/users/{owner}/aliases.
func (h *EntityHandler) SaveAlias(w http.ResponseWriter, r *http.Request) {
	var req AliasRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	alias := &types.Alias{
		OwnerID:     ownerParam(r),
		EntityType:  req.EntityType,
		EntityValue: req.EntityValue,
		Alias:       req.Alias,
	}
	if err := h.store.SaveAlias(r.Context(), alias); err != nil {
		respondEngineError(w, h.logger, "failed to save alias", err)
		return
	}
	respondJSON(w, http.StatusCreated, alias)
}

// Graph handles GET /api/users/{owner}/graph.
func (h *EntityHandler) Graph(w http.ResponseWriter, r *http.Request) {
	view, err := h.graph.Graph(r.Context(), ownerParam(r))
	if err != nil {
		respondEngineError(w, h.logger, "failed to build graph", err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Neighborhood handles GET /api/users/{owner}/entities/{id}/graph?depth=N.
// Depth is clamped to [1,3].
func (h *EntityHandler) Neighborhood(w http.ResponseWriter, r *http.Request) {
	depth, err := parseInt(r.URL.Query().Get("depth"), engine.DefaultGraphDepth)
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "invalid depth", err)
		return
	}

	view, err := h.graph.Neighborhood(r.Context(), ownerParam(r), chi.URLParam(r, "id"), depth)
	if err != nil {
		respondEngineError(w, h.logger, "failed to build neighborhood", err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}
