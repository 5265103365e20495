package handlers

import (
	"github.com/go-chi/chi/v5"
)

// API groups the handler sets served under /api.
type API struct {
	Memories *MemoryHandlers
	Entities *EntityHandler
	Merges   *MergeHandlers
	Identity *IdentityHandler
}

// Routes returns the per-owner API routes, relative to the /api mount point.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/users/{owner}", func(r chi.Router) {
		r.Route("/memories", func(r chi.Router) {
			r.Post("/", a.Memories.Create)
			r.Get("/", a.Memories.Retrieve)
			r.Post("/batch", a.Memories.CreateBatch)
			r.Get("/{id}", a.Memories.Get)
			r.Delete("/{id}", a.Memories.Delete)
		})

		r.Post("/entities", a.Entities.SaveEntities)
		r.Get("/entities", a.Entities.ListEntities)
		r.Get("/entities/{id}/graph", a.Entities.Neighborhood)
		r.Post("/aliases", a.Entities.SaveAlias)
		r.Get("/graph", a.Entities.Graph)

		r.Route("/merge-suggestions", func(r chi.Router) {
			r.Get("/", a.Merges.List)
			r.Post("/run", a.Merges.Run)
			r.Post("/{id}/review", a.Merges.Review)
		})

		r.Post("/identity/run", a.Identity.Run)
	})
	return r
}
