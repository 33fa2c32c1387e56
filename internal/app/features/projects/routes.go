// internal/app/features/projects/routes.go
package projects

import (
	"github.com/go-chi/chi/v5"

	sysauth "taskhub/internal/app/system/auth"
)

// Routes mounts the project endpoints (typically under "/projects" from
// bootstrap).
func Routes(h *Handler, tokens *sysauth.Manager) chi.Router {
	r := chi.NewRouter()
	r.Use(tokens.LoadTokenUser)

	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Get("/stats", h.HandleStats)
	r.Get("/team/{teamID}", h.HandleListByTeam)

	r.Route("/{projectID}", func(pr chi.Router) {
		pr.Get("/", h.HandleGet)
		pr.Put("/", h.HandleUpdate)
		pr.Delete("/", h.HandleDelete)
		pr.Put("/recompute-progress", h.HandleRecomputeProgress)
	})

	return r
}
