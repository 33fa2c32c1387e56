// internal/app/features/tasks/routes.go
package tasks

import (
	"github.com/go-chi/chi/v5"

	sysauth "taskhub/internal/app/system/auth"
)

// Routes mounts the task endpoints (typically under "/tasks" from bootstrap).
func Routes(h *Handler, tokens *sysauth.Manager) chi.Router {
	r := chi.NewRouter()
	r.Use(tokens.LoadTokenUser)

	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Get("/mine", h.HandleMine)

	// Path-style listings alongside the query-parameter filters on GET /.
	r.Get("/team/{teamID}", h.HandleListByTeam)
	r.Get("/team/{teamID}/unassigned", h.HandleListTeamUnassigned)
	r.Get("/project/{projectID}", h.HandleListByProject)
	r.Get("/project/{projectID}/unassigned", h.HandleListProjectUnassigned)
	r.Get("/user/{userID}", h.HandleListByUser)

	r.Post("/assign/{taskID}/to/{userID}", h.HandleAssign)

	r.Route("/{taskID}", func(tr chi.Router) {
		tr.Get("/", h.HandleGet)
		tr.Put("/", h.HandleUpdate)
		tr.Delete("/", h.HandleDelete)
		tr.Put("/status", h.HandleUpdateStatus)
		tr.Delete("/assign", h.HandleUnassign)
	})

	return r
}
