// internal/app/features/teams/routes.go
package teams

import (
	"github.com/go-chi/chi/v5"

	sysauth "taskhub/internal/app/system/auth"
)

// Routes mounts the team endpoints (typically under "/teams" from bootstrap).
func Routes(h *Handler, tokens *sysauth.Manager) chi.Router {
	r := chi.NewRouter()
	r.Use(tokens.LoadTokenUser)

	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)

	r.Route("/{teamID}", func(tr chi.Router) {
		tr.Get("/", h.HandleGet)
		tr.Put("/", h.HandleUpdate)
		tr.Delete("/", h.HandleDelete)

		tr.Post("/members", h.HandleAddMember)
		tr.Delete("/members/{userID}", h.HandleRemoveMember)
		tr.Post("/promote/{userID}", h.HandlePromote)
	})

	return r
}
