// internal/app/features/equipment/routes.go
package equipment

import (
	"github.com/go-chi/chi/v5"

	sysauth "taskhub/internal/app/system/auth"
)

// Routes mounts the equipment endpoints (typically under "/equipment" from
// bootstrap).
func Routes(h *Handler, tokens *sysauth.Manager) chi.Router {
	r := chi.NewRouter()
	r.Use(tokens.LoadTokenUser)

	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)

	r.Route("/{equipmentID}", func(er chi.Router) {
		er.Get("/", h.HandleGet)
		er.Put("/", h.HandleUpdate)
		er.Delete("/", h.HandleDelete)
		er.Post("/assign/{userID}", h.HandleAssign)
		er.Delete("/assign", h.HandleUnassign)
	})

	return r
}
