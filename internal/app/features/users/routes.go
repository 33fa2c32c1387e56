// internal/app/features/users/routes.go
package users

import (
	"github.com/go-chi/chi/v5"

	sysauth "taskhub/internal/app/system/auth"
)

// Routes mounts the user management endpoints (typically under "/users" from
// bootstrap). Role checks happen in the handlers so 401 and 403 stay
// distinct per operation.
func Routes(h *Handler, tokens *sysauth.Manager) chi.Router {
	r := chi.NewRouter()
	r.Use(tokens.LoadTokenUser)

	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)

	// Soft-delete lifecycle, admin-only.
	r.Get("/deleted", h.HandleListDeleted)
	r.Get("/all", h.HandleListAll)
	r.Delete("/purge", h.HandlePurge)
	r.Post("/bulk-restore", h.HandleBulkRestore)
	r.Post("/bulk-permanent-delete", h.HandleBulkPermanentDelete)

	r.Route("/{userID}", func(ur chi.Router) {
		ur.Get("/", h.HandleGet)
		ur.Put("/", h.HandleUpdate)
		ur.Put("/role", h.HandleSetRole)
		ur.Put("/permissions", h.HandleSetPermissions)
		ur.Put("/team", h.HandleSetTeam)
		ur.Delete("/", h.HandleSoftDelete)
		ur.Post("/restore", h.HandleRestore)
		ur.Delete("/permanent", h.HandlePermanentDelete)
	})

	return r
}
