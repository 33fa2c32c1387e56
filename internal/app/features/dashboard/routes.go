// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/go-chi/chi/v5"

	sysauth "taskhub/internal/app/system/auth"
)

// Routes mounts the dashboard endpoints (typically under "/dashboard" from
// bootstrap).
func Routes(h *Handler, tokens *sysauth.Manager) chi.Router {
	r := chi.NewRouter()
	r.Use(tokens.LoadTokenUser)

	r.Get("/", h.HandleOverview)

	return r
}
