// internal/app/features/auth/routes.go
package auth

import (
	"github.com/go-chi/chi/v5"

	sysauth "taskhub/internal/app/system/auth"
)

// Routes mounts the auth endpoints (typically under "/auth" from bootstrap).
func Routes(h *Handler, tokens *sysauth.Manager) chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
	r.Post("/forgot-password", h.HandleForgotPassword)
	r.Post("/complete-reset", h.HandleResetPassword)

	r.Group(func(pr chi.Router) {
		pr.Use(tokens.LoadTokenUser)
		pr.Use(sysauth.RequireSignedIn)

		pr.Get("/verify", h.HandleVerify)
		pr.Get("/me", h.HandleMe)
		pr.Post("/password", h.HandleChangePassword)
	})

	return r
}
