// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	authfeature "taskhub/internal/app/features/auth"
	dashboardfeature "taskhub/internal/app/features/dashboard"
	equipmentfeature "taskhub/internal/app/features/equipment"
	healthfeature "taskhub/internal/app/features/health"
	projectsfeature "taskhub/internal/app/features/projects"
	tasksfeature "taskhub/internal/app/features/tasks"
	teamsfeature "taskhub/internal/app/features/teams"
	usersfeature "taskhub/internal/app/features/users"
	equipmentstore "taskhub/internal/app/store/equipment"
	projectstore "taskhub/internal/app/store/projects"
	resetstore "taskhub/internal/app/store/resets"
	taskstore "taskhub/internal/app/store/tasks"
	teamstore "taskhub/internal/app/store/teams"
	userstore "taskhub/internal/app/store/users"
	sysauth "taskhub/internal/app/system/auth"
	"taskhub/internal/app/system/mailer"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// TaskHub is a JSON API: every feature router is mounted under /api except
// the health check, which load balancers probe directly.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	tokens, err := sysauth.NewManager(appCfg.JWTSecret, appCfg.JWTExpiry, logger)
	if err != nil {
		logger.Error("token manager init failed", zap.Error(err))
		return nil, err
	}

	mail := mailer.New(appCfg.MailSMTPHost, appCfg.MailSMTPPort,
		appCfg.MailSMTPUser, appCfg.MailSMTPPass, appCfg.MailFrom, logger)

	db := deps.MongoDatabase
	users := userstore.New(db)
	teams := teamstore.New(db)
	tasks := taskstore.New(db)
	projects := projectstore.New(db)
	equipment := equipmentstore.New(db)
	resets := resetstore.NewWithTTL(db, appCfg.ResetTokenTTL)

	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Route("/api", func(api chi.Router) {
		authHandler := authfeature.NewHandler(users, resets, tokens, mail,
			appCfg.SiteName, appCfg.BaseURL, coreCfg.Env != "prod", logger)
		api.Mount("/auth", authfeature.Routes(authHandler, tokens))

		usersHandler := usersfeature.NewHandler(users, teams, tasks, projects, equipment, logger)
		api.Mount("/users", usersfeature.Routes(usersHandler, tokens))

		teamsHandler := teamsfeature.NewHandler(teams, users, tasks, projects, equipment, logger)
		api.Mount("/teams", teamsfeature.Routes(teamsHandler, tokens))

		tasksHandler := tasksfeature.NewHandler(tasks, users, logger)
		api.Mount("/tasks", tasksfeature.Routes(tasksHandler, tokens))

		projectsHandler := projectsfeature.NewHandler(projects, tasks, logger)
		api.Mount("/projects", projectsfeature.Routes(projectsHandler, tokens))

		equipmentHandler := equipmentfeature.NewHandler(equipment, users, logger)
		api.Mount("/equipment", equipmentfeature.Routes(equipmentHandler, tokens))

		dashboardHandler := dashboardfeature.NewHandler(users, tasks, projects, equipment, logger)
		api.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, tokens))
	})

	return r, nil
}
