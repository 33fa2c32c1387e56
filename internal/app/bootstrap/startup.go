// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	userstore "taskhub/internal/app/store/users"
	"taskhub/internal/domain/models"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.AdminEmail != "" {
		if err := ensureAdmin(ctx, deps, appCfg.AdminEmail, appCfg.AdminPassword, logger); err != nil {
			return err
		}
	}
	return nil
}

// ensureAdmin guarantees an admin account exists. An existing user with the
// configured email is promoted; otherwise a new admin is created with the
// configured password. Runs on every startup and is a no-op when the account
// is already an admin.
func ensureAdmin(ctx context.Context, deps DBDeps, email, password string, logger *zap.Logger) error {
	users := userstore.New(deps.MongoDatabase)

	existing, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == models.RoleAdmin {
			return nil
		}
		if err := users.SetRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			return fmt.Errorf("promote admin: %w", err)
		}
		logger.Info("promoted existing user to admin", zap.String("email", email))
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		// Fall through to creation.
	default:
		return fmt.Errorf("look up admin: %w", err)
	}

	if password == "" {
		logger.Warn("admin account does not exist and no admin_password is set; skipping creation",
			zap.String("email", email))
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	if _, err := users.Create(ctx, models.User{
		FullName:     "Administrator",
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	logger.Info("created bootstrap admin", zap.String("email", email))
	return nil
}
