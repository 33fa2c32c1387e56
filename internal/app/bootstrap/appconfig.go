// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//   - Database connection timeouts
//
// AppConfig is where you put everything specific to YOUR application.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// API token configuration
	JWTSecret string        // Secret for signing bearer tokens (must be strong in production)
	JWTExpiry time.Duration // Token lifetime (e.g., 24h)

	// Password reset configuration
	ResetTokenTTL time.Duration // Lifetime of password reset tokens

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host (e.g., localhost for Mailpit, email-smtp.us-east-1.amazonaws.com for SES)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string // SMTP username (empty for Mailpit)
	MailSMTPPass string // SMTP password
	MailFrom     string // From email address (e.g., noreply@taskhub.io)

	// Branding for outbound email and API links
	SiteName string // Display name used in email subjects and bodies
	BaseURL  string // e.g., "https://taskhub.io" or "http://localhost:3000"

	// Bootstrap admin: created (or promoted) on startup so a fresh deploy
	// is never locked out.
	AdminEmail    string
	AdminPassword string
}
