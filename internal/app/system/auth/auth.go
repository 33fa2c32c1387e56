// internal/app/system/auth/auth.go

// Package auth issues and verifies the bearer tokens that authenticate API
// requests, and provides the middleware that loads the token's user into the
// request context.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"taskhub/internal/app/system/httpapi"
	"taskhub/internal/domain/models"
)

// Claims is the JWT payload. Role and team placement ride in the token so
// middleware can gate requests without a database read; handlers that need
// fresh state re-load the user.
type Claims struct {
	UserID         string `json:"uid"`
	Role           string `json:"role"`
	TeamID         string `json:"team_id,omitempty"`
	CanManageTasks bool   `json:"can_manage_tasks,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and verifies tokens with a single HS256 secret.
type Manager struct {
	secret []byte
	expiry time.Duration
	log    *zap.Logger
}

// NewManager builds a token manager. The secret must be non-empty; short
// secrets are accepted but logged.
func NewManager(secret string, expiry time.Duration, logger *zap.Logger) (*Manager, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty; provide ≥32 random chars")
	}
	if len(secret) < 32 && logger != nil {
		logger.Warn("jwt secret is short; 32+ chars recommended",
			zap.Int("length", len(secret)))
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Manager{secret: []byte(secret), expiry: expiry, log: logger}, nil
}

// Issue creates a signed token for the given user. The returned expiry is
// echoed to clients so they can refresh before the token lapses.
func (m *Manager) Issue(u *models.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.expiry)

	claims := Claims{
		UserID:         u.ID.Hex(),
		Role:           string(u.Role),
		CanManageTasks: u.CanManageTasks,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if u.TeamID != nil {
		claims.TeamID = u.TeamID.Hex()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a token string, rejecting anything not signed
// with HS256 under our secret, or past its expiry.
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Request-context user                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// TokenUser is the authenticated identity injected into r.Context().
type TokenUser struct {
	ID             primitive.ObjectID
	Role           models.Role
	TeamID         *primitive.ObjectID
	CanManageTasks bool
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user and a "found?" flag.
func CurrentUser(r *http.Request) (*TokenUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*TokenUser)
	return u, ok
}

// WithUser returns a request whose context carries the given user. Exposed
// for tests that exercise handlers without real tokens.
func WithUser(r *http.Request, u *TokenUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// BearerToken extracts the token from an Authorization: Bearer header.
// Returns "" when the header is absent or malformed.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// LoadTokenUser injects the token's user into context when a valid bearer
// token is present. Requests without (or with invalid) tokens pass through
// unauthenticated; RequireSignedIn decides whether that is fatal.
func (m *Manager) LoadTokenUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := BearerToken(r)
		if tok == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.Verify(tok)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		uid, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		u := &TokenUser{
			ID:             uid,
			Role:           models.Role(claims.Role),
			CanManageTasks: claims.CanManageTasks,
		}
		if claims.TeamID != "" {
			if tid, err := primitive.ObjectIDFromHex(claims.TeamID); err == nil {
				u.TeamID = &tid
			}
		}
		next.ServeHTTP(w, WithUser(r, u))
	})
}

// RequireSignedIn ensures there is a user in context (set by LoadTokenUser).
// Missing or invalid credentials get a 401; this never conflates with the
// 403 that RequireRole writes for wrong-role users.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			httpapi.Unauthorized(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole ensures the context user holds one of the allowed roles.
// Unauthenticated requests get 401; authenticated users outside the allowed
// set get 403.
func RequireRole(allowed ...models.Role) func(http.Handler) http.Handler {
	set := make(map[models.Role]struct{}, len(allowed))
	for _, role := range allowed {
		set[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				httpapi.Unauthorized(w, "authentication required")
				return
			}
			if _, has := set[u.Role]; !has {
				httpapi.Forbidden(w, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
