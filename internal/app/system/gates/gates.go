// Package gates provides authorization gate functions for HTTP handlers.
// Gates check authentication and authorization, writing the appropriate JSON
// error when checks fail.
//
// # Three-Tier Authorization Pattern
//
//  1. Route-Level Middleware (auth.RequireSignedIn, auth.RequireRole)
//     Applied in routes.go files for coarse-grained access control.
//     When middleware handles role checking, handlers don't need gates.
//
//  2. Handler-Level Gates (this package)
//     Used in handlers that need role checks WITHOUT route-level middleware,
//     or need different role requirements than the route group.
//     Gates write error responses and return user context (role, userID).
//
//  3. Policy Layer (internal/app/policy/*)
//     Used for resource-specific authorization, e.g. taskpolicy.CanManageTask
//     checks whether the user can touch a specific team's task.
//     Policies return booleans; callers write the error response.
//
// Don't use gates in handlers that are behind role-specific middleware.
// If routes.go has RequireRole(models.RoleAdmin), handlers use
// authz.UserCtx(r) to get user context without re-checking.
package gates

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskhub/internal/app/system/authz"
	"taskhub/internal/app/system/httpapi"
	"taskhub/internal/domain/models"
)

// Result contains the result of an authorization gate check.
type Result struct {
	Role   models.Role
	UserID primitive.ObjectID
	OK     bool
}

// RequireAuth ensures a user is authenticated. If not, it writes a 401 and
// returns OK=false.
func RequireAuth(w http.ResponseWriter, r *http.Request) Result {
	role, uid, ok := authz.UserCtx(r)
	if !ok {
		httpapi.Unauthorized(w, "authentication required")
		return Result{OK: false}
	}
	return Result{Role: role, UserID: uid, OK: true}
}

// RequireAdmin ensures the user is authenticated and has the admin role.
// Writes 401 for the unauthenticated, 403 for everyone else.
func RequireAdmin(w http.ResponseWriter, r *http.Request) Result {
	return RequireAnyRole(w, r, models.RoleAdmin)
}

// RequireAdminOrLeader ensures the user is an admin or a team leader.
func RequireAdminOrLeader(w http.ResponseWriter, r *http.Request) Result {
	return RequireAnyRole(w, r, models.RoleAdmin, models.RoleTeamLeader)
}

// RequireAnyRole ensures the user is authenticated and holds one of the
// specified roles.
func RequireAnyRole(w http.ResponseWriter, r *http.Request, allowedRoles ...models.Role) Result {
	role, uid, ok := authz.UserCtx(r)
	if !ok {
		httpapi.Unauthorized(w, "authentication required")
		return Result{OK: false}
	}

	for _, allowed := range allowedRoles {
		if role == allowed {
			return Result{Role: role, UserID: uid, OK: true}
		}
	}

	httpapi.Forbidden(w, "insufficient role")
	return Result{OK: false}
}
