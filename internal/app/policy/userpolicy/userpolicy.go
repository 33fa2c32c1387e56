// Package userpolicy provides authorization policies for user management.
//
// Authorization rules:
//   - Admins can view, edit, and delete any user and drive the soft-delete
//     lifecycle (restore, permanent delete, purge)
//   - Team leaders can edit users on their own team (profile fields only;
//     role changes stay admin-only)
//   - Users can always view and edit their own profile, and may soft-delete
//     their own account
//   - Everyone authenticated can view user listings
package userpolicy

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskhub/internal/app/system/authz"
	"taskhub/internal/domain/models"
)

// CanViewUsers reports whether the current user can list users at all.
// Any authenticated user can; the handler decides how much detail to show.
func CanViewUsers(r *http.Request) bool {
	_, _, ok := authz.UserCtx(r)
	return ok
}

// CanEditUser reports whether the current user can edit the given user's
// profile.
func CanEditUser(r *http.Request, target *models.User) bool {
	role, actorID, ok := authz.UserCtx(r)
	if !ok {
		return false
	}
	if actorID == target.ID {
		return true
	}
	switch role {
	case models.RoleAdmin:
		return true
	case models.RoleTeamLeader:
		return target.TeamID != nil && authz.SameTeam(r, *target.TeamID)
	default:
		return false
	}
}

// CanChangeRole reports whether the current user can change another user's
// role or the canManageTasks flag. Admin-only.
func CanChangeRole(r *http.Request) bool {
	return authz.IsAdmin(r)
}

// CanDeleteUser reports whether the current user can soft-delete the given
// user. Admins can delete any account; everyone else only their own.
func CanDeleteUser(r *http.Request, targetID primitive.ObjectID) bool {
	role, actorID, ok := authz.UserCtx(r)
	if !ok {
		return false
	}
	return role == models.RoleAdmin || actorID == targetID
}

// CanManageLifecycle reports whether the current user can restore,
// permanently delete, or purge soft-deleted users. Admin-only.
func CanManageLifecycle(r *http.Request) bool {
	return authz.IsAdmin(r)
}
