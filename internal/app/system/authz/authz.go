// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskhub/internal/app/system/auth"
	"taskhub/internal/domain/models"
)

// UserCtx returns the user's role, Mongo ObjectID, and a found flag.
// If no user is present in context it returns RoleUser, NilObjectID, false,
// so callers can trust that ok=true means a valid, authenticated user.
func UserCtx(r *http.Request) (role models.Role, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return models.RoleUser, primitive.NilObjectID, false
	}
	return user.Role, user.ID, true
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, ok := UserCtx(r)
	return ok && role == models.RoleAdmin
}

// IsTeamLeader reports whether the current request's user is a team leader.
func IsTeamLeader(r *http.Request) bool {
	role, _, ok := UserCtx(r)
	return ok && role == models.RoleTeamLeader
}

// IsTeamMember reports whether the current request's user is a team member.
func IsTeamMember(r *http.Request) bool {
	role, _, ok := UserCtx(r)
	return ok && role == models.RoleTeamMember
}

// UserTeamID returns the current user's team ID as an ObjectID.
// Returns NilObjectID if the user is not logged in or has no team.
func UserTeamID(r *http.Request) primitive.ObjectID {
	user, ok := auth.CurrentUser(r)
	if !ok || user.TeamID == nil {
		return primitive.NilObjectID
	}
	return *user.TeamID
}

// SameTeam reports whether the current user belongs to the given team.
// A nil/zero team never matches.
func SameTeam(r *http.Request, teamID primitive.ObjectID) bool {
	if teamID.IsZero() {
		return false
	}
	return UserTeamID(r) == teamID
}

// CanManageTasks reports whether the current user can create/edit/delete
// tasks for their own team. Admins always can. Team leaders can only if
// they hold the canManageTasks permission flag.
func CanManageTasks(r *http.Request) bool {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return false
	}

	if user.Role == models.RoleAdmin {
		return true
	}

	if user.Role == models.RoleTeamLeader {
		return user.CanManageTasks
	}

	return false
}
