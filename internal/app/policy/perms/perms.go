// Package perms computes the permission set attached to team-owned resources.
//
// Authorization rules:
//   - Admins can view, edit, and delete everything
//   - Team leaders can edit resources owned by their own team
//   - Deletion is reserved for admins
//   - Task management additionally requires the canManageTasks flag
package perms

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskhub/internal/app/system/authz"
	"taskhub/internal/domain/models"
)

// Set describes what the current user may do with one team-owned resource.
// It is embedded in API responses so clients can hide controls the server
// would reject anyway.
type Set struct {
	IsOwnTeam      bool `json:"is_own_team"`
	CanView        bool `json:"can_view"`
	CanEdit        bool `json:"can_edit"`
	CanDelete      bool `json:"can_delete"`
	CanManageTasks bool `json:"can_manage_tasks"`
}

// For computes the permission set for a resource owned by resourceTeamID.
// An unauthenticated request gets the zero Set.
func For(r *http.Request, resourceTeamID primitive.ObjectID) Set {
	role, _, ok := authz.UserCtx(r)
	if !ok {
		return Set{}
	}

	own := authz.SameTeam(r, resourceTeamID)
	s := Set{
		IsOwnTeam: own,
		CanView:   true,
	}

	switch role {
	case models.RoleAdmin:
		s.CanEdit = true
		s.CanDelete = true
		s.CanManageTasks = true
	case models.RoleTeamLeader:
		s.CanEdit = own
		s.CanManageTasks = own && authz.CanManageTasks(r)
	}

	return s
}
