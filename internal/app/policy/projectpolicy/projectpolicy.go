// Package projectpolicy provides authorization policies for project
// management.
//
// Authorization rules:
//   - Admins can create, edit, and delete projects in any team
//   - Team leaders can view projects across all teams but create and edit
//     only for their own team
//   - Deletion (and the task cascade it triggers) is reserved for admins
//   - Team members view projects scoped to their own team
package projectpolicy

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskhub/internal/app/policy/perms"
	"taskhub/internal/app/system/authz"
	"taskhub/internal/domain/models"
)

// ListScope represents the scope of projects a user can list.
type ListScope struct {
	CanList  bool
	AllTeams bool
	TeamID   primitive.ObjectID
}

// CanListProjects determines what scope of projects the current user can
// list. Same shape as task listing: admins and leaders see all teams,
// members see their own.
func CanListProjects(r *http.Request) ListScope {
	role, _, ok := authz.UserCtx(r)
	if !ok {
		return ListScope{}
	}

	switch role {
	case models.RoleAdmin, models.RoleTeamLeader:
		return ListScope{CanList: true, AllTeams: true}
	case models.RoleTeamMember:
		teamID := authz.UserTeamID(r)
		if teamID == primitive.NilObjectID {
			return ListScope{}
		}
		return ListScope{CanList: true, TeamID: teamID}
	default:
		return ListScope{}
	}
}

// Filter returns the Mongo filter fragment restricting a project query to
// the scope. Returns nil for all-team scopes.
func (s ListScope) Filter() bson.M {
	if !s.CanList || s.AllTeams {
		return nil
	}
	return bson.M{"team_id": s.TeamID}
}

// CanCreateProject reports whether the current user can create a project for
// the given team.
func CanCreateProject(r *http.Request, teamID primitive.ObjectID) bool {
	return perms.For(r, teamID).CanEdit
}

// CanEditProject reports whether the current user can edit a project owned
// by projectTeamID.
func CanEditProject(r *http.Request, projectTeamID primitive.ObjectID) bool {
	return perms.For(r, projectTeamID).CanEdit
}

// CanDeleteProject reports whether the current user can delete a project.
// Admin-only; project deletion cascades to the project's tasks.
func CanDeleteProject(r *http.Request) bool {
	return authz.IsAdmin(r)
}

// CanViewProject reports whether the current user can view a project owned
// by projectTeamID. Admins and team leaders see every team; members are
// limited to their own.
func CanViewProject(r *http.Request, projectTeamID primitive.ObjectID) bool {
	role, _, ok := authz.UserCtx(r)
	if !ok {
		return false
	}
	if role == models.RoleAdmin || role == models.RoleTeamLeader {
		return true
	}
	return authz.SameTeam(r, projectTeamID)
}
