// Package taskpolicy provides authorization policies for task management.
//
// Authorization rules:
//   - Admins can create, edit, assign, and delete tasks in any team
//   - Team leaders can view tasks across all teams; with the canManageTasks
//     flag they can create, edit, and assign tasks within their own team
//   - Team members see their own team and can update the status of tasks
//     assigned to them
//   - Deletion is reserved for admins
package taskpolicy

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskhub/internal/app/policy/perms"
	"taskhub/internal/app/system/authz"
	"taskhub/internal/domain/models"
)

// ListScope represents the scope of tasks a user can list.
type ListScope struct {
	// CanList indicates whether the user can list tasks at all.
	CanList bool
	// AllTeams indicates whether the user can see tasks from all teams.
	AllTeams bool
	// TeamID is the team the user is restricted to when AllTeams is false.
	TeamID primitive.ObjectID
}

// CanListTasks determines what scope of tasks the current user can list.
//
// Authorization:
//   - Admin / team leader: all teams (leader writes stay own-team gated)
//   - Team member: their own team
//   - Plain users and the unauthenticated: nothing
func CanListTasks(r *http.Request) ListScope {
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

// Filter returns the Mongo filter fragment restricting a task query to the
// scope. Returns nil for all-team scopes.
func (s ListScope) Filter() bson.M {
	if !s.CanList || s.AllTeams {
		return nil
	}
	return bson.M{"team_id": s.TeamID}
}

// CanManageTask reports whether the current user can create, edit, or assign
// a task owned by taskTeamID.
func CanManageTask(r *http.Request, taskTeamID primitive.ObjectID) bool {
	return perms.For(r, taskTeamID).CanManageTasks
}

// CanDeleteTask reports whether the current user can delete a task.
// Deletion is admin-only regardless of team.
func CanDeleteTask(r *http.Request) bool {
	return authz.IsAdmin(r)
}

// CanUpdateStatus reports whether the current user can change the status of
// the given task. Assignees can move their own tasks; anyone who can manage
// the task can too.
func CanUpdateStatus(r *http.Request, task *models.Task) bool {
	_, userID, ok := authz.UserCtx(r)
	if !ok {
		return false
	}
	if task.AssignedTo != nil && *task.AssignedTo == userID {
		return true
	}
	return CanManageTask(r, task.TeamID)
}

// CanViewTask reports whether the current user can view a task owned by
// taskTeamID. Admins and team leaders see every team; members are limited to
// their own.
func CanViewTask(r *http.Request, taskTeamID primitive.ObjectID) bool {
	role, _, ok := authz.UserCtx(r)
	if !ok {
		return false
	}
	if role == models.RoleAdmin || role == models.RoleTeamLeader {
		return true
	}
	return authz.SameTeam(r, taskTeamID)
}
