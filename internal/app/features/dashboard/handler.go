// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	equipmentstore "taskhub/internal/app/store/equipment"
	projectstore "taskhub/internal/app/store/projects"
	taskstore "taskhub/internal/app/store/tasks"
	userstore "taskhub/internal/app/store/users"
	"taskhub/internal/app/system/authz"
	"taskhub/internal/app/system/gates"
	"taskhub/internal/app/system/httpapi"
	"taskhub/internal/app/system/timeouts"
	"taskhub/internal/domain/models"
)

// Handler serves the dashboard overview. The overview is a single round-trip
// summary of everything the caller is allowed to see: admins get the global
// picture plus user counts, team roles get their own team's numbers.
type Handler struct {
	Users     *userstore.Store
	Tasks     *taskstore.Store
	Projects  *projectstore.Store
	Equipment *equipmentstore.Store
	Log       *zap.Logger
}

func NewHandler(users *userstore.Store, tasks *taskstore.Store, projects *projectstore.Store, equipment *equipmentstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Users: users, Tasks: tasks, Projects: projects, Equipment: equipment, Log: logger}
}

type overview struct {
	Role      models.Role                 `json:"role"`
	Tasks     taskstore.StatusCounts      `json:"tasks"`
	MyTasks   *taskstore.StatusCounts     `json:"my_tasks,omitempty"`
	Projects  projectstore.Stats          `json:"projects"`
	Equipment equipmentstore.StatusCounts `json:"equipment"`
	Users     map[models.Role]int64       `json:"users,omitempty"`
}

// HandleOverview handles GET /. Admins see global counts and the per-role
// user breakdown. Team leaders and members see their team only, plus their
// personal task counts. Plain users only get their personal task counts.
func (h *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireAuth(w, r)
	if !res.OK {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	out := overview{Role: res.Role}

	var teamID *primitive.ObjectID
	switch res.Role {
	case models.RoleAdmin:
		// Global scope.
	case models.RoleTeamLeader, models.RoleTeamMember:
		if tid := authz.UserTeamID(r); tid != primitive.NilObjectID {
			teamID = &tid
		}
	default:
		// Plain users have no team scope; they get their own tasks only.
		mine, err := h.myTasks(ctx, res.UserID)
		if err != nil {
			httpapi.Internal(w, h.Log, err)
			return
		}
		out.MyTasks = mine
		httpapi.OK(w, out)
		return
	}

	tasks, err := h.Tasks.CountByStatus(ctx, teamID)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	out.Tasks = tasks

	projects, err := h.Projects.Stats(ctx, teamID)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	out.Projects = projects

	equipment, err := h.Equipment.CountByStatus(ctx, teamID)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	out.Equipment = equipment

	if res.Role == models.RoleAdmin {
		users, err := h.Users.CountByRole(ctx)
		if err != nil {
			httpapi.Internal(w, h.Log, err)
			return
		}
		out.Users = users
	} else {
		mine, err := h.myTasks(ctx, res.UserID)
		if err != nil {
			httpapi.Internal(w, h.Log, err)
			return
		}
		out.MyTasks = mine
	}

	httpapi.OK(w, out)
}

func (h *Handler) myTasks(ctx context.Context, userID primitive.ObjectID) (*taskstore.StatusCounts, error) {
	counts, err := h.Tasks.CountByAssignee(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &counts, nil
}
