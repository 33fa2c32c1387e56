// internal/app/features/teams/handler.go
package teams

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"taskhub/internal/app/policy/perms"
	equipmentstore "taskhub/internal/app/store/equipment"
	projectstore "taskhub/internal/app/store/projects"
	taskstore "taskhub/internal/app/store/tasks"
	teamstore "taskhub/internal/app/store/teams"
	userstore "taskhub/internal/app/store/users"
	"taskhub/internal/app/system/gates"
	"taskhub/internal/app/system/httpapi"
	"taskhub/internal/app/system/paging"
	"taskhub/internal/app/system/timeouts"
	"taskhub/internal/app/system/validate"
	"taskhub/internal/domain/models"
)

// Handler serves team management and roster operations.
type Handler struct {
	Teams     *teamstore.Store
	Users     *userstore.Store
	Tasks     *taskstore.Store
	Projects  *projectstore.Store
	Equipment *equipmentstore.Store
	Log       *zap.Logger
}

func NewHandler(teams *teamstore.Store, users *userstore.Store, tasks *taskstore.Store, projects *projectstore.Store, equipment *equipmentstore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Teams:     teams,
		Users:     users,
		Tasks:     tasks,
		Projects:  projects,
		Equipment: equipment,
		Log:       logger,
	}
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, param))
	if err != nil {
		httpapi.BadRequest(w, "invalid "+param)
		return primitive.NilObjectID, false
	}
	return id, true
}

// HandleList handles GET /.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}

	page := paging.Parse(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	teams, total, err := h.Teams.List(ctx, query.Get(r, "search"), page)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	httpapi.OK(w, listResponse{Teams: teams, Meta: paging.BuildMeta(page, total)})
}

// HandleCreate handles POST /. Admin-only.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAdmin(w, r); !res.OK {
		return
	}

	var req createRequest
	if !httpapi.Decode(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		httpapi.BadRequest(w, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Teams.Create(ctx, models.Team{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, teamstore.ErrDuplicateName) {
			httpapi.Conflict(w, "a team with this name already exists")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}

	h.Log.Info("team created", zap.String("team_id", created.ID.Hex()))
	httpapi.Created(w, teamResponse{Team: created, Perms: perms.For(r, created.ID)})
}

// HandleGet handles GET /{teamID}. The response carries the caller's
// permission set for the team.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}
	id, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	team, err := h.Teams.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "team")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	httpapi.OK(w, teamResponse{Team: *team, Perms: perms.For(r, team.ID)})
}

// HandleUpdate handles PUT /{teamID}. Admins, or the team's own leader.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}
	id, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}
	if !perms.For(r, id).CanEdit {
		httpapi.Forbidden(w, "cannot edit this team")
		return
	}

	var req updateRequest
	if !httpapi.Decode(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		httpapi.BadRequest(w, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Teams.Update(ctx, id, req.Name, req.Description); err != nil {
		switch {
		case errors.Is(err, teamstore.ErrDuplicateName):
			httpapi.Conflict(w, "a team with this name already exists")
		case errors.Is(err, mongo.ErrNoDocuments):
			httpapi.NotFound(w, "team")
		default:
			httpapi.Internal(w, h.Log, err)
		}
		return
	}

	team, err := h.Teams.GetByID(ctx, id)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	httpapi.OK(w, teamResponse{Team: *team, Perms: perms.For(r, team.ID)})
}

// HandleDelete handles DELETE /{teamID}. Admin-only. Members are detached
// (not deleted), the team's projects and tasks are removed, and its
// equipment loses the team link.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAdmin(w, r); !res.OK {
		return
	}
	id, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Teams.Delete(ctx, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "team")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}

	var resp deleteResponse
	var err error

	if resp.DetachedUsers, err = h.Users.ClearTeamForMembers(ctx, id); err != nil {
		h.Log.Error("member detach failed", zap.Error(err), zap.String("team_id", id.Hex()))
	}

	projectIDs, err := h.Projects.DeleteByTeam(ctx, id)
	if err != nil {
		h.Log.Error("project cascade failed", zap.Error(err), zap.String("team_id", id.Hex()))
	}
	resp.DeletedProjects = len(projectIDs)

	if resp.DeletedTasks, err = h.Tasks.DeleteByTeam(ctx, id); err != nil {
		h.Log.Error("task cascade failed", zap.Error(err), zap.String("team_id", id.Hex()))
	}
	if resp.ReleasedEquipment, err = h.Equipment.DetachTeam(ctx, id); err != nil {
		h.Log.Error("equipment detach failed", zap.Error(err), zap.String("team_id", id.Hex()))
	}

	h.Log.Info("team deleted",
		zap.String("team_id", id.Hex()),
		zap.Int64("detached_users", resp.DetachedUsers),
		zap.Int64("deleted_tasks", resp.DeletedTasks))
	httpapi.OK(w, resp)
}

// HandleAddMember handles POST /{teamID}/members. Admins, or the team's own
// leader. The user document and the roster are both updated.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}
	if !perms.For(r, teamID).CanEdit {
		httpapi.Forbidden(w, "cannot manage this team's roster")
		return
	}

	var req memberRequest
	if !httpapi.Decode(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		httpapi.BadRequest(w, err.Error())
		return
	}
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		httpapi.BadRequest(w, "invalid user_id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Teams.GetByID(ctx, teamID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "team")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	user, err := h.Users.GetActiveByID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "user")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	if user.TeamID != nil && *user.TeamID != teamID {
		httpapi.Conflict(w, "user already belongs to another team")
		return
	}

	if err := h.Users.SetTeam(ctx, userID, &teamID); err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	if err := h.Teams.AddMember(ctx, teamID, userID, ""); err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	httpapi.NoContent(w)
}

// HandleRemoveMember handles DELETE /{teamID}/members/{userID}.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	if !perms.For(r, teamID).CanEdit {
		httpapi.Forbidden(w, "cannot manage this team's roster")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Teams.RemoveMember(ctx, teamID, userID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "team member")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	if err := h.Users.SetTeam(ctx, userID, nil); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		h.Log.Error("user detach failed", zap.Error(err), zap.String("user_id", userID.Hex()))
	}
	httpapi.NoContent(w)
}

// HandlePromote handles POST /{teamID}/promote/{userID}. Admin-only: makes
// the member the team's leader, both on their user document and in the
// roster label.
func (h *Handler) HandlePromote(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAdmin(w, r); !res.OK {
		return
	}
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	onTeam, err := h.Teams.HasMember(ctx, teamID, userID)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	if !onTeam {
		httpapi.NotFound(w, "team member")
		return
	}

	if err := h.Users.SetRole(ctx, userID, models.RoleTeamLeader); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "user")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	if err := h.Teams.SetMemberLabel(ctx, teamID, userID, models.MemberLabelLeader); err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}

	h.Log.Info("member promoted",
		zap.String("team_id", teamID.Hex()),
		zap.String("user_id", userID.Hex()))
	httpapi.NoContent(w)
}
