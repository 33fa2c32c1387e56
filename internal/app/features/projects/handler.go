// internal/app/features/projects/handler.go
package projects

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
	"taskhub/internal/app/policy/projectpolicy"
	projectstore "taskhub/internal/app/store/projects"
	taskstore "taskhub/internal/app/store/tasks"
	"taskhub/internal/app/system/gates"
	"taskhub/internal/app/system/httpapi"
	"taskhub/internal/app/system/paging"
	"taskhub/internal/app/system/timeouts"
	"taskhub/internal/app/system/validate"
	"taskhub/internal/domain/models"
)

// Handler serves project CRUD, progress recomputation, and statistics.
type Handler struct {
	Projects *projectstore.Store
	Tasks    *taskstore.Store
	Log      *zap.Logger
}

func NewHandler(projects *projectstore.Store, tasks *taskstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Projects: projects, Tasks: tasks, Log: logger}
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

	scope := projectpolicy.CanListProjects(r)
	if !scope.CanList {
		httpapi.Forbidden(w, "no team to list projects for")
		return
	}

	f := projectstore.ListFilter{
		Status:   query.Get(r, "status"),
		Priority: query.Get(r, "priority"),
		Search:   query.Get(r, "search"),
	}
	if !scope.AllTeams {
		f.TeamID = &scope.TeamID
	} else if s := query.Get(r, "team_id"); s != "" {
		teamID, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			httpapi.BadRequest(w, "invalid team_id")
			return
		}
		f.TeamID = &teamID
	}

	h.list(w, r, f)
}

// HandleListByTeam handles GET /team/{teamID}. Non-admins can only name
// their own team.
func (h *Handler) HandleListByTeam(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}

	scope := projectpolicy.CanListProjects(r)
	if !scope.CanList || (!scope.AllTeams && scope.TeamID != teamID) {
		httpapi.Forbidden(w, "cannot list this team's projects")
		return
	}

	h.list(w, r, projectstore.ListFilter{
		TeamID:   &teamID,
		Status:   query.Get(r, "status"),
		Priority: query.Get(r, "priority"),
		Search:   query.Get(r, "search"),
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, f projectstore.ListFilter) {
	page := paging.Parse(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	projects, total, err := h.Projects.List(ctx, f, page)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	httpapi.OK(w, listResponse{Projects: projects, Meta: paging.BuildMeta(page, total)})
}

// HandleStats handles GET /stats. Returns every project in the caller's
// scope with its task counts, derived progress, and the caller's
// permissions, optionally narrowed by team_id.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}

	scope := projectpolicy.CanListProjects(r)
	if !scope.CanList {
		httpapi.Forbidden(w, "no team to report on")
		return
	}

	f := projectstore.ListFilter{}
	if !scope.AllTeams {
		f.TeamID = &scope.TeamID
	} else if s := query.Get(r, "team_id"); s != "" {
		tid, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			httpapi.BadRequest(w, "invalid team_id")
			return
		}
		f.TeamID = &tid
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	projects, err := h.Projects.ListAll(ctx, f)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}

	entries := make([]statsEntry, 0, len(projects))
	for _, p := range projects {
		counts, err := h.Tasks.CountByStatusForProject(ctx, p.ID)
		if err != nil {
			httpapi.Internal(w, h.Log, err)
			return
		}
		entries = append(entries, statsEntry{
			Project: p,
			Perms:   perms.For(r, p.TeamID),
			Tasks: taskStats{
				StatusCounts: counts,
				Progress:     computeProgress(counts, p.Status),
			},
		})
	}
	httpapi.OK(w, statsResponse{Projects: entries, Total: len(entries)})
}

// HandleCreate handles POST /. Admins anywhere; leaders for their own team.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
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

	teamID, err := primitive.ObjectIDFromHex(req.TeamID)
	if err != nil {
		httpapi.BadRequest(w, "invalid team_id")
		return
	}
	if !projectpolicy.CanCreateProject(r, teamID) {
		httpapi.Forbidden(w, "cannot create projects for this team")
		return
	}

	p := models.Project{
		Name:        req.Name,
		Description: req.Description,
		TeamID:      teamID,
		Status:      req.Status,
		Priority:    req.Priority,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Deadline:    req.Deadline,
		Tags:        req.Tags,
	}
	if req.ProjectManager != "" {
		managerID, err := primitive.ObjectIDFromHex(req.ProjectManager)
		if err != nil {
			httpapi.BadRequest(w, "invalid project_manager")
			return
		}
		p.ProjectManager = &managerID
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Projects.Create(ctx, p)
	if err != nil {
		httpapi.BadRequest(w, err.Error())
		return
	}

	h.Log.Info("project created", zap.String("project_id", created.ID.Hex()), zap.String("team_id", teamID.Hex()))
	httpapi.Created(w, projectResponse{Project: created, Perms: perms.For(r, created.TeamID)})
}

// HandleGet handles GET /{projectID}. The response includes live task counts
// alongside the stored progress value.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}
	id, ok := pathID(w, r, "projectID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	project, err := h.Projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "project")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	if !projectpolicy.CanViewProject(r, project.TeamID) {
		httpapi.Forbidden(w, "cannot view this team's projects")
		return
	}

	counts, err := h.Tasks.CountByStatusForProject(ctx, id)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	httpapi.OK(w, projectDetail{
		Project: *project,
		Perms:   perms.For(r, project.TeamID),
		Tasks:   counts,
	})
}

// HandleUpdate handles PUT /{projectID}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}
	id, ok := pathID(w, r, "projectID")
	if !ok {
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

	project, err := h.Projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "project")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	if !projectpolicy.CanEditProject(r, project.TeamID) {
		httpapi.Forbidden(w, "cannot edit this team's projects")
		return
	}

	upd := projectstore.Update{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Deadline:    req.Deadline,
		Tags:        req.Tags,
	}
	if req.ProjectManager != "" {
		managerID, err := primitive.ObjectIDFromHex(req.ProjectManager)
		if err != nil {
			httpapi.BadRequest(w, "invalid project_manager")
			return
		}
		upd.ProjectManager = &managerID
	}

	if err := h.Projects.Update(ctx, id, upd); err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}

	updated, err := h.Projects.GetByID(ctx, id)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	httpapi.OK(w, projectResponse{Project: *updated, Perms: perms.For(r, updated.TeamID)})
}

// HandleRecomputeProgress handles PUT /{projectID}/recompute-progress:
// recomputes the stored progress from the project's current task counts.
func (h *Handler) HandleRecomputeProgress(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}
	id, ok := pathID(w, r, "projectID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	project, err := h.Projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "project")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	if !projectpolicy.CanEditProject(r, project.TeamID) {
		httpapi.Forbidden(w, "cannot edit this team's projects")
		return
	}

	counts, err := h.Tasks.CountByStatusForProject(ctx, id)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	progress := computeProgress(counts, project.Status)
	if err := h.Projects.SetProgress(ctx, id, progress); err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}

	httpapi.OK(w, progressResponse{Progress: progress, Tasks: counts})
}

// HandleDelete handles DELETE /{projectID}. Admin-only; the project's tasks
// go with it.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireAuth(w, r)
	if !res.OK {
		return
	}
	if !projectpolicy.CanDeleteProject(r) {
		httpapi.Forbidden(w, "only admins can delete projects")
		return
	}
	id, ok := pathID(w, r, "projectID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Projects.Delete(ctx, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "project")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}

	deleted, err := h.Tasks.DeleteByProject(ctx, id)
	if err != nil {
		h.Log.Error("task cascade failed", zap.Error(err), zap.String("project_id", id.Hex()))
	}

	h.Log.Info("project deleted",
		zap.String("project_id", id.Hex()),
		zap.Int64("deleted_tasks", deleted),
		zap.String("by", res.UserID.Hex()))
	httpapi.OK(w, deleteResponse{DeletedTasks: deleted})
}
