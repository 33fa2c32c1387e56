// internal/app/features/tasks/handler.go
package tasks

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
	"taskhub/internal/app/policy/taskpolicy"
	taskstore "taskhub/internal/app/store/tasks"
	userstore "taskhub/internal/app/store/users"
	"taskhub/internal/app/system/gates"
	"taskhub/internal/app/system/httpapi"
	"taskhub/internal/app/system/paging"
	"taskhub/internal/app/system/timeouts"
	"taskhub/internal/app/system/validate"
	"taskhub/internal/domain/models"
)

// Handler serves task CRUD, status moves, and assignment.
type Handler struct {
	Tasks *taskstore.Store
	Users *userstore.Store
	Log   *zap.Logger
}

func NewHandler(tasks *taskstore.Store, users *userstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Tasks: tasks, Users: users, Log: logger}
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, param))
	if err != nil {
		httpapi.BadRequest(w, "invalid "+param)
		return primitive.NilObjectID, false
	}
	return id, true
}

// HandleList handles GET /. Admins see all teams; leaders and members see
// their own team; plain users see nothing.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}

	scope := taskpolicy.CanListTasks(r)
	if !scope.CanList {
		httpapi.Forbidden(w, "no team to list tasks for")
		return
	}

	f := taskstore.ListFilter{
		Status:   query.Get(r, "status"),
		Priority: query.Get(r, "priority"),
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
	if s := query.Get(r, "assigned_to"); s != "" {
		userID, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			httpapi.BadRequest(w, "invalid assigned_to")
			return
		}
		f.AssignedTo = &userID
	}
	if s := query.Get(r, "project_id"); s != "" {
		projectID, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			httpapi.BadRequest(w, "invalid project_id")
			return
		}
		f.ProjectID = &projectID
	}
	f.Unassigned = query.Get(r, "unassigned") == "true"

	h.list(w, r, f)
}

// HandleListByTeam handles GET /team/{teamID}. Non-admins can only name
// their own team.
func (h *Handler) HandleListByTeam(w http.ResponseWriter, r *http.Request) {
	h.listByTeam(w, r, false)
}

// HandleListTeamUnassigned handles GET /team/{teamID}/unassigned.
func (h *Handler) HandleListTeamUnassigned(w http.ResponseWriter, r *http.Request) {
	h.listByTeam(w, r, true)
}

func (h *Handler) listByTeam(w http.ResponseWriter, r *http.Request, unassigned bool) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}

	scope := taskpolicy.CanListTasks(r)
	if !scope.CanList || (!scope.AllTeams && scope.TeamID != teamID) {
		httpapi.Forbidden(w, "cannot list this team's tasks")
		return
	}

	h.list(w, r, taskstore.ListFilter{
		TeamID:     &teamID,
		Status:     query.Get(r, "status"),
		Priority:   query.Get(r, "priority"),
		Unassigned: unassigned,
	})
}

// HandleListByProject handles GET /project/{projectID}. Non-admin results
// stay constrained to the caller's team even if the project belongs
// elsewhere.
func (h *Handler) HandleListByProject(w http.ResponseWriter, r *http.Request) {
	h.listByProject(w, r, false)
}

// HandleListProjectUnassigned handles GET /project/{projectID}/unassigned.
func (h *Handler) HandleListProjectUnassigned(w http.ResponseWriter, r *http.Request) {
	h.listByProject(w, r, true)
}

func (h *Handler) listByProject(w http.ResponseWriter, r *http.Request, unassigned bool) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}
	projectID, ok := pathID(w, r, "projectID")
	if !ok {
		return
	}

	scope := taskpolicy.CanListTasks(r)
	if !scope.CanList {
		httpapi.Forbidden(w, "no team to list tasks for")
		return
	}

	f := taskstore.ListFilter{
		ProjectID:  &projectID,
		Status:     query.Get(r, "status"),
		Priority:   query.Get(r, "priority"),
		Unassigned: unassigned,
	}
	if !scope.AllTeams {
		f.TeamID = &scope.TeamID
	}
	h.list(w, r, f)
}

// HandleListByUser handles GET /user/{userID}. Callers always see their own
// assignments; anyone else's are scoped by team visibility.
func (h *Handler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireAuth(w, r)
	if !res.OK {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	f := taskstore.ListFilter{
		AssignedTo: &userID,
		Status:     query.Get(r, "status"),
		Priority:   query.Get(r, "priority"),
	}
	if userID != res.UserID {
		scope := taskpolicy.CanListTasks(r)
		if !scope.CanList {
			httpapi.Forbidden(w, "cannot list another user's tasks")
			return
		}
		if !scope.AllTeams {
			f.TeamID = &scope.TeamID
		}
	}
	h.list(w, r, f)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, f taskstore.ListFilter) {
	page := paging.Parse(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	tasks, total, err := h.Tasks.List(ctx, f, page)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	httpapi.OK(w, listResponse{Tasks: tasks, Meta: paging.BuildMeta(page, total)})
}

// HandleCreate handles POST /. Admins anywhere; leaders with the
// canManageTasks flag in their own team.
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
	if !taskpolicy.CanManageTask(r, teamID) {
		httpapi.Forbidden(w, "cannot manage tasks for this team")
		return
	}

	t := models.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		TeamID:      teamID,
		DueDate:     req.DueDate,
	}
	if req.ProjectID != "" {
		projectID, err := primitive.ObjectIDFromHex(req.ProjectID)
		if err != nil {
			httpapi.BadRequest(w, "invalid project_id")
			return
		}
		t.ProjectID = &projectID
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if req.AssignedTo != "" {
		userID, err := primitive.ObjectIDFromHex(req.AssignedTo)
		if err != nil {
			httpapi.BadRequest(w, "invalid assigned_to")
			return
		}
		if ok := h.assigneeOnTeam(ctx, w, userID, teamID); !ok {
			return
		}
		t.AssignedTo = &userID
	}

	created, err := h.Tasks.Create(ctx, t)
	if err != nil {
		httpapi.BadRequest(w, err.Error())
		return
	}

	h.Log.Info("task created", zap.String("task_id", created.ID.Hex()), zap.String("team_id", teamID.Hex()))
	httpapi.Created(w, taskResponse{Task: created, Perms: perms.For(r, created.TeamID)})
}

// HandleGet handles GET /{taskID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}
	id, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	task, err := h.Tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "task")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	if !taskpolicy.CanViewTask(r, task.TeamID) {
		httpapi.Forbidden(w, "cannot view this team's tasks")
		return
	}
	httpapi.OK(w, taskResponse{Task: *task, Perms: perms.For(r, task.TeamID)})
}

// HandleUpdate handles PUT /{taskID} for the editable fields. Status moves
// through HandleUpdateStatus.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}
	id, ok := pathID(w, r, "taskID")
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

	task, err := h.Tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "task")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	if !taskpolicy.CanManageTask(r, task.TeamID) {
		httpapi.Forbidden(w, "cannot manage tasks for this team")
		return
	}

	upd := taskstore.Update{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	}
	if req.ProjectID != "" {
		projectID, err := primitive.ObjectIDFromHex(req.ProjectID)
		if err != nil {
			httpapi.BadRequest(w, "invalid project_id")
			return
		}
		upd.ProjectID = &projectID
	}

	if err := h.Tasks.Update(ctx, id, upd); err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}

	updated, err := h.Tasks.GetByID(ctx, id)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	httpapi.OK(w, taskResponse{Task: *updated, Perms: perms.For(r, updated.TeamID)})
}

// HandleUpdateStatus handles PUT /{taskID}/status. Assignees can move their
// own tasks even without manage rights.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}
	id, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}

	var req statusRequest
	if !httpapi.Decode(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		httpapi.BadRequest(w, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	task, err := h.Tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "task")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	if !taskpolicy.CanUpdateStatus(r, task) {
		httpapi.Forbidden(w, "cannot update this task's status")
		return
	}

	if err := h.Tasks.UpdateStatus(ctx, id, req.Status); err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}

	updated, err := h.Tasks.GetByID(ctx, id)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	httpapi.OK(w, taskResponse{Task: *updated, Perms: perms.For(r, updated.TeamID)})
}

// HandleAssign handles POST /assign/{taskID}/to/{userID}. The assignee must
// be an active member of the task's team.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}
	taskID, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	task, err := h.Tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "task")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	if !taskpolicy.CanManageTask(r, task.TeamID) {
		httpapi.Forbidden(w, "cannot manage tasks for this team")
		return
	}
	if ok := h.assigneeOnTeam(ctx, w, userID, task.TeamID); !ok {
		return
	}

	if err := h.Tasks.Assign(ctx, taskID, userID); err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}

	h.Log.Info("task assigned",
		zap.String("task_id", taskID.Hex()),
		zap.String("user_id", userID.Hex()))
	httpapi.NoContent(w)
}

// HandleUnassign handles DELETE /{taskID}/assign.
func (h *Handler) HandleUnassign(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}
	taskID, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	task, err := h.Tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "task")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	if !taskpolicy.CanManageTask(r, task.TeamID) {
		httpapi.Forbidden(w, "cannot manage tasks for this team")
		return
	}

	if err := h.Tasks.Unassign(ctx, taskID); err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	httpapi.NoContent(w)
}

// HandleDelete handles DELETE /{taskID}. Admin-only.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}
	if !taskpolicy.CanDeleteTask(r) {
		httpapi.Forbidden(w, "only admins can delete tasks")
		return
	}
	id, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "task")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}

	h.Log.Info("task deleted", zap.String("task_id", id.Hex()))
	httpapi.NoContent(w)
}

// HandleMine handles GET /mine: the caller's own open assignments.
func (h *Handler) HandleMine(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireAuth(w, r)
	if !res.OK {
		return
	}

	// Assignments are always the caller's to see, so no team scope applies.
	f := taskstore.ListFilter{
		AssignedTo: &res.UserID,
		Status:     query.Get(r, "status"),
	}

	page := paging.Parse(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	tasks, total, err := h.Tasks.List(ctx, f, page)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	httpapi.OK(w, listResponse{Tasks: tasks, Meta: paging.BuildMeta(page, total)})
}

// assigneeOnTeam verifies the proposed assignee is an active user on the
// task's team, writing the error response when not.
func (h *Handler) assigneeOnTeam(ctx context.Context, w http.ResponseWriter, userID, teamID primitive.ObjectID) bool {
	user, err := h.Users.GetActiveByID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "assignee")
			return false
		}
		httpapi.Internal(w, h.Log, err)
		return false
	}
	if user.TeamID == nil || *user.TeamID != teamID {
		httpapi.BadRequest(w, "assignee is not on the task's team")
		return false
	}
	return true
}
