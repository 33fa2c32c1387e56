// internal/app/features/users/handler.go
package users

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/app/policy/userpolicy"
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

// Handler serves user management, including the soft-delete lifecycle.
type Handler struct {
	Users     *userstore.Store
	Teams     *teamstore.Store
	Tasks     *taskstore.Store
	Projects  *projectstore.Store
	Equipment *equipmentstore.Store
	Log       *zap.Logger
}

func NewHandler(users *userstore.Store, teams *teamstore.Store, tasks *taskstore.Store, projects *projectstore.Store, equipment *equipmentstore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Users:     users,
		Teams:     teams,
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

// HandleList handles GET /. Any authenticated user; only active accounts are
// visible here. Deleted accounts live under /deleted and /all.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !userpolicy.CanViewUsers(r) {
		httpapi.Unauthorized(w, "authentication required")
		return
	}

	active := false
	f, ok := h.listFilter(w, r)
	if !ok {
		return
	}
	f.Deleted = &active
	h.list(w, r, f)
}

// HandleListDeleted handles GET /deleted. Admin-only view of soft-deleted
// accounts awaiting restore or purge.
func (h *Handler) HandleListDeleted(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAdmin(w, r); !res.OK {
		return
	}

	deleted := true
	f, ok := h.listFilter(w, r)
	if !ok {
		return
	}
	f.Deleted = &deleted
	h.list(w, r, f)
}

// HandleListAll handles GET /all. Admin-only; active and deleted together,
// each row carrying its is_deleted flag.
func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAdmin(w, r); !res.OK {
		return
	}

	f, ok := h.listFilter(w, r)
	if !ok {
		return
	}
	h.list(w, r, f)
}

// listFilter parses the shared listing query parameters. Returns false after
// writing a 400 when a parameter is malformed.
func (h *Handler) listFilter(w http.ResponseWriter, r *http.Request) (userstore.ListFilter, bool) {
	f := userstore.ListFilter{Search: query.Get(r, "search")}

	if role := query.Get(r, "role"); role != "" {
		f.Role = models.Role(role)
		if !f.Role.Valid() {
			httpapi.BadRequest(w, "unknown role")
			return f, false
		}
	}
	if s := query.Get(r, "team_id"); s != "" {
		teamID, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			httpapi.BadRequest(w, "invalid team_id")
			return f, false
		}
		f.TeamID = &teamID
	}
	return f, true
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, f userstore.ListFilter) {
	page := paging.Parse(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users, total, err := h.Users.List(ctx, f, page)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	httpapi.OK(w, listResponse{Users: users, Meta: paging.BuildMeta(page, total)})
}

// HandleCreate handles POST /. Admin-only; unlike registration this can set
// role and team up front.
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

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}

	u := models.User{
		FullName:     req.FullName,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         models.Role(req.Role),
	}
	if req.TeamID != "" {
		teamID, err := primitive.ObjectIDFromHex(req.TeamID)
		if err != nil {
			httpapi.BadRequest(w, "invalid team_id")
			return
		}
		u.TeamID = &teamID
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Users.Create(ctx, u)
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			httpapi.Conflict(w, "an account with this email already exists")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}

	if created.TeamID != nil {
		if err := h.Teams.AddMember(ctx, *created.TeamID, created.ID, ""); err != nil {
			h.Log.Warn("roster add failed", zap.Error(err), zap.String("user_id", created.ID.Hex()))
		}
	}

	h.Log.Info("user created", zap.String("user_id", created.ID.Hex()), zap.String("role", created.Role.String()))
	httpapi.Created(w, created)
}

// HandleGet handles GET /{userID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.Users.GetActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "user")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	httpapi.OK(w, user)
}

// HandleUpdate handles PUT /{userID} for profile fields. Self, admin, or the
// target's team leader.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}
	id, ok := pathID(w, r, "userID")
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

	target, err := h.Users.GetActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "user")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	if !userpolicy.CanEditUser(r, target) {
		httpapi.Forbidden(w, "cannot edit this user")
		return
	}

	err = h.Users.UpdateProfile(ctx, id, userstore.ProfileUpdate{
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			httpapi.Conflict(w, "an account with this email already exists")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}

	updated, err := h.Users.GetActiveByID(ctx, id)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	httpapi.OK(w, updated)
}

// HandleSetRole handles PUT /{userID}/role. Admin-only. Demoting a leader
// also clears their canManageTasks flag at the store level.
func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	if !userpolicy.CanChangeRole(r) {
		h.forbidOr401(w, r, "only admins can change roles")
		return
	}
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	var req roleRequest
	if !httpapi.Decode(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		httpapi.BadRequest(w, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Users.SetRole(ctx, id, models.Role(req.Role)); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "user")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}

	h.Log.Info("role changed", zap.String("user_id", id.Hex()), zap.String("role", req.Role))
	httpapi.NoContent(w)
}

// HandleSetPermissions handles PUT /{userID}/permissions. Admin-only toggle
// of a leader's canManageTasks flag.
func (h *Handler) HandleSetPermissions(w http.ResponseWriter, r *http.Request) {
	if !userpolicy.CanChangeRole(r) {
		h.forbidOr401(w, r, "only admins can change permissions")
		return
	}
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	var req permissionsRequest
	if !httpapi.Decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Users.SetCanManageTasks(ctx, id, req.CanManageTasks); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Covers missing users and non-leaders alike.
			httpapi.BadRequest(w, "user is not an active team leader")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	httpapi.NoContent(w)
}

// HandleSetTeam handles PUT /{userID}/team. Admin-only. An empty team_id
// removes the user from their team; a set one moves them, updating both
// rosters.
func (h *Handler) HandleSetTeam(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAdmin(w, r); !res.OK {
		return
	}
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	var req teamRequest
	if !httpapi.Decode(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		httpapi.BadRequest(w, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Users.GetActiveByID(ctx, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "user")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}

	var teamID *primitive.ObjectID
	if req.TeamID != "" {
		tid, err := primitive.ObjectIDFromHex(req.TeamID)
		if err != nil {
			httpapi.BadRequest(w, "invalid team_id")
			return
		}
		if _, err := h.Teams.GetByID(ctx, tid); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				httpapi.NotFound(w, "team")
				return
			}
			httpapi.Internal(w, h.Log, err)
			return
		}
		teamID = &tid
	}

	// Leave every old roster first, then the user document, then the new roster.
	if _, err := h.Teams.RemoveUserFromAllTeams(ctx, id); err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	if err := h.Users.SetTeam(ctx, id, teamID); err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	if teamID != nil {
		if err := h.Teams.AddMember(ctx, *teamID, id, ""); err != nil {
			httpapi.Internal(w, h.Log, err)
			return
		}
	}
	httpapi.NoContent(w)
}

// HandleSoftDelete handles DELETE /{userID}. Admins can delete anyone;
// other users only themselves. The account is detached from its team, its
// task and equipment assignments are released, and the document is kept for
// a possible restore.
func (h *Handler) HandleSoftDelete(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireAuth(w, r)
	if !res.OK {
		return
	}
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	if !userpolicy.CanDeleteUser(r, id) {
		httpapi.Forbidden(w, "cannot delete another user's account")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Users.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "user")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	h.releaseUserRefs(ctx, id)

	h.Log.Info("user soft-deleted", zap.String("user_id", id.Hex()))
	httpapi.NoContent(w)
}

// HandleRestore handles POST /{userID}/restore. Restores the account but not
// its old team membership or assignments.
func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	if !userpolicy.CanManageLifecycle(r) {
		h.forbidOr401(w, r, "only admins can restore users")
		return
	}
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Users.Restore(ctx, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "deleted user")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}

	h.Log.Info("user restored", zap.String("user_id", id.Hex()))
	httpapi.NoContent(w)
}

// HandlePermanentDelete handles DELETE /{userID}/permanent. Removes the
// document outright, soft-deleted or not.
func (h *Handler) HandlePermanentDelete(w http.ResponseWriter, r *http.Request) {
	if !userpolicy.CanManageLifecycle(r) {
		h.forbidOr401(w, r, "only admins can permanently delete users")
		return
	}
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Users.PermanentDelete(ctx, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "user")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	h.releaseUserRefs(ctx, id)

	h.Log.Info("user permanently deleted", zap.String("user_id", id.Hex()))
	httpapi.NoContent(w)
}

// HandleBulkRestore handles POST /bulk-restore. Per-ID failures are reported
// rather than aborting the batch.
func (h *Handler) HandleBulkRestore(w http.ResponseWriter, r *http.Request) {
	if !userpolicy.CanManageLifecycle(r) {
		h.forbidOr401(w, r, "only admins can restore users")
		return
	}

	ids, ok := h.decodeBulk(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	result := h.Users.BulkRestore(ctx, ids)
	httpapi.OK(w, bulkResponse{
		Requested: result.Requested,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
	})
}

// HandleBulkPermanentDelete handles POST /bulk-permanent-delete.
func (h *Handler) HandleBulkPermanentDelete(w http.ResponseWriter, r *http.Request) {
	if !userpolicy.CanManageLifecycle(r) {
		h.forbidOr401(w, r, "only admins can permanently delete users")
		return
	}

	ids, ok := h.decodeBulk(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	result, removed := h.Users.BulkPermanentDelete(ctx, ids)
	h.releaseManyUserRefs(ctx, removed)

	httpapi.OK(w, bulkResponse{
		Requested: result.Requested,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
	})
}

// HandlePurge handles DELETE /purge. Removes every soft-deleted account and
// scrubs any references that still point at them.
func (h *Handler) HandlePurge(w http.ResponseWriter, r *http.Request) {
	if !userpolicy.CanManageLifecycle(r) {
		h.forbidOr401(w, r, "only admins can purge users")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	removed, err := h.Users.Purge(ctx)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	h.releaseManyUserRefs(ctx, removed)

	h.Log.Info("users purged", zap.Int("count", len(removed)))
	httpapi.OK(w, purgeResponse{Purged: len(removed)})
}

func (h *Handler) decodeBulk(w http.ResponseWriter, r *http.Request) ([]primitive.ObjectID, bool) {
	var req bulkRequest
	if !httpapi.Decode(w, r, &req) {
		return nil, false
	}
	if err := validate.Struct(req); err != nil {
		httpapi.BadRequest(w, err.Error())
		return nil, false
	}

	ids := make([]primitive.ObjectID, 0, len(req.IDs))
	for _, s := range req.IDs {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			httpapi.BadRequest(w, "invalid id: "+s)
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// releaseUserRefs scrubs references to a single removed or deactivated user.
// Failures are logged, not returned; the user operation itself already
// succeeded.
func (h *Handler) releaseUserRefs(ctx context.Context, id primitive.ObjectID) {
	if _, err := h.Teams.RemoveUserFromAllTeams(ctx, id); err != nil {
		h.Log.Error("roster cleanup failed", zap.Error(err), zap.String("user_id", id.Hex()))
	}
	if _, err := h.Tasks.ClearAssignee(ctx, id); err != nil {
		h.Log.Error("task cleanup failed", zap.Error(err), zap.String("user_id", id.Hex()))
	}
	if _, err := h.Equipment.ClearAssignee(ctx, id); err != nil {
		h.Log.Error("equipment cleanup failed", zap.Error(err), zap.String("user_id", id.Hex()))
	}
	if _, err := h.Projects.ClearManager(ctx, id); err != nil {
		h.Log.Error("project manager cleanup failed", zap.Error(err), zap.String("user_id", id.Hex()))
	}
}

func (h *Handler) releaseManyUserRefs(ctx context.Context, ids []primitive.ObjectID) {
	if len(ids) == 0 {
		return
	}
	for _, id := range ids {
		if _, err := h.Teams.RemoveUserFromAllTeams(ctx, id); err != nil {
			h.Log.Error("roster cleanup failed", zap.Error(err), zap.String("user_id", id.Hex()))
		}
		if _, err := h.Projects.ClearManager(ctx, id); err != nil {
			h.Log.Error("project manager cleanup failed", zap.Error(err), zap.String("user_id", id.Hex()))
		}
	}
	if _, err := h.Tasks.ClearAssignees(ctx, ids); err != nil {
		h.Log.Error("task cleanup failed", zap.Error(err))
	}
	if _, err := h.Equipment.ClearAssignees(ctx, ids); err != nil {
		h.Log.Error("equipment cleanup failed", zap.Error(err))
	}
}

// forbidOr401 writes 401 for anonymous callers and 403 for authenticated
// callers who lack the required role.
func (h *Handler) forbidOr401(w http.ResponseWriter, r *http.Request, msg string) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}
	httpapi.Forbidden(w, msg)
}
