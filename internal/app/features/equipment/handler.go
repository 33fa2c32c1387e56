// internal/app/features/equipment/handler.go
package equipment

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
	userstore "taskhub/internal/app/store/users"
	"taskhub/internal/app/system/authz"
	"taskhub/internal/app/system/gates"
	"taskhub/internal/app/system/httpapi"
	"taskhub/internal/app/system/paging"
	"taskhub/internal/app/system/timeouts"
	"taskhub/internal/app/system/validate"
	"taskhub/internal/domain/models"
)

// Handler serves the equipment inventory: CRUD plus the assignment
// lifecycle.
type Handler struct {
	Equipment *equipmentstore.Store
	Users     *userstore.Store
	Log       *zap.Logger
}

func NewHandler(equipment *equipmentstore.Store, users *userstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Equipment: equipment, Users: users, Log: logger}
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, param))
	if err != nil {
		httpapi.BadRequest(w, "invalid "+param)
		return primitive.NilObjectID, false
	}
	return id, true
}

// canManage reports whether the caller may assign or release the item.
// Admins always can; a team leader can when the item belongs to their team.
// Items with no team are admin-managed only.
func canManage(r *http.Request, item *models.Equipment) bool {
	if authz.IsAdmin(r) {
		return true
	}
	if item.TeamID == nil {
		return false
	}
	return perms.For(r, *item.TeamID).CanEdit
}

// HandleList handles GET /. Any authenticated user can browse the inventory.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}

	f := equipmentstore.ListFilter{
		Status: query.Get(r, "status"),
		Type:   query.Get(r, "type"),
	}
	if s := query.Get(r, "team_id"); s != "" {
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

	page := paging.Parse(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	items, total, err := h.Equipment.List(ctx, f, page)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	httpapi.OK(w, listResponse{Equipment: items, Meta: paging.BuildMeta(page, total)})
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

	item := models.Equipment{
		Name:         req.Name,
		Type:         req.Type,
		SerialNumber: req.SerialNumber,
		Status:       req.Status,
		PurchaseDate: req.PurchaseDate,
	}
	if req.TeamID != "" {
		teamID, err := primitive.ObjectIDFromHex(req.TeamID)
		if err != nil {
			httpapi.BadRequest(w, "invalid team_id")
			return
		}
		item.TeamID = &teamID
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Equipment.Create(ctx, item)
	if err != nil {
		if errors.Is(err, equipmentstore.ErrDuplicateSerial) {
			httpapi.Conflict(w, err.Error())
			return
		}
		httpapi.BadRequest(w, err.Error())
		return
	}

	h.Log.Info("equipment created",
		zap.String("equipment_id", created.ID.Hex()),
		zap.String("serial", created.SerialNumber))
	httpapi.Created(w, created)
}

// HandleGet handles GET /{equipmentID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}
	id, ok := pathID(w, r, "equipmentID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	item, err := h.Equipment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "equipment")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	httpapi.OK(w, item)
}

// HandleUpdate handles PUT /{equipmentID}. Admin-only.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAdmin(w, r); !res.OK {
		return
	}
	id, ok := pathID(w, r, "equipmentID")
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

	upd := equipmentstore.Update{
		Name:         req.Name,
		Type:         req.Type,
		Status:       req.Status,
		SerialNumber: req.SerialNumber,
		PurchaseDate: req.PurchaseDate,
	}
	if req.TeamID != "" {
		teamID, err := primitive.ObjectIDFromHex(req.TeamID)
		if err != nil {
			httpapi.BadRequest(w, "invalid team_id")
			return
		}
		upd.TeamID = &teamID
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Equipment.Update(ctx, id, upd); err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			httpapi.NotFound(w, "equipment")
		case errors.Is(err, equipmentstore.ErrDuplicateSerial):
			httpapi.Conflict(w, err.Error())
		default:
			httpapi.BadRequest(w, err.Error())
		}
		return
	}

	item, err := h.Equipment.GetByID(ctx, id)
	if err != nil {
		httpapi.Internal(w, h.Log, err)
		return
	}
	httpapi.OK(w, item)
}

// HandleAssign handles POST /{equipmentID}/assign/{userID}. Admins can hand
// out any item; team leaders only their own team's.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}
	itemID, ok := pathID(w, r, "equipmentID")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	item, err := h.Equipment.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "equipment")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	if !canManage(r, item) {
		httpapi.Forbidden(w, "cannot assign this equipment")
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
	if item.TeamID != nil && (user.TeamID == nil || *user.TeamID != *item.TeamID) {
		httpapi.BadRequest(w, "user is not on the equipment's team")
		return
	}

	if err := h.Equipment.Assign(ctx, itemID, userID); err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			httpapi.NotFound(w, "equipment")
		case errors.Is(err, equipmentstore.ErrNotAvailable):
			httpapi.Conflict(w, err.Error())
		default:
			httpapi.Internal(w, h.Log, err)
		}
		return
	}
	httpapi.NoContent(w)
}

// HandleUnassign handles DELETE /{equipmentID}/assign.
func (h *Handler) HandleUnassign(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAuth(w, r); !res.OK {
		return
	}
	itemID, ok := pathID(w, r, "equipmentID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	item, err := h.Equipment.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "equipment")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	if !canManage(r, item) {
		httpapi.Forbidden(w, "cannot release this equipment")
		return
	}

	if err := h.Equipment.Unassign(ctx, itemID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "equipment")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}
	httpapi.NoContent(w)
}

// HandleDelete handles DELETE /{equipmentID}. Admin-only.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if res := gates.RequireAdmin(w, r); !res.OK {
		return
	}
	id, ok := pathID(w, r, "equipmentID")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Equipment.Delete(ctx, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httpapi.NotFound(w, "equipment")
			return
		}
		httpapi.Internal(w, h.Log, err)
		return
	}

	h.Log.Info("equipment deleted", zap.String("equipment_id", id.Hex()))
	httpapi.NoContent(w)
}
