package equipment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	equipmentfeature "taskhub/internal/app/features/equipment"
	equipmentstore "taskhub/internal/app/store/equipment"
	userstore "taskhub/internal/app/store/users"
	"taskhub/internal/app/system/indexes"
	"taskhub/internal/domain/models"
	"taskhub/internal/testutil"
)

type env struct {
	h         *equipmentfeature.Handler
	f         *testutil.Fixtures
	db        *mongo.Database
	equipment *equipmentstore.Store
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	equipment := equipmentstore.New(db)
	users := userstore.New(db)
	h := equipmentfeature.NewHandler(equipment, users, zap.NewNop())
	return env{h: h, f: testutil.NewFixtures(t, db), db: db, equipment: equipment}
}

func (e env) createTeamItem(t *testing.T, ctx context.Context, name, serial string, teamID primitive.ObjectID) models.Equipment {
	t.Helper()
	item, err := e.equipment.Create(ctx, models.Equipment{
		Name:         name,
		Type:         "laptop",
		SerialNumber: serial,
		TeamID:       &teamID,
	})
	if err != nil {
		t.Fatalf("create equipment: %v", err)
	}
	return item
}

func TestHandleCreate_AdminOnly(t *testing.T) {
	e := newEnv(t)

	body := map[string]any{
		"name":          "MacBook Pro",
		"type":          "laptop",
		"serial_number": "mbp-2026-001",
	}

	req := testutil.NewJSONRequest(t, "POST", "/equipment", body)
	req = testutil.WithUser(req, testutil.LeaderUser(primitive.NewObjectID()))
	rec := httptest.NewRecorder()
	e.h.HandleCreate(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("leader create: got %d, want 403", rec.Code)
	}

	req = testutil.NewJSONRequest(t, "POST", "/equipment", body)
	req = testutil.WithUser(req, testutil.AdminUser())
	rec = httptest.NewRecorder()
	e.h.HandleCreate(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create: got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp models.Equipment
	testutil.DecodeJSON(t, rec, &resp)
	if resp.Status != models.EquipmentStatusAvailable {
		t.Errorf("status: got %q, want available", resp.Status)
	}
	if resp.SerialNumber != "MBP-2026-001" {
		t.Errorf("serial: got %q, want uppercased", resp.SerialNumber)
	}
}

func TestHandleCreate_DuplicateSerial(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, e.db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	e.f.CreateEquipment(ctx, "First", "DUP-001")

	req := testutil.NewJSONRequest(t, "POST", "/equipment", map[string]any{
		"name":          "Second",
		"type":          "laptop",
		"serial_number": "dup-001",
	})
	req = testutil.WithUser(req, testutil.AdminUser())
	rec := httptest.NewRecorder()
	e.h.HandleCreate(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("got %d, want 409", rec.Code)
	}
}

func TestAssign_Lifecycle(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teamID := primitive.NewObjectID()
	member := e.f.CreateTeamMember(ctx, "Holder", "holder@example.com", teamID)
	item := e.createTeamItem(t, ctx, "Team Laptop", "TL-001", teamID)

	assign := func(user testutil.TestUser) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/assign", nil)
		req = testutil.WithChiURLParams(req, map[string]string{
			"equipmentID": item.ID.Hex(),
			"userID":      member.ID.Hex(),
		})
		req = testutil.WithUser(req, user)
		rec := httptest.NewRecorder()
		e.h.HandleAssign(rec, req)
		return rec
	}

	// Members can't hand out equipment.
	if rec := assign(testutil.MemberUser(teamID)); rec.Code != http.StatusForbidden {
		t.Errorf("member assign: got %d, want 403", rec.Code)
	}

	// Leaders of another team can't either.
	if rec := assign(testutil.LeaderUser(primitive.NewObjectID())); rec.Code != http.StatusForbidden {
		t.Errorf("other leader assign: got %d, want 403", rec.Code)
	}

	// The item's team leader can.
	if rec := assign(testutil.LeaderUser(teamID)); rec.Code != http.StatusNoContent {
		t.Fatalf("leader assign: got %d (%s)", rec.Code, rec.Body.String())
	}

	got, err := e.equipment.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != models.EquipmentStatusAssigned || got.AssignedTo == nil || *got.AssignedTo != member.ID {
		t.Errorf("after assign: %+v", got)
	}

	// A second assignment collides with the first.
	if rec := assign(testutil.AdminUser()); rec.Code != http.StatusConflict {
		t.Errorf("double assign: got %d, want 409", rec.Code)
	}

	// Unassign returns it to the pool.
	req := httptest.NewRequest("DELETE", "/assign", nil)
	req = testutil.WithChiURLParam(req, "equipmentID", item.ID.Hex())
	req = testutil.WithUser(req, testutil.LeaderUser(teamID))
	rec := httptest.NewRecorder()
	e.h.HandleUnassign(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unassign: got %d", rec.Code)
	}

	got, _ = e.equipment.GetByID(ctx, item.ID)
	if got.Status != models.EquipmentStatusAvailable || got.AssignedTo != nil {
		t.Errorf("after unassign: %+v", got)
	}
}

func TestAssign_UserMustBeOnItemTeam(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teamID := primitive.NewObjectID()
	outsider := e.f.CreateUser(ctx, "Outsider", "outsider@example.com", models.RoleUser, nil)
	item := e.createTeamItem(t, ctx, "Team Laptop", "TL-002", teamID)

	req := httptest.NewRequest("POST", "/assign", nil)
	req = testutil.WithChiURLParams(req, map[string]string{
		"equipmentID": item.ID.Hex(),
		"userID":      outsider.ID.Hex(),
	})
	req = testutil.WithUser(req, testutil.AdminUser())
	rec := httptest.NewRecorder()
	e.h.HandleAssign(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", rec.Code)
	}
}

func TestAssign_TeamlessItemAdminOnly(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teamID := primitive.NewObjectID()
	member := e.f.CreateTeamMember(ctx, "Holder", "holder2@example.com", teamID)
	item := e.f.CreateEquipment(ctx, "Pool Laptop", "POOL-001")

	req := httptest.NewRequest("POST", "/assign", nil)
	req = testutil.WithChiURLParams(req, map[string]string{
		"equipmentID": item.ID.Hex(),
		"userID":      member.ID.Hex(),
	})
	req = testutil.WithUser(req, testutil.LeaderUser(teamID))
	rec := httptest.NewRecorder()
	e.h.HandleAssign(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("leader on teamless item: got %d, want 403", rec.Code)
	}

	req = httptest.NewRequest("POST", "/assign", nil)
	req = testutil.WithChiURLParams(req, map[string]string{
		"equipmentID": item.ID.Hex(),
		"userID":      member.ID.Hex(),
	})
	req = testutil.WithUser(req, testutil.AdminUser())
	rec = httptest.NewRecorder()
	e.h.HandleAssign(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin on teamless item: got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestHandleUpdate_And_Delete(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	item := e.f.CreateEquipment(ctx, "Old Name", "UPD-001")

	req := testutil.NewJSONRequest(t, "PUT", "/equipment/"+item.ID.Hex(), map[string]any{
		"name":          "New Name",
		"type":          "monitor",
		"serial_number": "UPD-001",
		"status":        "maintenance",
	})
	req = testutil.WithChiURLParam(req, "equipmentID", item.ID.Hex())
	req = testutil.WithUser(req, testutil.AdminUser())
	rec := httptest.NewRecorder()
	e.h.HandleUpdate(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: got %d (%s)", rec.Code, rec.Body.String())
	}

	got, err := e.equipment.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Name != "New Name" || got.Type != "monitor" || got.Status != models.EquipmentStatusMaintenance {
		t.Errorf("update not applied: %+v", got)
	}

	req = httptest.NewRequest("DELETE", "/equipment/"+item.ID.Hex(), nil)
	req = testutil.WithChiURLParam(req, "equipmentID", item.ID.Hex())
	req = testutil.WithUser(req, testutil.AdminUser())
	rec = httptest.NewRecorder()
	e.h.HandleDelete(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: got %d", rec.Code)
	}
	if _, err := e.equipment.GetByID(ctx, item.ID); err == nil {
		t.Error("expected item gone")
	}
}

func TestHandleList_Filters(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teamID := primitive.NewObjectID()
	e.f.CreateEquipment(ctx, "Pool A", "LF-001")
	e.f.CreateEquipment(ctx, "Pool B", "LF-002")
	e.createTeamItem(t, ctx, "Team Item", "LF-003", teamID)

	read := func(target string) (int, int64) {
		req := httptest.NewRequest("GET", target, nil)
		req = testutil.WithUser(req, testutil.MemberUser(teamID))
		rec := httptest.NewRecorder()
		e.h.HandleList(rec, req)
		if rec.Code != http.StatusOK {
			return rec.Code, 0
		}
		var resp struct {
			Meta struct {
				Total int64 `json:"total"`
			} `json:"meta"`
		}
		testutil.DecodeJSON(t, rec, &resp)
		return rec.Code, resp.Meta.Total
	}

	if code, total := read("/equipment"); code != http.StatusOK || total != 3 {
		t.Errorf("all: %d/%d, want 200/3", code, total)
	}
	if code, total := read("/equipment?team_id=" + teamID.Hex()); code != http.StatusOK || total != 1 {
		t.Errorf("by team: %d/%d, want 200/1", code, total)
	}
	if code, total := read("/equipment?status=available"); code != http.StatusOK || total != 3 {
		t.Errorf("by status: %d/%d, want 200/3", code, total)
	}
}
