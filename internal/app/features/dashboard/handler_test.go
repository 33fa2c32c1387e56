package dashboard_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	dashboardfeature "taskhub/internal/app/features/dashboard"
	equipmentstore "taskhub/internal/app/store/equipment"
	projectstore "taskhub/internal/app/store/projects"
	taskstore "taskhub/internal/app/store/tasks"
	userstore "taskhub/internal/app/store/users"
	"taskhub/internal/domain/models"
	"taskhub/internal/testutil"
)

type counts struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
}

type overviewResponse struct {
	Role    string  `json:"role"`
	Tasks   counts  `json:"tasks"`
	MyTasks *counts `json:"my_tasks"`
	Projects struct {
		Total int64 `json:"total"`
	} `json:"projects"`
	Equipment struct {
		Total     int64 `json:"total"`
		Available int64 `json:"available"`
	} `json:"equipment"`
	Users map[string]int64 `json:"users"`
}

func newHandler(t *testing.T) (*dashboardfeature.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	h := dashboardfeature.NewHandler(
		userstore.New(db),
		taskstore.New(db),
		projectstore.New(db),
		equipmentstore.New(db),
		zap.NewNop(),
	)
	return h, testutil.NewFixtures(t, db)
}

func read(t *testing.T, h *dashboardfeature.Handler, user testutil.TestUser) overviewResponse {
	t.Helper()
	req := httptest.NewRequest("GET", "/dashboard", nil)
	req = testutil.WithUser(req, user)
	rec := httptest.NewRecorder()
	h.HandleOverview(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("overview: got %d (%s)", rec.Code, rec.Body.String())
	}
	var resp overviewResponse
	testutil.DecodeJSON(t, rec, &resp)
	return resp
}

func TestHandleOverview_Admin(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teamA := primitive.NewObjectID()
	teamB := primitive.NewObjectID()
	f.CreateUser(ctx, "Plain", "plain@example.com", models.RoleUser, nil)
	f.CreateTeamLeader(ctx, "Leader", "leader@example.com", teamA)
	f.CreateTask(ctx, "A1", teamA, nil)
	f.CreateTask(ctx, "B1", teamB, nil)
	f.CreateProject(ctx, "Alpha", teamA)
	f.CreateEquipment(ctx, "Laptop", "DB-001")

	resp := read(t, h, testutil.AdminUser())
	if resp.Role != "admin" {
		t.Errorf("role: got %q", resp.Role)
	}
	if resp.Tasks.Total != 2 {
		t.Errorf("tasks: got %d, want 2", resp.Tasks.Total)
	}
	if resp.Projects.Total != 1 {
		t.Errorf("projects: got %d, want 1", resp.Projects.Total)
	}
	if resp.Equipment.Total != 1 || resp.Equipment.Available != 1 {
		t.Errorf("equipment: %+v", resp.Equipment)
	}
	if resp.Users["user"] != 1 || resp.Users["team_leader"] != 1 {
		t.Errorf("users: %+v", resp.Users)
	}
}

func TestHandleOverview_MemberScopedToTeam(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teamA := primitive.NewObjectID()
	teamB := primitive.NewObjectID()
	me := testutil.MemberUser(teamA)
	f.CreateTask(ctx, "Mine", teamA, &me.ID)
	f.CreateTask(ctx, "Team's", teamA, nil)
	f.CreateTask(ctx, "Other team's", teamB, nil)
	f.CreateProject(ctx, "Alpha", teamA)
	f.CreateProject(ctx, "Other", teamB)

	resp := read(t, h, me)
	if resp.Tasks.Total != 2 {
		t.Errorf("team tasks: got %d, want 2", resp.Tasks.Total)
	}
	if resp.MyTasks == nil || resp.MyTasks.Total != 1 {
		t.Errorf("my tasks: %+v", resp.MyTasks)
	}
	if resp.Projects.Total != 1 {
		t.Errorf("projects: got %d, want 1", resp.Projects.Total)
	}
	if resp.Users != nil {
		t.Error("members should not see user counts")
	}
}

func TestHandleOverview_PlainUser(t *testing.T) {
	h, f := newHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teamID := primitive.NewObjectID()
	me := testutil.PlainUser()
	f.CreateTask(ctx, "Assigned to me", teamID, &me.ID)
	f.CreateTask(ctx, "Not mine", teamID, nil)

	resp := read(t, h, me)
	if resp.MyTasks == nil || resp.MyTasks.Total != 1 {
		t.Errorf("my tasks: %+v", resp.MyTasks)
	}
	if resp.Tasks.Total != 0 {
		t.Errorf("plain users should see no team tasks, got %d", resp.Tasks.Total)
	}
}

func TestHandleOverview_Unauthenticated(t *testing.T) {
	h, _ := newHandler(t)

	req := httptest.NewRequest("GET", "/dashboard", nil)
	rec := httptest.NewRecorder()
	h.HandleOverview(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want 401", rec.Code)
	}
}
