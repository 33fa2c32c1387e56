package teams_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	teamsfeature "taskhub/internal/app/features/teams"
	equipmentstore "taskhub/internal/app/store/equipment"
	projectstore "taskhub/internal/app/store/projects"
	taskstore "taskhub/internal/app/store/tasks"
	teamstore "taskhub/internal/app/store/teams"
	userstore "taskhub/internal/app/store/users"
	"taskhub/internal/domain/models"
	"taskhub/internal/testutil"
)

type env struct {
	h        *teamsfeature.Handler
	f        *testutil.Fixtures
	teams    *teamstore.Store
	users    *userstore.Store
	tasks    *taskstore.Store
	projects *projectstore.Store
	equip    *equipmentstore.Store
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	teams := teamstore.New(db)
	users := userstore.New(db)
	tasks := taskstore.New(db)
	projects := projectstore.New(db)
	equip := equipmentstore.New(db)
	h := teamsfeature.NewHandler(teams, users, tasks, projects, equip, zap.NewNop())
	return env{h: h, f: testutil.NewFixtures(t, db), teams: teams, users: users, tasks: tasks, projects: projects, equip: equip}
}

func TestHandleCreate(t *testing.T) {
	e := newEnv(t)

	body := map[string]string{"name": "Platform", "description": "Infra work"}

	req := testutil.NewJSONRequest(t, "POST", "/teams", body)
	req = testutil.WithUser(req, testutil.LeaderUser(primitive.NewObjectID()))
	rec := httptest.NewRecorder()
	e.h.HandleCreate(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("leader create: got %d, want 403", rec.Code)
	}

	req = testutil.NewJSONRequest(t, "POST", "/teams", body)
	req = testutil.WithUser(req, testutil.AdminUser())
	rec = httptest.NewRecorder()
	e.h.HandleCreate(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create: got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Name  string `json:"name"`
		Perms struct {
			CanEdit   bool `json:"can_edit"`
			CanDelete bool `json:"can_delete"`
		} `json:"perms"`
	}
	testutil.DecodeJSON(t, rec, &resp)
	if resp.Name != "Platform" {
		t.Errorf("name: got %q", resp.Name)
	}
	if !resp.Perms.CanEdit || !resp.Perms.CanDelete {
		t.Errorf("admin perms: %+v", resp.Perms)
	}
}

func TestHandleGet_PermsVaryByRole(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	team := e.f.CreateTeam(ctx, "Perm Team")

	cases := []struct {
		name      string
		user      testutil.TestUser
		canEdit   bool
		canDelete bool
	}{
		{"admin", testutil.AdminUser(), true, true},
		{"own leader", testutil.LeaderUser(team.ID), true, false},
		{"other leader", testutil.LeaderUser(primitive.NewObjectID()), false, false},
		{"member", testutil.MemberUser(team.ID), false, false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/teams/"+team.ID.Hex(), nil)
		req = testutil.WithChiURLParam(req, "teamID", team.ID.Hex())
		req = testutil.WithUser(req, tc.user)
		rec := httptest.NewRecorder()
		e.h.HandleGet(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: got %d", tc.name, rec.Code)
		}
		var resp struct {
			Perms struct {
				CanEdit   bool `json:"can_edit"`
				CanDelete bool `json:"can_delete"`
			} `json:"perms"`
		}
		testutil.DecodeJSON(t, rec, &resp)
		if resp.Perms.CanEdit != tc.canEdit || resp.Perms.CanDelete != tc.canDelete {
			t.Errorf("%s perms: %+v", tc.name, resp.Perms)
		}
	}
}

func TestHandleUpdate_OwnLeaderOnly(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	team := e.f.CreateTeam(ctx, "Editable")
	body := map[string]string{"name": "Edited", "description": "changed"}

	req := testutil.NewJSONRequest(t, "PUT", "/teams/"+team.ID.Hex(), body)
	req = testutil.WithChiURLParam(req, "teamID", team.ID.Hex())
	req = testutil.WithUser(req, testutil.LeaderUser(primitive.NewObjectID()))
	rec := httptest.NewRecorder()
	e.h.HandleUpdate(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("other leader: got %d, want 403", rec.Code)
	}

	req = testutil.NewJSONRequest(t, "PUT", "/teams/"+team.ID.Hex(), body)
	req = testutil.WithChiURLParam(req, "teamID", team.ID.Hex())
	req = testutil.WithUser(req, testutil.LeaderUser(team.ID))
	rec = httptest.NewRecorder()
	e.h.HandleUpdate(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("own leader: got %d (%s)", rec.Code, rec.Body.String())
	}

	got, _ := e.teams.GetByID(ctx, team.ID)
	if got.Name != "Edited" {
		t.Errorf("name: got %q", got.Name)
	}
}

func TestHandleDelete_Cascades(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	team := e.f.CreateTeam(ctx, "Doomed Team")
	member := e.f.CreateTeamMember(ctx, "Member", "cascade-member@example.com", team.ID)
	project := e.f.CreateProject(ctx, "Doomed Project", team.ID)
	e.f.CreateTask(ctx, "Doomed Task", team.ID, &member.ID)
	item, err := e.equip.Create(ctx, models.Equipment{Name: "Team Printer", SerialNumber: "TP-1", TeamID: &team.ID})
	if err != nil {
		t.Fatalf("equipment create: %v", err)
	}

	req := httptest.NewRequest("DELETE", "/teams/"+team.ID.Hex(), nil)
	req = testutil.WithChiURLParam(req, "teamID", team.ID.Hex())
	req = testutil.WithUser(req, testutil.AdminUser())
	rec := httptest.NewRecorder()
	e.h.HandleDelete(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		DetachedUsers     int64 `json:"detached_users"`
		DeletedProjects   int   `json:"deleted_projects"`
		DeletedTasks      int64 `json:"deleted_tasks"`
		ReleasedEquipment int64 `json:"released_equipment"`
	}
	testutil.DecodeJSON(t, rec, &resp)
	if resp.DetachedUsers != 1 || resp.DeletedProjects != 1 || resp.DeletedTasks != 1 || resp.ReleasedEquipment != 1 {
		t.Errorf("cascade counts: %+v", resp)
	}

	gotUser, _ := e.users.GetByID(ctx, member.ID)
	if gotUser.TeamID != nil {
		t.Error("expected member detached, not deleted")
	}
	if gotUser.IsDeleted {
		t.Error("team delete must not delete users")
	}
	if _, err := e.projects.GetByID(ctx, project.ID); err == nil {
		t.Error("expected project removed")
	}
	gotItem, _ := e.equip.GetByID(ctx, item.ID)
	if gotItem == nil || gotItem.TeamID != nil {
		t.Error("expected equipment kept but detached")
	}
}

func TestRoster_AddRemovePromote(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	team := e.f.CreateTeam(ctx, "Roster")
	user := e.f.CreateUser(ctx, "Joiner", "joiner@example.com", models.RoleTeamMember, nil)

	// Add.
	req := testutil.NewJSONRequest(t, "POST", "/members", map[string]string{"user_id": user.ID.Hex()})
	req = testutil.WithChiURLParam(req, "teamID", team.ID.Hex())
	req = testutil.WithUser(req, testutil.AdminUser())
	rec := httptest.NewRecorder()
	e.h.HandleAddMember(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("add: got %d (%s)", rec.Code, rec.Body.String())
	}

	gotUser, _ := e.users.GetByID(ctx, user.ID)
	if gotUser.TeamID == nil || *gotUser.TeamID != team.ID {
		t.Error("expected user's team set")
	}
	if has, _ := e.teams.HasMember(ctx, team.ID, user.ID); !has {
		t.Error("expected roster entry")
	}

	// Adding to a second team conflicts.
	other := e.f.CreateTeam(ctx, "Other Roster")
	req = testutil.NewJSONRequest(t, "POST", "/members", map[string]string{"user_id": user.ID.Hex()})
	req = testutil.WithChiURLParam(req, "teamID", other.ID.Hex())
	req = testutil.WithUser(req, testutil.AdminUser())
	rec = httptest.NewRecorder()
	e.h.HandleAddMember(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("second team: got %d, want 409", rec.Code)
	}

	// Promote.
	req = httptest.NewRequest("POST", "/promote", nil)
	req = testutil.WithChiURLParams(req, map[string]string{"teamID": team.ID.Hex(), "userID": user.ID.Hex()})
	req = testutil.WithUser(req, testutil.AdminUser())
	rec = httptest.NewRecorder()
	e.h.HandlePromote(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("promote: got %d (%s)", rec.Code, rec.Body.String())
	}

	gotUser, _ = e.users.GetByID(ctx, user.ID)
	if gotUser.Role != models.RoleTeamLeader {
		t.Errorf("role after promote: got %q", gotUser.Role)
	}
	gotTeam, _ := e.teams.GetByID(ctx, team.ID)
	if len(gotTeam.Members) != 1 || gotTeam.Members[0].RoleLabel != models.MemberLabelLeader {
		t.Errorf("roster after promote: %+v", gotTeam.Members)
	}

	// Remove.
	req = httptest.NewRequest("DELETE", "/members", nil)
	req = testutil.WithChiURLParams(req, map[string]string{"teamID": team.ID.Hex(), "userID": user.ID.Hex()})
	req = testutil.WithUser(req, testutil.AdminUser())
	rec = httptest.NewRecorder()
	e.h.HandleRemoveMember(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove: got %d (%s)", rec.Code, rec.Body.String())
	}
	gotUser, _ = e.users.GetByID(ctx, user.ID)
	if gotUser.TeamID != nil {
		t.Error("expected user detached after removal")
	}

	// Removing again is a 404.
	req = httptest.NewRequest("DELETE", "/members", nil)
	req = testutil.WithChiURLParams(req, map[string]string{"teamID": team.ID.Hex(), "userID": user.ID.Hex()})
	req = testutil.WithUser(req, testutil.AdminUser())
	rec = httptest.NewRecorder()
	e.h.HandleRemoveMember(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("double remove: got %d, want 404", rec.Code)
	}
}

func TestHandlePromote_NonMember(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	team := e.f.CreateTeam(ctx, "Lonely")
	stranger := e.f.CreateUser(ctx, "Stranger", "stranger@example.com", models.RoleUser, nil)

	req := httptest.NewRequest("POST", "/promote", nil)
	req = testutil.WithChiURLParams(req, map[string]string{"teamID": team.ID.Hex(), "userID": stranger.ID.Hex()})
	req = testutil.WithUser(req, testutil.AdminUser())
	rec := httptest.NewRecorder()
	e.h.HandlePromote(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("got %d, want 404", rec.Code)
	}
}
