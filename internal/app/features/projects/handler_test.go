package projects_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	projectsfeature "taskhub/internal/app/features/projects"
	projectstore "taskhub/internal/app/store/projects"
	taskstore "taskhub/internal/app/store/tasks"
	"taskhub/internal/domain/models"
	"taskhub/internal/testutil"
)

type env struct {
	h        *projectsfeature.Handler
	f        *testutil.Fixtures
	projects *projectstore.Store
	tasks    *taskstore.Store
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	projects := projectstore.New(db)
	tasks := taskstore.New(db)
	h := projectsfeature.NewHandler(projects, tasks, zap.NewNop())
	return env{h: h, f: testutil.NewFixtures(t, db), projects: projects, tasks: tasks}
}

func TestHandleCreate_Authorization(t *testing.T) {
	e := newEnv(t)

	teamID := primitive.NewObjectID()
	body := map[string]any{
		"name":    "Launch Prep",
		"team_id": teamID.Hex(),
	}

	// Members can't create projects.
	req := testutil.NewJSONRequest(t, "POST", "/projects", body)
	req = testutil.WithUser(req, testutil.MemberUser(teamID))
	rec := httptest.NewRecorder()
	e.h.HandleCreate(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("member create: got %d, want 403", rec.Code)
	}

	// Leaders of another team can't either.
	req = testutil.NewJSONRequest(t, "POST", "/projects", body)
	req = testutil.WithUser(req, testutil.LeaderUser(primitive.NewObjectID()))
	rec = httptest.NewRecorder()
	e.h.HandleCreate(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("other leader create: got %d, want 403", rec.Code)
	}

	// The team's own leader can.
	req = testutil.NewJSONRequest(t, "POST", "/projects", body)
	req = testutil.WithUser(req, testutil.LeaderUser(teamID))
	rec = httptest.NewRecorder()
	e.h.HandleCreate(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("leader create: got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Status   string `json:"status"`
		Priority string `json:"priority"`
		Progress int    `json:"progress"`
		Perms    struct {
			CanEdit bool `json:"can_edit"`
		} `json:"perms"`
	}
	testutil.DecodeJSON(t, rec, &resp)
	if resp.Status != models.ProjectStatusPlanning || resp.Priority != models.ProjectPriorityMedium {
		t.Errorf("defaults: %+v", resp)
	}
	if resp.Progress != 0 {
		t.Errorf("progress: got %d, want 0", resp.Progress)
	}
	if !resp.Perms.CanEdit {
		t.Error("expected can_edit perm for the creating leader")
	}
}

func TestHandleList_Scope(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teamA := primitive.NewObjectID()
	teamB := primitive.NewObjectID()
	e.f.CreateProject(ctx, "Alpha", teamA)
	e.f.CreateProject(ctx, "Beta", teamA)
	e.f.CreateProject(ctx, "Gamma", teamB)

	read := func(user testutil.TestUser, target string) (int, int64) {
		req := httptest.NewRequest("GET", target, nil)
		req = testutil.WithUser(req, user)
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

	if code, total := read(testutil.AdminUser(), "/projects"); code != http.StatusOK || total != 3 {
		t.Errorf("admin: %d/%d, want 200/3", code, total)
	}
	if code, total := read(testutil.AdminUser(), "/projects?team_id="+teamB.Hex()); code != http.StatusOK || total != 1 {
		t.Errorf("admin scoped: %d/%d, want 200/1", code, total)
	}
	if code, total := read(testutil.MemberUser(teamA), "/projects"); code != http.StatusOK || total != 2 {
		t.Errorf("team A member: %d/%d, want 200/2", code, total)
	}
	if code, _ := read(testutil.PlainUser(), "/projects"); code != http.StatusForbidden {
		t.Errorf("plain user: got %d, want 403", code)
	}
}

func TestHandleListByTeam(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teamA := primitive.NewObjectID()
	teamB := primitive.NewObjectID()
	e.f.CreateProject(ctx, "A One", teamA)
	e.f.CreateProject(ctx, "A Two", teamA)
	e.f.CreateProject(ctx, "B One", teamB)

	// Members can list their own team's projects by path.
	req := httptest.NewRequest("GET", "/projects/team", nil)
	req = testutil.WithChiURLParam(req, "teamID", teamA.Hex())
	req = testutil.WithUser(req, testutil.MemberUser(teamA))
	rec := httptest.NewRecorder()
	e.h.HandleListByTeam(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("own team: got %d (%s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Meta struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	testutil.DecodeJSON(t, rec, &resp)
	if resp.Meta.Total != 2 {
		t.Errorf("own team total: got %d, want 2", resp.Meta.Total)
	}

	// But not another team's.
	req = httptest.NewRequest("GET", "/projects/team", nil)
	req = testutil.WithChiURLParam(req, "teamID", teamB.Hex())
	req = testutil.WithUser(req, testutil.MemberUser(teamA))
	rec = httptest.NewRecorder()
	e.h.HandleListByTeam(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("other team: got %d, want 403", rec.Code)
	}

	// Admins can name any team.
	req = httptest.NewRequest("GET", "/projects/team", nil)
	req = testutil.WithChiURLParam(req, "teamID", teamB.Hex())
	req = testutil.WithUser(req, testutil.AdminUser())
	rec = httptest.NewRecorder()
	e.h.HandleListByTeam(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: got %d", rec.Code)
	}
	testutil.DecodeJSON(t, rec, &resp)
	if resp.Meta.Total != 1 {
		t.Errorf("admin total: got %d, want 1", resp.Meta.Total)
	}
}

func TestHandleGet_IncludesTaskCounts(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teamID := primitive.NewObjectID()
	project := e.f.CreateProject(ctx, "Counted", teamID)

	for _, status := range []string{models.TaskStatusCompleted, models.TaskStatusCompleted, models.TaskStatusPending} {
		if _, err := e.tasks.Create(ctx, models.Task{
			Title:     "Task " + status,
			Status:    status,
			TeamID:    teamID,
			ProjectID: &project.ID,
		}); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}

	req := httptest.NewRequest("GET", "/projects/"+project.ID.Hex(), nil)
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	req = testutil.WithUser(req, testutil.MemberUser(teamID))
	rec := httptest.NewRecorder()
	e.h.HandleGet(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Name       string `json:"name"`
		TaskCounts struct {
			Total     int64 `json:"total"`
			Completed int64 `json:"completed"`
			Pending   int64 `json:"pending"`
		} `json:"task_counts"`
	}
	testutil.DecodeJSON(t, rec, &resp)
	if resp.TaskCounts.Total != 3 || resp.TaskCounts.Completed != 2 || resp.TaskCounts.Pending != 1 {
		t.Errorf("counts: %+v", resp.TaskCounts)
	}

	// Outsiders can't view it.
	req = httptest.NewRequest("GET", "/projects/"+project.ID.Hex(), nil)
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	req = testutil.WithUser(req, testutil.MemberUser(primitive.NewObjectID()))
	rec = httptest.NewRecorder()
	e.h.HandleGet(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("outsider: got %d, want 403", rec.Code)
	}
}

func TestHandleUpdate_OwnLeaderOnly(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teamID := primitive.NewObjectID()
	project := e.f.CreateProject(ctx, "Editable", teamID)

	body := map[string]any{
		"name":     "Renamed",
		"status":   "on-hold",
		"priority": "urgent",
	}

	req := testutil.NewJSONRequest(t, "PUT", "/projects/"+project.ID.Hex(), body)
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	req = testutil.WithUser(req, testutil.MemberUser(teamID))
	rec := httptest.NewRecorder()
	e.h.HandleUpdate(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("member update: got %d, want 403", rec.Code)
	}

	req = testutil.NewJSONRequest(t, "PUT", "/projects/"+project.ID.Hex(), body)
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	req = testutil.WithUser(req, testutil.LeaderUser(teamID))
	rec = httptest.NewRecorder()
	e.h.HandleUpdate(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("leader update: got %d (%s)", rec.Code, rec.Body.String())
	}

	got, err := e.projects.GetByID(ctx, project.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Name != "Renamed" || got.Status != models.ProjectStatusOnHold || got.Priority != models.ProjectPriorityUrgent {
		t.Errorf("update not applied: %+v", got)
	}
}

func TestHandleRecomputeProgress(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teamID := primitive.NewObjectID()
	project := e.f.CreateProject(ctx, "Tracked", teamID)

	for _, status := range []string{models.TaskStatusCompleted, models.TaskStatusPending} {
		if _, err := e.tasks.Create(ctx, models.Task{
			Title:     "Task " + status,
			Status:    status,
			TeamID:    teamID,
			ProjectID: &project.ID,
		}); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}

	req := httptest.NewRequest("PUT", "/projects/"+project.ID.Hex()+"/recompute-progress", nil)
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	req = testutil.WithUser(req, testutil.LeaderUser(teamID))
	rec := httptest.NewRecorder()
	e.h.HandleRecomputeProgress(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Progress int `json:"progress"`
	}
	testutil.DecodeJSON(t, rec, &resp)
	if resp.Progress != 50 {
		t.Errorf("progress: got %d, want 50", resp.Progress)
	}

	got, err := e.projects.GetByID(ctx, project.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Progress != 50 {
		t.Errorf("stored progress: got %d, want 50", got.Progress)
	}
}

func TestHandleDelete_CascadesTasks(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teamID := primitive.NewObjectID()
	project := e.f.CreateProject(ctx, "Doomed", teamID)
	survivor := e.f.CreateTask(ctx, "Unrelated", teamID, nil)
	for i := 0; i < 2; i++ {
		if _, err := e.tasks.Create(ctx, models.Task{
			Title:     "Project task",
			TeamID:    teamID,
			ProjectID: &project.ID,
		}); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}

	// Leaders can't delete projects, even their own team's.
	req := httptest.NewRequest("DELETE", "/projects/"+project.ID.Hex(), nil)
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	req = testutil.WithUser(req, testutil.LeaderUser(teamID))
	rec := httptest.NewRecorder()
	e.h.HandleDelete(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("leader delete: got %d, want 403", rec.Code)
	}

	req = httptest.NewRequest("DELETE", "/projects/"+project.ID.Hex(), nil)
	req = testutil.WithChiURLParam(req, "projectID", project.ID.Hex())
	req = testutil.WithUser(req, testutil.AdminUser())
	rec = httptest.NewRecorder()
	e.h.HandleDelete(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin delete: got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		DeletedTasks int64 `json:"deleted_tasks"`
	}
	testutil.DecodeJSON(t, rec, &resp)
	if resp.DeletedTasks != 2 {
		t.Errorf("deleted tasks: got %d, want 2", resp.DeletedTasks)
	}

	if _, err := e.projects.GetByID(ctx, project.ID); err == nil {
		t.Error("expected project gone")
	}
	if _, err := e.tasks.GetByID(ctx, survivor.ID); err != nil {
		t.Errorf("unrelated task should survive: %v", err)
	}
}

func TestHandleStats_Scoped(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	teamA := primitive.NewObjectID()
	teamB := primitive.NewObjectID()
	a1 := e.f.CreateProject(ctx, "A1", teamA)
	e.f.CreateProject(ctx, "A2", teamA)
	e.f.CreateProject(ctx, "B1", teamB)

	for _, status := range []string{models.TaskStatusCompleted, models.TaskStatusPending} {
		_, err := e.tasks.Create(ctx, models.Task{
			Title:     "A1 " + status,
			TeamID:    teamA,
			ProjectID: &a1.ID,
			Status:    status,
		})
		if err != nil {
			t.Fatalf("task create: %v", err)
		}
	}

	type entry struct {
		ID    primitive.ObjectID `json:"id"`
		Tasks struct {
			Total     int64 `json:"total"`
			Completed int64 `json:"completed"`
			Progress  int   `json:"progress"`
		} `json:"task_stats"`
		Perms struct {
			CanEdit bool `json:"can_edit"`
		} `json:"perms"`
	}
	read := func(user testutil.TestUser) (int, []entry) {
		req := httptest.NewRequest("GET", "/projects/stats", nil)
		req = testutil.WithUser(req, user)
		rec := httptest.NewRecorder()
		e.h.HandleStats(rec, req)
		if rec.Code != http.StatusOK {
			return rec.Code, nil
		}
		var resp struct {
			Projects []entry `json:"projects"`
			Total    int     `json:"total"`
		}
		testutil.DecodeJSON(t, rec, &resp)
		if resp.Total != len(resp.Projects) {
			t.Errorf("total %d does not match %d projects", resp.Total, len(resp.Projects))
		}
		return rec.Code, resp.Projects
	}

	code, got := read(testutil.AdminUser())
	if code != http.StatusOK || len(got) != 3 {
		t.Fatalf("admin: %d with %d projects, want 200/3", code, len(got))
	}
	for _, p := range got {
		if p.ID != a1.ID {
			continue
		}
		if p.Tasks.Total != 2 || p.Tasks.Completed != 1 {
			t.Errorf("A1 counts: %+v", p.Tasks)
		}
		// One of two tasks done on an active project: 50 percent.
		if p.Tasks.Progress != 50 {
			t.Errorf("A1 progress: got %d, want 50", p.Tasks.Progress)
		}
		if !p.Perms.CanEdit {
			t.Error("expected admin can_edit on A1")
		}
	}

	if code, got := read(testutil.LeaderUser(teamA)); code != http.StatusOK || len(got) != 3 {
		t.Errorf("leader: %d with %d projects, want 200/3", code, len(got))
	}
	if code, got := read(testutil.MemberUser(teamA)); code != http.StatusOK || len(got) != 2 {
		t.Errorf("team A member: %d with %d projects, want 200/2", code, len(got))
	}
	if code, _ := read(testutil.PlainUser()); code != http.StatusForbidden {
		t.Errorf("plain user: got %d, want 403", code)
	}
}
