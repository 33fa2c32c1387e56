package projectpolicy_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskhub/internal/app/policy/projectpolicy"
	"taskhub/internal/app/system/auth"
	"taskhub/internal/domain/models"
)

func request(u *auth.TokenUser) *http.Request {
	req := httptest.NewRequest("GET", "/api/projects", nil)
	if u == nil {
		return req
	}
	return auth.WithUser(req, u)
}

func TestCanListProjects(t *testing.T) {
	teamID := primitive.NewObjectID()

	scope := projectpolicy.CanListProjects(request(&auth.TokenUser{ID: primitive.NewObjectID(), Role: models.RoleAdmin}))
	if !scope.CanList || !scope.AllTeams || scope.Filter() != nil {
		t.Errorf("admin scope: got %+v", scope)
	}

	scope = projectpolicy.CanListProjects(request(&auth.TokenUser{ID: primitive.NewObjectID(), Role: models.RoleTeamLeader, TeamID: &teamID}))
	if !scope.CanList || !scope.AllTeams {
		t.Errorf("leader scope: got %+v", scope)
	}

	scope = projectpolicy.CanListProjects(request(&auth.TokenUser{ID: primitive.NewObjectID(), Role: models.RoleTeamMember, TeamID: &teamID}))
	if !scope.CanList || scope.AllTeams {
		t.Errorf("member scope: got %+v", scope)
	}
	if f := scope.Filter(); f == nil || f["team_id"] != teamID {
		t.Errorf("member filter: got %v", scope.Filter())
	}

	if projectpolicy.CanListProjects(request(nil)).CanList {
		t.Error("expected unauthenticated list to be refused")
	}
	if projectpolicy.CanListProjects(request(&auth.TokenUser{ID: primitive.NewObjectID(), Role: models.RoleUser})).CanList {
		t.Error("expected plain user list to be refused")
	}
}

func TestCreateEditDelete(t *testing.T) {
	teamID := primitive.NewObjectID()
	otherTeam := primitive.NewObjectID()

	admin := request(&auth.TokenUser{ID: primitive.NewObjectID(), Role: models.RoleAdmin})
	leader := request(&auth.TokenUser{ID: primitive.NewObjectID(), Role: models.RoleTeamLeader, TeamID: &teamID})
	member := request(&auth.TokenUser{ID: primitive.NewObjectID(), Role: models.RoleTeamMember, TeamID: &teamID})

	if !projectpolicy.CanCreateProject(admin, otherTeam) {
		t.Error("expected admin to create for any team")
	}
	if !projectpolicy.CanCreateProject(leader, teamID) {
		t.Error("expected leader to create for own team")
	}
	if projectpolicy.CanCreateProject(leader, otherTeam) {
		t.Error("expected leader to be refused for another team")
	}
	if projectpolicy.CanCreateProject(member, teamID) {
		t.Error("expected member to be refused")
	}

	if !projectpolicy.CanEditProject(leader, teamID) {
		t.Error("expected leader to edit own-team project")
	}
	if projectpolicy.CanEditProject(leader, otherTeam) {
		t.Error("expected leader edit on other team to be refused")
	}

	if !projectpolicy.CanDeleteProject(admin) {
		t.Error("expected admin to delete")
	}
	if projectpolicy.CanDeleteProject(leader) {
		t.Error("expected leader delete to be refused")
	}
}

func TestCanViewProject(t *testing.T) {
	teamID := primitive.NewObjectID()
	otherTeam := primitive.NewObjectID()

	member := request(&auth.TokenUser{ID: primitive.NewObjectID(), Role: models.RoleTeamMember, TeamID: &teamID})
	if !projectpolicy.CanViewProject(member, teamID) {
		t.Error("expected member to view own-team project")
	}
	if projectpolicy.CanViewProject(member, otherTeam) {
		t.Error("expected member to be refused on another team's project")
	}

	// Leaders read across teams; only their writes are own-team gated.
	leader := request(&auth.TokenUser{ID: primitive.NewObjectID(), Role: models.RoleTeamLeader, TeamID: &teamID})
	if !projectpolicy.CanViewProject(leader, otherTeam) {
		t.Error("expected leader to view another team's project")
	}
}
