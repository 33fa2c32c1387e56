package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskhub/internal/app/system/auth"
	"taskhub/internal/domain/models"
)

// TestUser represents user data for testing HTTP handlers.
type TestUser struct {
	ID             primitive.ObjectID
	Role           models.Role
	TeamID         *primitive.ObjectID
	CanManageTasks bool
}

// AdminUser returns a TestUser with the admin role.
func AdminUser() TestUser {
	return TestUser{
		ID:   primitive.NewObjectID(),
		Role: models.RoleAdmin,
	}
}

// LeaderUser returns a TestUser with the team_leader role in the given team.
// The canManageTasks flag is set, matching the common case.
func LeaderUser(teamID primitive.ObjectID) TestUser {
	return TestUser{
		ID:             primitive.NewObjectID(),
		Role:           models.RoleTeamLeader,
		TeamID:         &teamID,
		CanManageTasks: true,
	}
}

// MemberUser returns a TestUser with the team_member role in the given team.
func MemberUser(teamID primitive.ObjectID) TestUser {
	return TestUser{
		ID:     primitive.NewObjectID(),
		Role:   models.RoleTeamMember,
		TeamID: &teamID,
	}
}

// PlainUser returns a TestUser with the base user role and no team.
func PlainUser() TestUser {
	return TestUser{
		ID:   primitive.NewObjectID(),
		Role: models.RoleUser,
	}
}

// AsTokenUser converts the test user to the context identity type.
func (u TestUser) AsTokenUser() *auth.TokenUser {
	return &auth.TokenUser{
		ID:             u.ID,
		Role:           u.Role,
		TeamID:         u.TeamID,
		CanManageTasks: u.CanManageTasks,
	}
}

// WithUser adds a user to the request context for testing authenticated
// handlers. This bypasses the token middleware and injects the user directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return auth.WithUser(r, user.AsTokenUser())
}

// NewJSONRequest creates an HTTP request carrying a JSON-encoded body.
func NewJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	if body == nil {
		return httptest.NewRequest(method, target, nil)
	}
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DecodeJSON unmarshals a response body into v, failing the test on error.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response body: %v (body: %s)", err, rec.Body.String())
	}
}
