package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"taskhub/internal/domain/models"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// WithChiURLParams adds multiple chi URL parameters to the request context.
func WithChiURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a test user with the given parameters.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email string, role models.Role, teamID *primitive.ObjectID) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:           primitive.NewObjectID(),
		FullName:     fullName,
		FullNameCI:   text.Fold(fullName),
		Email:        email,
		PasswordHash: "$2a$10$test.hash.not.a.real.password.hash.value",
		Role:         role,
		TeamID:       teamID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := f.db.Collection("users").InsertOne(ctx, user)
	if err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateAdmin creates a test admin user.
func (f *Fixtures) CreateAdmin(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.RoleAdmin, nil)
}

// CreateTeamLeader creates a test team leader in the given team with the
// canManageTasks flag set.
func (f *Fixtures) CreateTeamLeader(ctx context.Context, fullName, email string, teamID primitive.ObjectID) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:             primitive.NewObjectID(),
		FullName:       fullName,
		FullNameCI:     text.Fold(fullName),
		Email:          email,
		PasswordHash:   "$2a$10$test.hash.not.a.real.password.hash.value",
		Role:           models.RoleTeamLeader,
		TeamID:         &teamID,
		CanManageTasks: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := f.db.Collection("users").InsertOne(ctx, user)
	if err != nil {
		f.t.Fatalf("failed to create test team leader: %v", err)
	}

	return user
}

// CreateTeamMember creates a test team member in the given team.
func (f *Fixtures) CreateTeamMember(ctx context.Context, fullName, email string, teamID primitive.ObjectID) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.RoleTeamMember, &teamID)
}

// CreateDeletedUser creates a soft-deleted test user.
func (f *Fixtures) CreateDeletedUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:           primitive.NewObjectID(),
		FullName:     fullName,
		FullNameCI:   text.Fold(fullName),
		Email:        email,
		PasswordHash: "$2a$10$test.hash.not.a.real.password.hash.value",
		Role:         models.RoleUser,
		IsDeleted:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := f.db.Collection("users").InsertOne(ctx, user)
	if err != nil {
		f.t.Fatalf("failed to create deleted test user: %v", err)
	}

	return user
}

// CreateTeam creates a test team with the given name.
func (f *Fixtures) CreateTeam(ctx context.Context, name string) models.Team {
	f.t.Helper()

	now := time.Now().UTC()
	team := models.Team{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Description: "Test team description",
		Members:     []models.TeamMember{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := f.db.Collection("teams").InsertOne(ctx, team)
	if err != nil {
		f.t.Fatalf("failed to create test team: %v", err)
	}

	return team
}

// CreateTask creates a pending test task in the given team.
func (f *Fixtures) CreateTask(ctx context.Context, title string, teamID primitive.ObjectID, assignedTo *primitive.ObjectID) models.Task {
	f.t.Helper()

	now := time.Now().UTC()
	due := now.Add(72 * time.Hour)
	task := models.Task{
		ID:          primitive.NewObjectID(),
		Title:       title,
		Description: "Test task description",
		Status:      models.TaskStatusPending,
		Priority:    models.TaskPriorityMedium,
		AssignedTo:  assignedTo,
		TeamID:      teamID,
		DueDate:     &due,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := f.db.Collection("tasks").InsertOne(ctx, task)
	if err != nil {
		f.t.Fatalf("failed to create test task: %v", err)
	}

	return task
}

// CreateProject creates an active test project for the given team.
func (f *Fixtures) CreateProject(ctx context.Context, name string, teamID primitive.ObjectID) models.Project {
	f.t.Helper()

	now := time.Now().UTC()
	end := now.Add(30 * 24 * time.Hour)
	project := models.Project{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Description: "Test project description",
		Status:      models.ProjectStatusActive,
		Priority:    models.ProjectPriorityMedium,
		TeamID:      teamID,
		StartDate:   &now,
		EndDate:     &end,
		Progress:    10,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := f.db.Collection("projects").InsertOne(ctx, project)
	if err != nil {
		f.t.Fatalf("failed to create test project: %v", err)
	}

	return project
}

// CreateEquipment creates an available test equipment item.
func (f *Fixtures) CreateEquipment(ctx context.Context, name, serial string) models.Equipment {
	f.t.Helper()

	now := time.Now().UTC()
	eq := models.Equipment{
		ID:           primitive.NewObjectID(),
		Name:         name,
		Type:         "laptop",
		SerialNumber: serial,
		Status:       models.EquipmentStatusAvailable,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := f.db.Collection("equipment").InsertOne(ctx, eq)
	if err != nil {
		f.t.Fatalf("failed to create test equipment: %v", err)
	}

	return eq
}
