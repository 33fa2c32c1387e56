package taskstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskhub/internal/app/system/paging"
	"taskhub/internal/app/system/sanitize"
	"taskhub/internal/domain/models"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tasks")}
}

var (
	errBadStatus   = errors.New(`status must be "pending"|"in_progress"|"completed"`)
	errBadPriority = errors.New(`priority must be "low"|"medium"|"high"`)
)

// GetByID loads a task by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var t models.Task
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a new task after validating status and priority.
// CompletedAt is set when a task is born completed.
func (s *Store) Create(ctx context.Context, t models.Task) (models.Task, error) {
	t.ID = primitive.NewObjectID()
	t.Title = sanitize.Text(t.Title)
	t.Description = sanitize.Text(t.Description)

	if t.Status == "" {
		t.Status = models.TaskStatusPending
	}
	if !models.ValidTaskStatus(t.Status) {
		return models.Task{}, errBadStatus
	}
	if t.Priority == "" {
		t.Priority = models.TaskPriorityMedium
	}
	if !models.ValidTaskPriority(t.Priority) {
		return models.Task{}, errBadPriority
	}

	now := time.Now()
	if t.Status == models.TaskStatusCompleted {
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}
	t.CreatedAt = now
	t.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// Update holds the editable task fields.
type Update struct {
	Title       string
	Description string
	Priority    string
	DueDate     *time.Time
	ProjectID   *primitive.ObjectID
}

// Update changes a task's editable fields. Status moves through
// UpdateStatus so the completed_at invariant stays in one place.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) error {
	if !models.ValidTaskPriority(upd.Priority) {
		return errBadPriority
	}

	set := bson.M{
		"title":       sanitize.Text(upd.Title),
		"description": sanitize.Text(upd.Description),
		"priority":    upd.Priority,
		"updated_at":  time.Now(),
	}
	unset := bson.M{}
	if upd.DueDate != nil {
		set["due_date"] = *upd.DueDate
	} else {
		unset["due_date"] = ""
	}
	if upd.ProjectID != nil {
		set["project_id"] = *upd.ProjectID
	} else {
		unset["project_id"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// UpdateStatus moves a task between statuses. Entering completed stamps
// completed_at; leaving it clears the stamp.
func (s *Store) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	if !models.ValidTaskStatus(status) {
		return errBadStatus
	}

	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}}
	if status == models.TaskStatusCompleted {
		update["$set"].(bson.M)["completed_at"] = time.Now()
	} else {
		update["$unset"] = bson.M{"completed_at": ""}
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Assign sets the task's assignee.
func (s *Store) Assign(ctx context.Context, taskID, userID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": taskID},
		bson.M{"$set": bson.M{"assigned_to": userID, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Unassign clears the task's assignee.
func (s *Store) Unassign(ctx context.Context, taskID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": taskID}, bson.M{
		"$unset": bson.M{"assigned_to": ""},
		"$set":   bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a task.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ClearAssignee unassigns every task held by the given user. Used when a
// user is deleted or purged so tasks never point at missing accounts.
func (s *Store) ClearAssignee(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"assigned_to": userID},
		bson.M{
			"$unset": bson.M{"assigned_to": ""},
			"$set":   bson.M{"updated_at": time.Now()},
		})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ClearAssignees is ClearAssignee for a batch of users (bulk permanent
// delete, purge).
func (s *Store) ClearAssignees(ctx context.Context, userIDs []primitive.ObjectID) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	res, err := s.c.UpdateMany(ctx,
		bson.M{"assigned_to": bson.M{"$in": userIDs}},
		bson.M{
			"$unset": bson.M{"assigned_to": ""},
			"$set":   bson.M{"updated_at": time.Now()},
		})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// DeleteByProject removes every task belonging to a project and returns the
// count. Used by the project-delete cascade.
func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByTeam removes every task owned by a deleted team and returns the
// count. Tasks cannot outlive their team.
func (s *Store) DeleteByTeam(ctx context.Context, teamID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"team_id": teamID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

/* -------------------------------------------------------------------------- */
/* Listings & stats                                                           */
/* -------------------------------------------------------------------------- */

// ListFilter narrows task listings. Zero-valued fields are ignored.
type ListFilter struct {
	TeamID     *primitive.ObjectID
	Status     string
	Priority   string
	AssignedTo *primitive.ObjectID
	ProjectID  *primitive.ObjectID
	Unassigned bool // only tasks with no assignee
}

func (f ListFilter) query() bson.M {
	q := bson.M{}
	if f.TeamID != nil {
		q["team_id"] = *f.TeamID
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.Priority != "" {
		q["priority"] = f.Priority
	}
	if f.Unassigned {
		q["assigned_to"] = bson.M{"$exists": false}
	} else if f.AssignedTo != nil {
		q["assigned_to"] = *f.AssignedTo
	}
	if f.ProjectID != nil {
		q["project_id"] = *f.ProjectID
	}
	return q
}

// List returns a page of tasks matching the filter, sorted by due date with
// a stable tiebreak, plus the total match count.
func (s *Store) List(ctx context.Context, f ListFilter, page paging.Page) ([]models.Task, int64, error) {
	q := f.query()

	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	find := page.ApplyToFind(options.Find(), "due_date", 1)
	cur, err := s.c.Find(ctx, q, find)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	tasks := []models.Task{}
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// StatusCounts holds per-status task totals.
type StatusCounts struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
}

// CountByStatus aggregates task counts by status, optionally scoped to a
// team. Used by the dashboard and by project progress rollups.
func (s *Store) CountByStatus(ctx context.Context, teamID *primitive.ObjectID) (StatusCounts, error) {
	match := bson.M{}
	if teamID != nil {
		match["team_id"] = *teamID
	}
	return s.countByStatus(ctx, match)
}

// CountByStatusForProject aggregates task counts by status for one project.
func (s *Store) CountByStatusForProject(ctx context.Context, projectID primitive.ObjectID) (StatusCounts, error) {
	return s.countByStatus(ctx, bson.M{"project_id": projectID})
}

// CountByAssignee aggregates task counts by status for one assignee.
func (s *Store) CountByAssignee(ctx context.Context, userID primitive.ObjectID) (StatusCounts, error) {
	return s.countByStatus(ctx, bson.M{"assigned_to": userID})
}

func (s *Store) countByStatus(ctx context.Context, match bson.M) (StatusCounts, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return StatusCounts{}, err
	}
	defer cur.Close(ctx)

	var counts StatusCounts
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			N      int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return StatusCounts{}, err
		}
		counts.Total += row.N
		switch row.Status {
		case models.TaskStatusPending:
			counts.Pending = row.N
		case models.TaskStatusInProgress:
			counts.InProgress = row.N
		case models.TaskStatusCompleted:
			counts.Completed = row.N
		}
	}
	return counts, cur.Err()
}
