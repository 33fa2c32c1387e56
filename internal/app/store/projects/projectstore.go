package projectstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskhub/internal/app/system/normalize"
	"taskhub/internal/app/system/paging"
	"taskhub/internal/app/system/sanitize"
	"taskhub/internal/domain/models"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("projects")}
}

var (
	errBadStatus   = errors.New(`status must be "planning"|"active"|"on-hold"|"completed"|"cancelled"`)
	errBadPriority = errors.New(`priority must be "low"|"medium"|"high"|"urgent"`)
)

// GetByID loads a project by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new project after normalizing and validating fields.
func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
	p.ID = primitive.NewObjectID()
	p.Name = normalize.Name(p.Name)
	p.NameCI = text.Fold(p.Name)
	p.Description = sanitize.Text(p.Description)
	p.Tags = sanitize.Tags(p.Tags)

	if p.Status == "" {
		p.Status = models.ProjectStatusPlanning
	}
	if !models.ValidProjectStatus(p.Status) {
		return models.Project{}, errBadStatus
	}
	if p.Priority == "" {
		p.Priority = models.ProjectPriorityMedium
	}
	if !models.ValidProjectPriority(p.Priority) {
		return models.Project{}, errBadPriority
	}
	p.Progress = clampProgress(p.Progress)

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// Update holds the editable project fields.
type Update struct {
	Name           string
	Description    string
	Status         string
	Priority       string
	StartDate      *time.Time
	EndDate        *time.Time
	Deadline       *time.Time
	ProjectManager *primitive.ObjectID
	Tags           []string
}

// Update changes a project's editable fields.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) error {
	if !models.ValidProjectStatus(upd.Status) {
		return errBadStatus
	}
	if !models.ValidProjectPriority(upd.Priority) {
		return errBadPriority
	}

	name := normalize.Name(upd.Name)
	set := bson.M{
		"name":        name,
		"name_ci":     text.Fold(name),
		"description": sanitize.Text(upd.Description),
		"status":      upd.Status,
		"priority":    upd.Priority,
		"updated_at":  time.Now(),
	}
	unset := bson.M{}

	setOrUnset := func(key string, t *time.Time) {
		if t != nil {
			set[key] = *t
		} else {
			unset[key] = ""
		}
	}
	setOrUnset("start_date", upd.StartDate)
	setOrUnset("end_date", upd.EndDate)
	setOrUnset("deadline", upd.Deadline)

	if upd.ProjectManager != nil {
		set["project_manager"] = *upd.ProjectManager
	} else {
		unset["project_manager"] = ""
	}
	if tags := sanitize.Tags(upd.Tags); tags != nil {
		set["tags"] = tags
	} else {
		unset["tags"] = ""
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

// SetProgress stores a recomputed progress value, clamped to 0..100.
func (s *Store) SetProgress(ctx context.Context, id primitive.ObjectID, progress int) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"progress": clampProgress(progress), "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a project. The task cascade is the caller's job.
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

// ClearManager unsets the project_manager reference on every project managed
// by the given user. Used when a user is deleted or purged.
func (s *Store) ClearManager(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"project_manager": userID},
		bson.M{
			"$unset": bson.M{"project_manager": ""},
			"$set":   bson.M{"updated_at": time.Now()},
		})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// DeleteByTeam removes every project owned by a deleted team and returns
// their IDs so the caller can cascade to tasks.
func (s *Store) DeleteByTeam(ctx context.Context, teamID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{"team_id": teamID},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []primitive.ObjectID
	for cur.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if _, err := s.c.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return nil, err
	}
	return ids, nil
}

/* -------------------------------------------------------------------------- */
/* Listings & stats                                                           */
/* -------------------------------------------------------------------------- */

// ListFilter narrows project listings. Zero-valued fields are ignored.
type ListFilter struct {
	TeamID   *primitive.ObjectID
	Status   string
	Priority string
	Search   string // case-folded prefix match on name_ci
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
	if f.Search != "" {
		q["name_ci"] = bson.M{"$regex": "^" + text.Fold(f.Search)}
	}
	return q
}

// List returns a page of projects matching the filter, sorted by folded
// name, plus the total match count.
func (s *Store) List(ctx context.Context, f ListFilter, page paging.Page) ([]models.Project, int64, error) {
	q := f.query()

	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	find := page.ApplyToFind(options.Find(), "name_ci", 1)
	cur, err := s.c.Find(ctx, q, find)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	projects := []models.Project{}
	if err := cur.All(ctx, &projects); err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

// ListAll returns every project matching the filter, sorted by folded name.
// Used where the caller needs the full set rather than a page.
func (s *Store) ListAll(ctx context.Context, f ListFilter) ([]models.Project, error) {
	cur, err := s.c.Find(ctx, f.query(), options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	projects := []models.Project{}
	if err := cur.All(ctx, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// Stats is the aggregate picture used for dashboard rollups.
type Stats struct {
	Total       int64            `json:"total"`
	ByStatus    map[string]int64 `json:"by_status"`
	ByPriority  map[string]int64 `json:"by_priority"`
	AvgProgress float64          `json:"avg_progress"`
	Overdue     int64            `json:"overdue"`
}

// Stats aggregates project counts by status and priority, the average
// progress, and the number of overdue projects (end date in the past,
// not completed or cancelled). Optionally scoped to a team.
func (s *Store) Stats(ctx context.Context, teamID *primitive.ObjectID) (Stats, error) {
	match := bson.M{}
	if teamID != nil {
		match["team_id"] = *teamID
	}

	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$facet", Value: bson.M{
			"by_status": mongo.Pipeline{
				{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
			},
			"by_priority": mongo.Pipeline{
				{{Key: "$group", Value: bson.M{"_id": "$priority", "n": bson.M{"$sum": 1}}}},
			},
			"progress": mongo.Pipeline{
				{{Key: "$group", Value: bson.M{"_id": nil, "avg": bson.M{"$avg": "$progress"}}}},
			},
			"overdue": mongo.Pipeline{
				{{Key: "$match", Value: bson.M{
					"end_date": bson.M{"$lt": time.Now()},
					"status": bson.M{"$nin": bson.A{
						models.ProjectStatusCompleted, models.ProjectStatusCancelled,
					}},
				}}},
				{{Key: "$count", Value: "n"}},
			},
		}}},
	})
	if err != nil {
		return Stats{}, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		ByStatus []struct {
			Status string `bson:"_id"`
			N      int64  `bson:"n"`
		} `bson:"by_status"`
		ByPriority []struct {
			Priority string `bson:"_id"`
			N        int64  `bson:"n"`
		} `bson:"by_priority"`
		Progress []struct {
			Avg float64 `bson:"avg"`
		} `bson:"progress"`
		Overdue []struct {
			N int64 `bson:"n"`
		} `bson:"overdue"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return Stats{}, err
	}

	stats := Stats{
		ByStatus:   map[string]int64{},
		ByPriority: map[string]int64{},
	}
	if len(rows) == 0 {
		return stats, nil
	}
	row := rows[0]
	for _, g := range row.ByStatus {
		stats.ByStatus[g.Status] = g.N
		stats.Total += g.N
	}
	for _, g := range row.ByPriority {
		stats.ByPriority[g.Priority] = g.N
	}
	if len(row.Progress) > 0 {
		stats.AvgProgress = row.Progress[0].Avg
	}
	if len(row.Overdue) > 0 {
		stats.Overdue = row.Overdue[0].N
	}
	return stats, nil
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
