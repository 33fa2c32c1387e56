package teamstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
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
	return &Store{c: db.Collection("teams")}
}

// ErrDuplicateName is returned when a team with the same (case-folded) name
// already exists.
var ErrDuplicateName = errors.New("a team with this name already exists")

// GetByID loads a team by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Team, error) {
	var t models.Team
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a new team after normalizing its name.
func (s *Store) Create(ctx context.Context, t models.Team) (models.Team, error) {
	t.ID = primitive.NewObjectID()
	t.Name = normalize.Name(t.Name)
	t.NameCI = text.Fold(t.Name)
	t.Description = sanitize.Text(t.Description)
	if t.Members == nil {
		t.Members = []models.TeamMember{}
	}

	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Team{}, ErrDuplicateName
		}
		return models.Team{}, err
	}
	return t, nil
}

// Update changes a team's name and description.
// Returns ErrDuplicateName if the new name collides with another team.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, name, description string) error {
	name = normalize.Name(name)
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name":        name,
		"name_ci":     text.Fold(name),
		"description": sanitize.Text(description),
		"updated_at":  time.Now(),
	}})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateName
		}
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a team. Detaching users and orphaning the team's tasks is
// the caller's job; this only touches the teams collection.
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

// List returns a page of teams sorted by folded name, with an optional
// name-prefix search, plus the total match count.
func (s *Store) List(ctx context.Context, search string, page paging.Page) ([]models.Team, int64, error) {
	q := bson.M{}
	if search != "" {
		q["name_ci"] = bson.M{"$regex": "^" + text.Fold(search)}
	}

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

	teams := []models.Team{}
	if err := cur.All(ctx, &teams); err != nil {
		return nil, 0, err
	}
	return teams, total, nil
}

/* -------------------------------------------------------------------------- */
/* Membership                                                                 */
/* -------------------------------------------------------------------------- */

// AddMember appends a member entry to the team's roster. Re-adding an
// existing member replaces their entry so the label and join time stay
// current.
func (s *Store) AddMember(ctx context.Context, teamID, userID primitive.ObjectID, label string) error {
	if label == "" {
		label = models.MemberLabelMember
	}

	// Drop any stale entry first so the roster never holds the same user twice.
	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": teamID},
		bson.M{"$pull": bson.M{"members": bson.M{"user_id": userID}}}); err != nil {
		return err
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": teamID}, bson.M{
		"$push": bson.M{"members": models.TeamMember{
			UserID:    userID,
			RoleLabel: label,
			JoinedAt:  time.Now(),
		}},
		"$set": bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// RemoveMember removes a user from the team's roster.
func (s *Store) RemoveMember(ctx context.Context, teamID, userID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": teamID}, bson.M{
		"$pull": bson.M{"members": bson.M{"user_id": userID}},
		"$set":  bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	if res.ModifiedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetMemberLabel changes a roster entry's label, e.g. promoting a member to
// "Team Leader". Returns mongo.ErrNoDocuments when the user is not on the
// roster.
func (s *Store) SetMemberLabel(ctx context.Context, teamID, userID primitive.ObjectID, label string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": teamID, "members.user_id": userID},
		bson.M{"$set": bson.M{
			"members.$.role_label": label,
			"updated_at":           time.Now(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// HasMember reports whether the user appears on the team's roster.
func (s *Store) HasMember(ctx context.Context, teamID, userID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"_id": teamID, "members.user_id": userID},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == nil {
		return true, nil
	}
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return false, err
}

// RemoveUserFromAllTeams pulls a user from every roster they appear on.
// Used when a user is soft-deleted or purged.
func (s *Store) RemoveUserFromAllTeams(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"members.user_id": userID},
		bson.M{
			"$pull": bson.M{"members": bson.M{"user_id": userID}},
			"$set":  bson.M{"updated_at": time.Now()},
		})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
