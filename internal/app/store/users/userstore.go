package userstore

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
	"taskhub/internal/domain/models"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an
	// email that already exists, soft-deleted accounts included.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errBadRole        = errors.New(`role must be "admin"|"team_leader"|"team_member"|"user"`)
)

// GetByID loads a user by ObjectID, soft-deleted or not.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetActiveByID loads a user by ObjectID, excluding soft-deleted accounts.
func (s *Store) GetActiveByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "is_deleted": false}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by normalized email. Returns
// mongo.ErrNoDocuments if not found. Soft-deleted accounts are included so
// login can distinguish "deleted" from "unknown".
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user after normalizing and validating fields.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	u.IsDeleted = false

	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if !u.Role.Valid() {
		return models.User{}, errBadRole
	}

	// The task-management flag only means something on team leaders.
	if u.Role != models.RoleTeamLeader {
		u.CanManageTasks = false
	}

	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// ProfileUpdate holds the fields anyone authorized to edit a user may change.
type ProfileUpdate struct {
	FullName string
	Email    string
}

// UpdateProfile updates a user's profile fields.
// Returns ErrDuplicateEmail if the email already belongs to another user.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) error {
	name := normalize.Name(upd.FullName)
	set := bson.M{
		"full_name":    name,
		"full_name_ci": text.Fold(name),
		"email":        normalize.Email(upd.Email),
		"updated_at":   time.Now(),
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "is_deleted": false}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetRole changes a user's role. The canManageTasks flag is cleared when the
// user stops being a team leader.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role models.Role) error {
	if !role.Valid() {
		return errBadRole
	}
	set := bson.M{"role": role, "updated_at": time.Now()}
	if role != models.RoleTeamLeader {
		set["can_manage_tasks"] = false
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "is_deleted": false}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetCanManageTasks toggles the task-management grant on a team leader.
func (s *Store) SetCanManageTasks(ctx context.Context, id primitive.ObjectID, canManage bool) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "role": models.RoleTeamLeader, "is_deleted": false},
		bson.M{"$set": bson.M{"can_manage_tasks": canManage, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetTeam places a user on a team (or removes them when teamID is nil).
func (s *Store) SetTeam(ctx context.Context, id primitive.ObjectID, teamID *primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"updated_at": time.Now()}}
	if teamID == nil {
		update["$unset"] = bson.M{"team_id": ""}
	} else {
		update["$set"].(bson.M)["team_id"] = *teamID
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "is_deleted": false}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ClearTeamForMembers removes the team reference from every user on the
// given team. Used when a team is deleted.
func (s *Store) ClearTeamForMembers(ctx context.Context, teamID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"team_id": teamID},
		bson.M{
			"$unset": bson.M{"team_id": ""},
			"$set":   bson.M{"updated_at": time.Now()},
		})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// SetPasswordHash replaces a user's password hash.
func (s *Store) SetPasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "is_deleted": false},
		bson.M{"$set": bson.M{"password_hash": hash, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Soft-delete lifecycle                                                      */
/* -------------------------------------------------------------------------- */

// SoftDelete flags a user as deleted and detaches them from their team.
// The document stays in place so the account can be restored. Returns
// mongo.ErrNoDocuments if the user does not exist or is already deleted.
func (s *Store) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "is_deleted": false},
		bson.M{
			"$set":   bson.M{"is_deleted": true, "updated_at": time.Now()},
			"$unset": bson.M{"team_id": ""},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Restore reactivates a soft-deleted user. Team membership is NOT
// reconstructed; an admin re-adds the user to a team explicitly.
func (s *Store) Restore(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "is_deleted": true},
		bson.M{"$set": bson.M{"is_deleted": false, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// PermanentDelete physically removes a user document, whether or not it was
// soft-deleted first.
func (s *Store) PermanentDelete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Purge physically removes every soft-deleted user and returns how many
// documents went away, along with their IDs so callers can clean up
// references.
func (s *Store) Purge(ctx context.Context) ([]primitive.ObjectID, error) {
	ids, err := s.DeletedIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if _, err := s.c.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}, "is_deleted": true}); err != nil {
		return nil, err
	}
	return ids, nil
}

// DeletedIDs returns the IDs of all soft-deleted users.
func (s *Store) DeletedIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{"is_deleted": true},
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
	return ids, cur.Err()
}

// BulkFailure describes one item of a bulk lifecycle operation that did not
// go through.
type BulkFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BulkResult reports partial success for bulk lifecycle operations.
type BulkResult struct {
	Requested int           `json:"requested"`
	Succeeded int           `json:"succeeded"`
	Failed    []BulkFailure `json:"failed,omitempty"`
}

// BulkRestore restores each of the given users, collecting per-item
// failures instead of aborting the batch.
func (s *Store) BulkRestore(ctx context.Context, ids []primitive.ObjectID) BulkResult {
	result := BulkResult{Requested: len(ids)}
	for _, id := range ids {
		switch err := s.Restore(ctx, id); {
		case err == nil:
			result.Succeeded++
		case errors.Is(err, mongo.ErrNoDocuments):
			result.Failed = append(result.Failed, BulkFailure{ID: id.Hex(), Reason: "not found or not deleted"})
		default:
			result.Failed = append(result.Failed, BulkFailure{ID: id.Hex(), Reason: err.Error()})
		}
	}
	return result
}

// BulkPermanentDelete permanently deletes each of the given soft-deleted
// users, collecting per-item failures. The returned succeeded IDs let the
// caller clean up task and equipment references.
func (s *Store) BulkPermanentDelete(ctx context.Context, ids []primitive.ObjectID) (BulkResult, []primitive.ObjectID) {
	result := BulkResult{Requested: len(ids)}
	var removed []primitive.ObjectID
	for _, id := range ids {
		switch err := s.PermanentDelete(ctx, id); {
		case err == nil:
			result.Succeeded++
			removed = append(removed, id)
		case errors.Is(err, mongo.ErrNoDocuments):
			result.Failed = append(result.Failed, BulkFailure{ID: id.Hex(), Reason: "not found or not deleted"})
		default:
			result.Failed = append(result.Failed, BulkFailure{ID: id.Hex(), Reason: err.Error()})
		}
	}
	return result, removed
}

/* -------------------------------------------------------------------------- */
/* Listings                                                                   */
/* -------------------------------------------------------------------------- */

// ListFilter narrows user listings.
type ListFilter struct {
	Deleted *bool               // nil = both, otherwise filter on is_deleted
	Role    models.Role         // optional
	TeamID  *primitive.ObjectID // optional
	Search  string              // case-folded prefix match on full_name_ci
}

func (f ListFilter) query() bson.M {
	q := bson.M{}
	if f.Deleted != nil {
		q["is_deleted"] = *f.Deleted
	}
	if f.Role != "" {
		q["role"] = f.Role
	}
	if f.TeamID != nil {
		q["team_id"] = *f.TeamID
	}
	if f.Search != "" {
		q["full_name_ci"] = bson.M{"$regex": "^" + text.Fold(f.Search)}
	}
	return q
}

// List returns a page of users matching the filter, sorted by folded name,
// plus the total match count.
func (s *Store) List(ctx context.Context, f ListFilter, page paging.Page) ([]models.User, int64, error) {
	q := f.query()

	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	find := page.ApplyToFind(options.Find(), "full_name_ci", 1)
	cur, err := s.c.Find(ctx, q, find)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// CountByRole returns active-user counts per role for the dashboard.
func (s *Store) CountByRole(ctx context.Context) (map[models.Role]int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"is_deleted": false}}},
		{{Key: "$group", Value: bson.M{"_id": "$role", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	counts := map[models.Role]int64{}
	for cur.Next(ctx) {
		var row struct {
			Role models.Role `bson:"_id"`
			N    int64       `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		counts[row.Role] = row.N
	}
	return counts, cur.Err()
}
