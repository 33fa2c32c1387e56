package equipmentstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
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
	return &Store{c: db.Collection("equipment")}
}

var (
	// ErrDuplicateSerial is returned when an item with the same serial
	// number already exists.
	ErrDuplicateSerial = errors.New("equipment with this serial number already exists")

	// ErrNotAvailable is returned when assigning an item that is already
	// assigned or under maintenance.
	ErrNotAvailable = errors.New("equipment is not available for assignment")

	errBadStatus = errors.New(`status must be "available"|"assigned"|"maintenance"`)
)

// GetByID loads an equipment item by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Equipment, error) {
	var e models.Equipment
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a new equipment item. Serial numbers are normalized to
// upper case and must be unique.
func (s *Store) Create(ctx context.Context, e models.Equipment) (models.Equipment, error) {
	e.ID = primitive.NewObjectID()
	e.Name = normalize.Name(e.Name)
	e.Type = sanitize.Text(e.Type)
	e.SerialNumber = normalize.Serial(e.SerialNumber)

	if e.Status == "" {
		e.Status = models.EquipmentStatusAvailable
	}
	if !models.ValidEquipmentStatus(e.Status) {
		return models.Equipment{}, errBadStatus
	}

	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, e); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Equipment{}, ErrDuplicateSerial
		}
		return models.Equipment{}, err
	}
	return e, nil
}

// Update holds the editable equipment fields. Assignment moves through
// Assign and Unassign, not here.
type Update struct {
	Name         string
	Type         string
	Status       string
	SerialNumber string
	PurchaseDate *time.Time
	TeamID       *primitive.ObjectID
}

// Update changes an equipment item's editable fields.
// Returns ErrDuplicateSerial if the new serial collides with another item.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) error {
	if !models.ValidEquipmentStatus(upd.Status) {
		return errBadStatus
	}

	set := bson.M{
		"name":          normalize.Name(upd.Name),
		"type":          sanitize.Text(upd.Type),
		"status":        upd.Status,
		"serial_number": normalize.Serial(upd.SerialNumber),
		"updated_at":    time.Now(),
	}
	unset := bson.M{}
	if upd.PurchaseDate != nil {
		set["purchase_date"] = *upd.PurchaseDate
	} else {
		unset["purchase_date"] = ""
	}
	if upd.TeamID != nil {
		set["team_id"] = *upd.TeamID
	} else {
		unset["team_id"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateSerial
		}
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes an equipment item.
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

// Assign hands an available item to a user and flips its status to assigned.
// The filter requires available status so two concurrent assigns cannot both
// win.
func (s *Store) Assign(ctx context.Context, itemID, userID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": itemID, "status": models.EquipmentStatusAvailable},
		bson.M{"$set": bson.M{
			"status":      models.EquipmentStatusAssigned,
			"assigned_to": userID,
			"updated_at":  time.Now(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Distinguish a missing item from one that is simply not available.
		if err := s.c.FindOne(ctx, bson.M{"_id": itemID},
			options.FindOne().SetProjection(bson.M{"_id": 1})).Err(); err != nil {
			return err
		}
		return ErrNotAvailable
	}
	return nil
}

// Unassign returns an assigned item to the available pool.
func (s *Store) Unassign(ctx context.Context, itemID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": itemID}, bson.M{
		"$set":   bson.M{"status": models.EquipmentStatusAvailable, "updated_at": time.Now()},
		"$unset": bson.M{"assigned_to": ""},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ClearAssignee releases every item held by the given user. Used when a user
// is deleted or purged.
func (s *Store) ClearAssignee(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.clearAssignees(ctx, bson.M{"assigned_to": userID})
}

// ClearAssignees is ClearAssignee for a batch of users.
func (s *Store) ClearAssignees(ctx context.Context, userIDs []primitive.ObjectID) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	return s.clearAssignees(ctx, bson.M{"assigned_to": bson.M{"$in": userIDs}})
}

func (s *Store) clearAssignees(ctx context.Context, filter bson.M) (int64, error) {
	res, err := s.c.UpdateMany(ctx, filter, bson.M{
		"$set":   bson.M{"status": models.EquipmentStatusAvailable, "updated_at": time.Now()},
		"$unset": bson.M{"assigned_to": ""},
	})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// DetachTeam unsets the team reference on every item owned by a deleted
// team. Items survive their team; only the link is cleared.
func (s *Store) DetachTeam(ctx context.Context, teamID primitive.ObjectID) (int64, error) {
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

// ListFilter narrows equipment listings. Zero-valued fields are ignored.
type ListFilter struct {
	Status     string
	Type       string
	TeamID     *primitive.ObjectID
	AssignedTo *primitive.ObjectID
}

func (f ListFilter) query() bson.M {
	q := bson.M{}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.Type != "" {
		q["type"] = f.Type
	}
	if f.TeamID != nil {
		q["team_id"] = *f.TeamID
	}
	if f.AssignedTo != nil {
		q["assigned_to"] = *f.AssignedTo
	}
	return q
}

// List returns a page of equipment matching the filter, sorted by name, plus
// the total match count.
func (s *Store) List(ctx context.Context, f ListFilter, page paging.Page) ([]models.Equipment, int64, error) {
	q := f.query()

	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	find := page.ApplyToFind(options.Find(), "name", 1)
	cur, err := s.c.Find(ctx, q, find)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	items := []models.Equipment{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// StatusCounts holds per-status equipment totals.
type StatusCounts struct {
	Total       int64 `json:"total"`
	Available   int64 `json:"available"`
	Assigned    int64 `json:"assigned"`
	Maintenance int64 `json:"maintenance"`
}

// CountByStatus aggregates equipment counts by status, optionally scoped to
// a team.
func (s *Store) CountByStatus(ctx context.Context, teamID *primitive.ObjectID) (StatusCounts, error) {
	match := bson.M{}
	if teamID != nil {
		match["team_id"] = *teamID
	}

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
		case models.EquipmentStatusAvailable:
			counts.Available = row.N
		case models.EquipmentStatusAssigned:
			counts.Assigned = row.N
		case models.EquipmentStatusMaintenance:
			counts.Maintenance = row.N
		}
	}
	return counts, cur.Err()
}
