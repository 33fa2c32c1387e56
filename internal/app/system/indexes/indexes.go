// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureTeams(ctx, db); err != nil {
		problems = append(problems, "teams: "+err.Error())
	}
	if err := ensureTasks(ctx, db); err != nil {
		problems = append(problems, "tasks: "+err.Error())
	}
	if err := ensureProjects(ctx, db); err != nil {
		problems = append(problems, "projects: "+err.Error())
	}
	if err := ensureEquipment(ctx, db); err != nil {
		problems = append(problems, "equipment: "+err.Error())
	}
	if err := ensurePasswordResets(ctx, db); err != nil {
		problems = append(problems, "password_resets: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := a != nil && *a
	bv := b != nil && *b
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{} // sig -> index
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			if m.Options.Unique != nil {
				desiredUnique = m.Options.Unique
			}
		}
		desiredSig := keySig(m.Keys.(bson.D))

		start := time.Now()
		existing := listExisting(ctx, coll)

		if ex, ok := existing[desiredSig]; ok {
			// Same key pattern exists already.
			if sameBoolPtr(desiredUnique, ex.Unique) {
				// Name alignment: if the name differs, drop and recreate with
				// the desired name so later DropOne calls find it.
				if desiredName != "" && ex.Name != desiredName {
					if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
						errs = append(errs, fmt.Sprintf("%s(%s): rename drop failed: %v", coll.Name(), desiredName, err))
						continue
					}
					if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
						errs = append(errs, fmt.Sprintf("%s(%s): rename create failed: %v", coll.Name(), desiredName, err))
						continue
					}
					zap.L().Info("index renamed",
						zap.String("collection", coll.Name()),
						zap.String("from", ex.Name),
						zap.String("to", desiredName))
					continue
				}

				zap.L().Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", desiredSig))
				continue
			}

			// Options mismatch (e.g., upgrading to unique). Drop & recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) && desiredUnique != nil && *desiredUnique {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), desiredName))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			}
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", desiredUnique != nil && *desiredUnique),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                             */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Email must be unique across all users, soft-deleted ones included.
		// A soft-deleted account still owns its address until purged.
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},

		// Lifecycle listings: active vs deleted, sorted by name with a stable
		// tiebreak.
		{
			Keys: bson.D{
				{Key: "is_deleted", Value: 1},
				{Key: "full_name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_users_deleted_nameci_id"),
		},

		// Team rosters and per-team counts.
		{
			Keys:    bson.D{{Key: "team_id", Value: 1}, {Key: "is_deleted", Value: 1}},
			Options: options.Index().SetName("idx_users_team_deleted"),
		},

		// Role breakdowns for the dashboard.
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "is_deleted", Value: 1}},
			Options: options.Index().SetName("idx_users_role_deleted"),
		},
	})
}

func ensureTeams(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("teams")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Team names are globally unique (case-folded via name_ci).
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_teams_nameci"),
		},
		// Name sort with stable tiebreak for listings.
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_teams_nameci_id"),
		},
		// Membership lookups ("which teams does this user belong to").
		{
			Keys:    bson.D{{Key: "members.user_id", Value: 1}},
			Options: options.Index().SetName("idx_teams_member_user"),
		},
	})
}

func ensureTasks(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("tasks")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Team-scoped listings with status filter and due-date sort.
		{
			Keys: bson.D{
				{Key: "team_id", Value: 1},
				{Key: "status", Value: 1},
				{Key: "due_date", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_tasks_team_status_due_id"),
		},
		// "My tasks" views.
		{
			Keys:    bson.D{{Key: "assigned_to", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_tasks_assignee_status"),
		},
		// Project rollups and cascade deletes.
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_tasks_project_status"),
		},
		// Priority filter path.
		{
			Keys:    bson.D{{Key: "team_id", Value: 1}, {Key: "priority", Value: 1}},
			Options: options.Index().SetName("idx_tasks_team_priority"),
		},
	})
}

func ensureProjects(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("projects")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Team-scoped listings with status filter.
		{
			Keys: bson.D{
				{Key: "team_id", Value: 1},
				{Key: "status", Value: 1},
				{Key: "name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_projects_team_status_nameci_id"),
		},
		// Manager lookups.
		{
			Keys:    bson.D{{Key: "project_manager", Value: 1}},
			Options: options.Index().SetName("idx_projects_manager"),
		},
		// Deadline-window queries for the stats endpoint.
		{
			Keys:    bson.D{{Key: "end_date", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_projects_enddate_status"),
		},
	})
}

func ensureEquipment(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("equipment")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Serial numbers are unique across the fleet.
		{
			Keys:    bson.D{{Key: "serial_number", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_equipment_serial"),
		},
		// Status filter + name sort for listings.
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "name", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_equipment_status_name_id"),
		},
		// Per-user assignment lookups and cleanup on user delete.
		{
			Keys:    bson.D{{Key: "assigned_to", Value: 1}},
			Options: options.Index().SetName("idx_equipment_assignee"),
		},
	})
}

func ensurePasswordResets(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("password_resets")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Token lookup path (tokens are stored hashed).
		{
			Keys:    bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_resets_tokenhash"),
		},
		// Latest reset per user.
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_resets_user_created"),
		},
		// TTL: expired reset requests purge themselves after a day.
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetExpireAfterSeconds(24 * 60 * 60).
				SetName("idx_resets_expires_ttl"),
		},
	})
}
