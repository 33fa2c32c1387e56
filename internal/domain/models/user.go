// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents admins, team leaders, team members, and plain users.
//
// NOTE:
//   - Soft delete keeps the document in place with is_deleted=true so the
//     account can be restored. Physical removal only happens on permanent
//     delete / purge.
//   - CanManageTasks is only meaningful for team leaders; an admin toggles
//     it to grant a leader task create/assign/update rights.
type User struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	FullName       string              `bson:"full_name" json:"full_name"`
	FullNameCI     string              `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email          string              `bson:"email" json:"email"`
	PasswordHash   string              `bson:"password_hash" json:"-"`
	Role           Role                `bson:"role" json:"role"`
	TeamID         *primitive.ObjectID `bson:"team_id,omitempty" json:"team_id,omitempty"`
	CanManageTasks bool                `bson:"can_manage_tasks" json:"can_manage_tasks"`
	IsDeleted      bool                `bson:"is_deleted" json:"is_deleted"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
