// internal/domain/models/team.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TeamMember is an embedded membership entry on a Team.
// RoleLabel is a display label ("Team Leader", "Member"); the authoritative
// role lives on the User document.
type TeamMember struct {
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	RoleLabel string             `bson:"role_label" json:"role_label"`
	JoinedAt  time.Time          `bson:"joined_at" json:"joined_at"`
}

// Team groups users and owns tasks and projects.
// By convention at most one member carries the "Team Leader" label; this is
// not enforced structurally.
type Team struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description" json:"description"`
	Members     []TeamMember       `bson:"members" json:"members"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Team member display labels.
const (
	MemberLabelLeader = "Team Leader"
	MemberLabelMember = "Member"
)
