// internal/domain/models/equipment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Equipment statuses.
const (
	EquipmentStatusAvailable   = "available"
	EquipmentStatusAssigned    = "assigned"
	EquipmentStatusMaintenance = "maintenance"
)

// ValidEquipmentStatus reports whether s is a known equipment status.
func ValidEquipmentStatus(s string) bool {
	return s == EquipmentStatusAvailable || s == EquipmentStatusAssigned || s == EquipmentStatusMaintenance
}

// Equipment is a physical asset tracked by serial number and optionally
// assigned to a user or a team.
type Equipment struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name         string              `bson:"name" json:"name"`
	Type         string              `bson:"type" json:"type"`
	Status       string              `bson:"status" json:"status"`
	AssignedTo   *primitive.ObjectID `bson:"assigned_to,omitempty" json:"assigned_to,omitempty"`
	TeamID       *primitive.ObjectID `bson:"team_id,omitempty" json:"team_id,omitempty"`
	SerialNumber string              `bson:"serial_number" json:"serial_number"`
	PurchaseDate *time.Time          `bson:"purchase_date,omitempty" json:"purchase_date,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
