// internal/domain/models/project.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project statuses.
const (
	ProjectStatusPlanning  = "planning"
	ProjectStatusActive    = "active"
	ProjectStatusOnHold    = "on-hold"
	ProjectStatusCompleted = "completed"
	ProjectStatusCancelled = "cancelled"
)

// Project priorities.
const (
	ProjectPriorityLow    = "low"
	ProjectPriorityMedium = "medium"
	ProjectPriorityHigh   = "high"
	ProjectPriorityUrgent = "urgent"
)

// ValidProjectStatus reports whether s is a known project status.
func ValidProjectStatus(s string) bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusActive, ProjectStatusOnHold,
		ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

// ValidProjectPriority reports whether p is a known project priority.
func ValidProjectPriority(p string) bool {
	switch p {
	case ProjectPriorityLow, ProjectPriorityMedium, ProjectPriorityHigh, ProjectPriorityUrgent:
		return true
	}
	return false
}

// Project is a team-owned body of work aggregating tasks.
//
// Progress mirrors the proportion of completed tasks but is recomputed by an
// explicit step, not maintained continuously.
type Project struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name           string              `bson:"name" json:"name"`
	NameCI         string              `bson:"name_ci" json:"-"`
	Description    string              `bson:"description" json:"description"`
	TeamID         primitive.ObjectID  `bson:"team_id" json:"team_id"`
	Status         string              `bson:"status" json:"status"`
	Priority       string              `bson:"priority" json:"priority"`
	StartDate      *time.Time          `bson:"start_date,omitempty" json:"start_date,omitempty"`
	EndDate        *time.Time          `bson:"end_date,omitempty" json:"end_date,omitempty"`
	Deadline       *time.Time          `bson:"deadline,omitempty" json:"deadline,omitempty"`
	ProjectManager *primitive.ObjectID `bson:"project_manager,omitempty" json:"project_manager,omitempty"`
	Progress       int                 `bson:"progress" json:"progress"`
	Tags           []string            `bson:"tags,omitempty" json:"tags,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
