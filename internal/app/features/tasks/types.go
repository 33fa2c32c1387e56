// internal/app/features/tasks/types.go
package tasks

import (
	"time"

	"taskhub/internal/app/policy/perms"
	"taskhub/internal/app/system/paging"
	"taskhub/internal/domain/models"
)

type createRequest struct {
	Title       string     `json:"title" validate:"required,min=2,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Status      string     `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	TeamID      string     `json:"team_id" validate:"required,len=24"`
	ProjectID   string     `json:"project_id" validate:"omitempty,len=24"`
	AssignedTo  string     `json:"assigned_to" validate:"omitempty,len=24"`
	DueDate     *time.Time `json:"due_date"`
}

type updateRequest struct {
	Title       string     `json:"title" validate:"required,min=2,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Priority    string     `json:"priority" validate:"required,oneof=low medium high"`
	ProjectID   string     `json:"project_id" validate:"omitempty,len=24"`
	DueDate     *time.Time `json:"due_date"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress completed"`
}

type taskResponse struct {
	models.Task
	Perms perms.Set `json:"perms"`
}

type listResponse struct {
	Tasks []models.Task `json:"tasks"`
	Meta  paging.Meta   `json:"meta"`
}
