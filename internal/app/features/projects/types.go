// internal/app/features/projects/types.go
package projects

import (
	"time"

	"taskhub/internal/app/policy/perms"
	taskstore "taskhub/internal/app/store/tasks"
	"taskhub/internal/app/system/paging"
	"taskhub/internal/domain/models"
)

type createRequest struct {
	Name           string     `json:"name" validate:"required,min=2,max=150"`
	Description    string     `json:"description" validate:"max=2000"`
	TeamID         string     `json:"team_id" validate:"required,len=24"`
	Status         string     `json:"status" validate:"omitempty,oneof=planning active on-hold completed cancelled"`
	Priority       string     `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	Deadline       *time.Time `json:"deadline"`
	ProjectManager string     `json:"project_manager" validate:"omitempty,len=24"`
	Tags           []string   `json:"tags" validate:"max=20"`
}

type updateRequest struct {
	Name           string     `json:"name" validate:"required,min=2,max=150"`
	Description    string     `json:"description" validate:"max=2000"`
	Status         string     `json:"status" validate:"required,oneof=planning active on-hold completed cancelled"`
	Priority       string     `json:"priority" validate:"required,oneof=low medium high urgent"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	Deadline       *time.Time `json:"deadline"`
	ProjectManager string     `json:"project_manager" validate:"omitempty,len=24"`
	Tags           []string   `json:"tags" validate:"max=20"`
}

type projectResponse struct {
	models.Project
	Perms perms.Set `json:"perms"`
}

type projectDetail struct {
	models.Project
	Perms perms.Set              `json:"perms"`
	Tasks taskstore.StatusCounts `json:"task_counts"`
}

type listResponse struct {
	Projects []models.Project `json:"projects"`
	Meta     paging.Meta      `json:"meta"`
}

type taskStats struct {
	taskstore.StatusCounts
	Progress int `json:"progress"`
}

type statsEntry struct {
	models.Project
	Perms perms.Set `json:"perms"`
	Tasks taskStats `json:"task_stats"`
}

type statsResponse struct {
	Projects []statsEntry `json:"projects"`
	Total    int          `json:"total"`
}

type deleteResponse struct {
	DeletedTasks int64 `json:"deleted_tasks"`
}

type progressResponse struct {
	Progress int                    `json:"progress"`
	Tasks    taskstore.StatusCounts `json:"task_counts"`
}
