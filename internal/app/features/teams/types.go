// internal/app/features/teams/types.go
package teams

import (
	"taskhub/internal/app/policy/perms"
	"taskhub/internal/app/system/paging"
	"taskhub/internal/domain/models"
)

type createRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

type updateRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

type memberRequest struct {
	UserID string `json:"user_id" validate:"required,len=24"`
}

type teamResponse struct {
	models.Team
	Perms perms.Set `json:"perms"`
}

type listResponse struct {
	Teams []models.Team `json:"teams"`
	Meta  paging.Meta   `json:"meta"`
}

type deleteResponse struct {
	DetachedUsers     int64 `json:"detached_users"`
	DeletedProjects   int   `json:"deleted_projects"`
	DeletedTasks      int64 `json:"deleted_tasks"`
	ReleasedEquipment int64 `json:"released_equipment"`
}
