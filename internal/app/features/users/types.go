// internal/app/features/users/types.go
package users

import (
	userstore "taskhub/internal/app/store/users"
	"taskhub/internal/app/system/paging"
	"taskhub/internal/domain/models"
)

type createRequest struct {
	FullName string `json:"full_name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=admin team_leader team_member user"`
	TeamID   string `json:"team_id" validate:"omitempty,len=24"`
}

type updateRequest struct {
	FullName string `json:"full_name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin team_leader team_member user"`
}

type permissionsRequest struct {
	CanManageTasks bool `json:"can_manage_tasks"`
}

type teamRequest struct {
	// Empty removes the user from their team.
	TeamID string `json:"team_id" validate:"omitempty,len=24"`
}

type bulkRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=100,dive,len=24"`
}

type listResponse struct {
	Users []models.User `json:"users"`
	Meta  paging.Meta   `json:"meta"`
}

type purgeResponse struct {
	Purged int `json:"purged"`
}

type bulkResponse struct {
	Requested int                     `json:"requested"`
	Succeeded int                     `json:"succeeded"`
	Failed    []userstore.BulkFailure `json:"failed,omitempty"`
}
