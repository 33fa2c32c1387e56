// internal/app/features/equipment/types.go
package equipment

import (
	"time"

	"taskhub/internal/app/system/paging"
	"taskhub/internal/domain/models"
)

type createRequest struct {
	Name         string     `json:"name" validate:"required,min=2,max=150"`
	Type         string     `json:"type" validate:"required,min=2,max=100"`
	SerialNumber string     `json:"serial_number" validate:"required,min=2,max=100"`
	Status       string     `json:"status" validate:"omitempty,oneof=available assigned maintenance"`
	TeamID       string     `json:"team_id" validate:"omitempty,len=24"`
	PurchaseDate *time.Time `json:"purchase_date"`
}

type updateRequest struct {
	Name         string     `json:"name" validate:"required,min=2,max=150"`
	Type         string     `json:"type" validate:"required,min=2,max=100"`
	SerialNumber string     `json:"serial_number" validate:"required,min=2,max=100"`
	Status       string     `json:"status" validate:"required,oneof=available assigned maintenance"`
	TeamID       string     `json:"team_id" validate:"omitempty,len=24"`
	PurchaseDate *time.Time `json:"purchase_date"`
}

type listResponse struct {
	Equipment []models.Equipment `json:"equipment"`
	Meta      paging.Meta        `json:"meta"`
}
