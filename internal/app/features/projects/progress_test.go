package projects

import (
	"testing"

	taskstore "taskhub/internal/app/store/tasks"
	"taskhub/internal/domain/models"
)

func TestComputeProgress(t *testing.T) {
	tests := []struct {
		name      string
		completed int64
		total     int64
		status    string
		want      int
	}{
		{"no tasks", 0, 0, models.ProjectStatusActive, 0},
		{"half done", 5, 10, models.ProjectStatusActive, 50},
		{"rounding", 1, 3, models.ProjectStatusActive, 33},
		{"rounding up", 2, 3, models.ProjectStatusActive, 67},
		{"active floor", 0, 10, models.ProjectStatusActive, 10},
		{"planning cap", 8, 10, models.ProjectStatusPlanning, 15},
		{"planning under cap", 1, 10, models.ProjectStatusPlanning, 10},
		{"completed always full", 1, 10, models.ProjectStatusCompleted, 100},
		{"completed no tasks", 0, 0, models.ProjectStatusCompleted, 100},
		{"cancelled keeps raw", 3, 4, models.ProjectStatusCancelled, 75},
		{"on hold keeps raw", 1, 4, models.ProjectStatusOnHold, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts := taskstore.StatusCounts{Total: tt.total, Completed: tt.completed}
			if got := computeProgress(counts, tt.status); got != tt.want {
				t.Errorf("computeProgress(%d/%d, %s) = %d, want %d",
					tt.completed, tt.total, tt.status, got, tt.want)
			}
		})
	}
}
