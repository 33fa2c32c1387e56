// internal/app/features/projects/progress.go
package projects

import (
	"math"

	taskstore "taskhub/internal/app/store/tasks"
	"taskhub/internal/domain/models"
)

// computeProgress derives a project's progress percentage from its task
// counts, then adjusts for the project's lifecycle status:
//
//   - completed projects always report 100
//   - cancelled projects keep the raw task percentage
//   - planning projects are capped at 15, since early task counts overstate
//     how far along the work really is
//   - active projects with any tasks report at least 10
//
// A project with no tasks reports 0 unless completed.
func computeProgress(counts taskstore.StatusCounts, status string) int {
	if status == models.ProjectStatusCompleted {
		return 100
	}
	if counts.Total == 0 {
		return 0
	}

	pct := int(math.Round(float64(counts.Completed) / float64(counts.Total) * 100))

	switch status {
	case models.ProjectStatusPlanning:
		if pct > 15 {
			pct = 15
		}
	case models.ProjectStatusActive:
		if pct < 10 {
			pct = 10
		}
	}
	return pct
}
