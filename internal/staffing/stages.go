package staffing

import (
	"fmt"

	"github.com/arnold/dealpods-api/internal/models"
)

// Deal stages form a fixed linear sequence. The coordinator never moves a
// deal backward.
var stageOrder = []string{
	models.StageOrigination,
	models.StageStructuring,
	models.StageDiligence,
	models.StageNegotiation,
	models.StageClosing,
	models.StageIntegration,
}

// StageIndex returns a stage's position in the sequence, or -1 for an
// unknown label.
func StageIndex(stage string) int {
	for i, s := range stageOrder {
		if s == stage {
			return i
		}
	}
	return -1
}

// ValidateTransition allows same-stage (idempotent re-run) and forward
// moves only.
func ValidateTransition(current, next string) error {
	ci, ni := StageIndex(current), StageIndex(next)
	if ni < 0 {
		return fmt.Errorf("staffing: unknown stage %q", next)
	}
	if ci < 0 {
		return fmt.Errorf("staffing: deal has unknown stage %q", current)
	}
	if ni < ci {
		return fmt.Errorf("staffing: cannot move backward from %s to %s", current, next)
	}
	return nil
}
