package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ImportRun records one pass of the orchestrator over the gradebook directory.
type ImportRun struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	RunID      uuid.UUID      `json:"run_id" gorm:"type:varchar(36);uniqueIndex;not null"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Discovered int            `json:"discovered" gorm:"default:0"`
	Ingested   int            `json:"ingested" gorm:"default:0"`
	Skipped    int            `json:"skipped" gorm:"default:0"`
	Failed     int            `json:"failed" gorm:"default:0"`
	Failures   datatypes.JSON `json:"failures"` // [{"file": ..., "stage": ..., "error": ...}]
}
