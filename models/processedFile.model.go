package models

import "time"

// ProcessedFile is the ingestion ledger. A row exists only for files whose
// data was extracted and committed.
type ProcessedFile struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Filename    string    `json:"filename" gorm:"not null;uniqueIndex"`
	ModifiedAt  float64   `json:"modified_at"` // seconds since epoch
	ContentHash string    `json:"content_hash"`
	ProcessedAt time.Time `json:"processed_at"`
}
