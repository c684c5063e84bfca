package models

import "time"

// Course is identified by its (name, instructor) natural key; repeated imports
// of the same pair collapse onto one row.
type Course struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Name           string    `json:"name" gorm:"not null;uniqueIndex:idx_course_name_instructor"`
	Instructor     string    `json:"instructor" gorm:"not null;uniqueIndex:idx_course_name_instructor"`
	MeanPercentage float64   `json:"mean_percentage"`
	AvgLetterGrade string    `json:"avg_letter_grade"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
