package models

// Student rows are keyed by (student_id, course_id): one student may sit in
// many courses but appears once per course.
type Student struct {
	StudentID   string  `json:"student_id" gorm:"primaryKey;not null"`
	CourseID    uint    `json:"course_id" gorm:"primaryKey;autoIncrement:false;not null;index"`
	Name        string  `json:"name"`
	LetterGrade *string `json:"letter_grade"`
	Course      *Course `json:"-" gorm:"foreignKey:CourseID;constraint:OnDelete:RESTRICT"`
}
