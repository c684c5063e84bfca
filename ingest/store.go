package ingest

import (
	"context"
	"gradesync/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StoreWriter upserts gradebook records. Course identity is (name,
// instructor) and student identity is (student_id, course_id); the latest
// import overwrites earlier values.
type StoreWriter struct {
	db *gorm.DB
}

func NewStoreWriter(db *gorm.DB) *StoreWriter {
	return &StoreWriter{db: db}
}

// Persist writes the course and its roster in one transaction. On error
// nothing from rec is visible and a *PersistenceError is returned.
func (s *StoreWriter) Persist(ctx context.Context, rec *GradeRecord) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		courseID, err := upsertCourse(tx, rec)
		if err != nil {
			return err
		}
		for i, entry := range rec.Roster {
			if err := upsertStudent(tx, courseID, entry); err != nil {
				return errors.Wrapf(err, "roster entry %d (%s)", i+1, entry.StudentID)
			}
		}
		return nil
	})
	if err != nil {
		return &PersistenceError{Course: rec.CourseName, Instructor: rec.Instructor, Err: err}
	}
	return nil
}

func upsertCourse(tx *gorm.DB, rec *GradeRecord) (uint, error) {
	course := models.Course{
		Name:           rec.CourseName,
		Instructor:     rec.Instructor,
		MeanPercentage: rec.MeanPercentage,
		AvgLetterGrade: rec.AvgLetterGrade,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}, {Name: "instructor"}},
		DoUpdates: clause.AssignmentColumns([]string{"mean_percentage", "avg_letter_grade", "updated_at"}),
	}).Create(&course).Error; err != nil {
		return 0, errors.Wrap(err, "upserting course")
	}

	// The id reported back after an ON CONFLICT update differs between
	// drivers, so read it by natural key.
	var stored models.Course
	if err := tx.Select("id").
		Where("name = ? AND instructor = ?", rec.CourseName, rec.Instructor).
		Take(&stored).Error; err != nil {
		return 0, errors.Wrap(err, "resolving course id")
	}
	return stored.ID, nil
}

func upsertStudent(tx *gorm.DB, courseID uint, entry RosterEntry) error {
	grade := entry.LetterGrade
	student := models.Student{
		StudentID:   entry.StudentID,
		CourseID:    courseID,
		Name:        entry.StudentName,
		LetterGrade: &grade,
	}
	return tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "course_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "letter_grade"}),
	}).Create(&student).Error
}
