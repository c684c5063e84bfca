package controllers

import (
	"gradesync/middleware"
	"gradesync/models"
	reportValidator "gradesync/validators/report"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/jinzhu/now"
	"gorm.io/gorm"
)

// Controller serves read-only views of the ingested data.
type Controller struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Controller {
	return &Controller{db: db}
}

// GetAllCourses lists every course ordered by name and instructor
func (ctl *Controller) GetAllCourses(c *fiber.Ctx) error {
	var courses []models.Course
	if err := ctl.db.WithContext(c.UserContext()).
		Order("name, instructor").
		Find(&courses).Error; err != nil {
		log.Printf("[API] fetching courses: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch courses!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", fiber.Map{
		"courses": courses,
	})
}

// GetCourseStudents returns one course together with its roster
func (ctl *Controller) GetCourseStudents(c *fiber.Ctx) error {
	courseID, ok := c.Locals("courseID").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Course ID!", nil)
	}
	db := ctl.db.WithContext(c.UserContext())

	var course models.Course
	if err := db.First(&course, courseID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
		}
		log.Printf("[API] fetching course %d: %v", courseID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch course!", nil)
	}

	var students []models.Student
	if err := db.Where("course_id = ?", courseID).
		Order("student_id").
		Find(&students).Error; err != nil {
		log.Printf("[API] fetching roster of course %d: %v", courseID, err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch students!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Students fetched successfully!", fiber.Map{
		"course":   course,
		"students": students,
	})
}

// GetProcessedFiles lists the processed-files ledger, newest first
func (ctl *Controller) GetProcessedFiles(c *fiber.Ctx) error {
	var files []models.ProcessedFile
	if err := ctl.db.WithContext(c.UserContext()).
		Order("processed_at desc").
		Find(&files).Error; err != nil {
		log.Printf("[API] fetching processed files: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch processed files!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Processed files fetched successfully!", fiber.Map{
		"files": files,
	})
}

// GetRuns lists the most recent import runs
func (ctl *Controller) GetRuns(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedRunList").(*reportValidator.RunListQuery)
	if !ok {
		reqData = &reportValidator.RunListQuery{Limit: reportValidator.DefaultRunLimit}
	}

	query := ctl.db.WithContext(c.UserContext()).Order("started_at desc").Limit(reqData.Limit)
	if reqData.Today {
		query = query.Where("started_at >= ?", now.BeginningOfDay().UTC())
	}

	var runs []models.ImportRun
	if err := query.Find(&runs).Error; err != nil {
		log.Printf("[API] fetching import runs: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch import runs!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Import runs fetched successfully!", fiber.Map{
		"runs":  runs,
		"limit": reqData.Limit,
	})
}
