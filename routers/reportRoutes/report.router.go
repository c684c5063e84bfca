package reportRoutes

import (
	controllers "gradesync/controllers/report"
	validators "gradesync/validators/report"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupReportRoutes mounts the read-only report endpoints under /api
func SetupReportRoutes(app *fiber.App, db *gorm.DB) {
	ctl := controllers.New(db)
	api := app.Group("/api")

	api.Get("/courses", ctl.GetAllCourses)
	api.Get("/courses/:id/students", validators.CourseStudents(), ctl.GetCourseStudents)
	api.Get("/processed-files", ctl.GetProcessedFiles)
	api.Get("/runs", validators.RunList(), ctl.GetRuns)
}
