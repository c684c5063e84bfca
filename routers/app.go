package routers

import (
	"gradesync/middleware"
	"gradesync/routers/reportRoutes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
)

// NewApp builds the fiber app serving the report API.
func NewApp(db *gorm.DB) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "gradesync",
		ErrorHandler: middleware.ErrorHandler,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET",
		AllowHeaders: "Content-Type",
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	reportRoutes.SetupReportRoutes(app, db)
	return app
}
