package reportValidator

import (
	"gradesync/middleware"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	DefaultRunLimit = 20
	MaxRunLimit     = 100
)

// RunListQuery is stored in Locals("validatedRunList").
type RunListQuery struct {
	Limit int
	Today bool
}

// CourseStudents validates the :id path parameter
func CourseStudents() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseIDStr := strings.TrimSpace(c.Params("id"))
		if courseIDStr == "" {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Course ID is required!", nil)
		}

		courseID, err := strconv.ParseUint(courseIDStr, 10, 64)
		if err != nil || courseID == 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Course ID!", nil)
		}

		c.Locals("courseID", uint(courseID))
		return c.Next()
	}
}

// RunList validates ?limit= and ?today=
func RunList() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := &RunListQuery{Limit: DefaultRunLimit}
		errors := make(map[string]string)

		if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit <= 0 {
				errors["limit"] = "Limit must be a positive number!"
			} else if limit > MaxRunLimit {
				errors["limit"] = "Limit must not exceed " + strconv.Itoa(MaxRunLimit) + "!"
			} else {
				reqData.Limit = limit
			}
		}

		if raw := strings.TrimSpace(c.Query("today")); raw != "" {
			today, err := strconv.ParseBool(raw)
			if err != nil {
				errors["today"] = "Today must be true or false!"
			}
			reqData.Today = today
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedRunList", reqData)
		return c.Next()
	}
}
