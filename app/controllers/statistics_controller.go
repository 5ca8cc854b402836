package controllers

import (
	"time"

	"github.com/acsk/AppCheckin-sub000/internal/pkg/statistics"
	"github.com/gofiber/fiber/v2"
)

// HandleAcademyStatistics returns the dashboard aggregates for the current
// academy. Decay runs first so the active/overdue split reflects today.
func HandleAcademyStatistics(c *fiber.Ctx) error {
	academyID := requireAcademyID(c)
	if academyID == 0 {
		return nil
	}
	runDecayIfDue(academyID)

	stats, err := statistics.GetAcademyStats(academyID, time.Now())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(stats)
}
